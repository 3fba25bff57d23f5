package fmsolvers

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// ConfigEnv names the environment variable holding the configuration directory.
	ConfigEnv = "FMSOLVERS_CONFIG"
	// DefaultStatusInterval is how often a long run logs its progress.
	DefaultStatusInterval = 10 * time.Second
)

// Config is the solver configuration. It is validated once by NewSampler and never mutated.
type Config struct {
	NumSteps       int           `mapstructure:"num_steps"`
	Order          int           `mapstructure:"order"`
	SkipType       SkipType      `mapstructure:"skip_type"`
	Method         string        `mapstructure:"method"`    // multistep or singlestep, DPM only
	Solver         string        `mapstructure:"solver"`    // dpm or unipc
	Shift          float64       `mapstructure:"shift"`     // flow shift, 1 disables it
	Precision      Precision     `mapstructure:"precision"` // rounding of model outputs
	StatusInterval time.Duration `mapstructure:"status_interval"`
}

// DefaultConfig returns the configuration used by the video pipelines.
func DefaultConfig() Config {
	return Config{
		NumSteps:       50,
		Order:          2,
		SkipType:       TimeUniform,
		Method:         string(Multistep),
		Solver:         "dpm",
		Shift:          1,
		Precision:      Float64,
		StatusInterval: DefaultStatusInterval,
	}
}

// withDefaults fills the optional fields left at their zero value.
func (c Config) withDefaults() Config {
	if c.Method == "" {
		c.Method = string(Multistep)
	}
	if c.Solver == "" {
		c.Solver = "dpm"
	}
	if c.Shift == 0 {
		c.Shift = 1
	}
	if c.Precision == "" {
		c.Precision = Float64
	}
	if c.StatusInterval == 0 {
		c.StatusInterval = DefaultStatusInterval
	}
	return c
}

// Validate returns a *ConfigError describing the first invalid field.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.NumSteps < 1 {
		return &ConfigError{Field: "num_steps", Value: c.NumSteps, Reason: "must be at least 1"}
	}
	if c.Order < 1 || c.Order > MaxOrder {
		return &ConfigError{Field: "order", Value: c.Order, Reason: fmt.Sprintf("must be between 1 and %d", MaxOrder)}
	}
	if !c.SkipType.Valid() {
		return &ConfigError{Field: "skip_type", Value: c.SkipType, Reason: fmt.Sprintf("expected one of %v", SkipTypes)}
	}
	switch Method(c.Method) {
	case Multistep, Singlestep:
	default:
		return &ConfigError{Field: "method", Value: c.Method, Reason: "expected multistep or singlestep"}
	}
	fam, err := ParseFamily(c.Solver)
	if err != nil {
		return err
	}
	if fam == UniPC && Method(c.Method) == Singlestep {
		return &ConfigError{Field: "method", Value: c.Method, Reason: "unipc only supports multistep"}
	}
	if c.Shift <= 0 || math.IsNaN(c.Shift) || math.IsInf(c.Shift, 0) {
		return &ConfigError{Field: "shift", Value: c.Shift, Reason: "must be a positive finite number"}
	}
	if !c.Precision.Valid() {
		return &ConfigError{Field: "precision", Value: c.Precision, Reason: "expected float64, float32, float16 or bfloat16"}
	}
	if c.StatusInterval < 0 {
		return &ConfigError{Field: "status_interval", Value: c.StatusInterval, Reason: "must not be negative"}
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%s/%s order=%d steps=%d skip=%s shift=%g precision=%s", c.Solver, c.Method, c.Order, c.NumSteps, c.SkipType, c.Shift, c.Precision)
}

// LoadConfig reads the [solver] section of <name>.toml from the directory named
// by FMSOLVERS_CONFIG (or the working directory). Every key may be overridden by an
// environment variable such as FMSOLVERS_SOLVER_NUM_STEPS.
func LoadConfig(name string) (Config, error) {
	confPath := os.Getenv(ConfigEnv)
	if confPath == "" {
		confPath = "."
	}
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(confPath)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: reading %s/%s.toml: %v", ErrConfig, confPath, name, err)
	}
	return ConfigFromViper(v)
}

// ConfigFromViper extracts the [solver] section of an already loaded viper
// instance, applying defaults and environment overrides.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	def := DefaultConfig()
	v.SetEnvPrefix("FMSOLVERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("solver.num_steps", def.NumSteps)
	v.SetDefault("solver.order", def.Order)
	v.SetDefault("solver.skip_type", string(def.SkipType))
	v.SetDefault("solver.method", def.Method)
	v.SetDefault("solver.solver", def.Solver)
	v.SetDefault("solver.shift", def.Shift)
	v.SetDefault("solver.precision", string(def.Precision))
	v.SetDefault("solver.status_interval", def.StatusInterval)

	c := Config{
		NumSteps:       v.GetInt("solver.num_steps"),
		Order:          v.GetInt("solver.order"),
		SkipType:       SkipType(v.GetString("solver.skip_type")),
		Method:         strings.ToLower(v.GetString("solver.method")),
		Solver:         strings.ToLower(v.GetString("solver.solver")),
		Shift:          v.GetFloat64("solver.shift"),
		Precision:      Precision(strings.ToLower(v.GetString("solver.precision"))),
		StatusInterval: v.GetDuration("solver.status_interval"),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ConfigFromMap decodes pipeline options (as passed around by generation
// front-ends) on top of DefaultConfig. Unknown keys are rejected.
func ConfigFromMap(opts map[string]interface{}) (Config, error) {
	c := DefaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &c,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(opts); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
