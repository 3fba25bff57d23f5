package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/Wan-Video/fmsolvers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// A scenario is a TOML file such as:
//
//	[solver]
//	num_steps = 20
//	order = 2
//	solver = "unipc"
//
//	[model]
//	kind = "gaussian" # or "decay"
//	mean = 0.7
//	std = 0.3
//
//	[noise]
//	shape = [4, 16, 16]
//	seed = 42
//
//	[export]
//	filename = "gauss"
//	dir = "out"
var runCmd = &cobra.Command{
	Use:   "run SCENARIO",
	Short: "Sample an analytic model as described by a scenario TOML file",
	Args:  cobra.ExactArgs(1),
	RunE:  RunHandler,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// RunHandler reads the scenario, samples and reports the error against the closed form.
func RunHandler(cmd *cobra.Command, args []string) error {
	scenario := args[0]
	v := viper.New()
	v.AddConfigPath(filepath.Dir(scenario))
	v.SetConfigName(strings.TrimSuffix(filepath.Base(scenario), ".toml"))
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%s: %w", scenario, err)
	}
	conf, err := fmsolvers.ConfigFromViper(v)
	if err != nil {
		return err
	}
	model, err := modelFromViper(v)
	if err != nil {
		return err
	}

	v.SetDefault("noise.shape", []int{16})
	noise, err := fmsolvers.NewNoise(v.GetIntSlice("noise.shape"), uint64(v.GetInt64("noise.seed")))
	if err != nil {
		return err
	}

	opts := []fmsolvers.Option{fmsolvers.WithLogger(logger("run"))}
	if v.IsSet("export.filename") {
		opts = append(opts, fmsolvers.WithExport(fmsolvers.ExportConfig{
			Filename:  v.GetString("export.filename"),
			Dir:       v.GetString("export.dir"),
			AsCSV:     true,
			Timestamp: v.GetBool("export.timestamp"),
		}))
	}
	sampler, err := fmsolvers.NewSampler(model, conf, opts...)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()
	out, err := sampler.Run(ctx, noise, nil)
	if err != nil {
		return err
	}
	exact := model.ExactAt(noise, 0)
	fmt.Printf("%s\n", sampler)
	fmt.Printf("model evaluations: %d\n", sampler.ExpectedEvaluations())
	fmt.Printf("max abs error:     %.3e\n", out.MaxAbsDiff(exact))
	fmt.Printf("relative error:    %.3e\n", out.Sub(exact).Norm()/exact.Norm())
	return nil
}

func modelFromViper(v *viper.Viper) (fmsolvers.ClosedForm, error) {
	v.SetDefault("model.kind", "gaussian")
	v.SetDefault("model.mean", 0.7)
	v.SetDefault("model.std", 0.3)
	v.SetDefault("model.rate", 1.0)
	switch kind := v.GetString("model.kind"); kind {
	case "gaussian":
		return fmsolvers.GaussianFlow{Mean: v.GetFloat64("model.mean"), Std: v.GetFloat64("model.std")}, nil
	case "decay":
		return fmsolvers.ExponentialDecay{Rate: v.GetFloat64("model.rate")}, nil
	default:
		return nil, fmt.Errorf("unknown model kind `%s`", kind)
	}
}
