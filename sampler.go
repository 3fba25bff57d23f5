// Package fmsolvers integrates the reverse-time ODE of flow-matching generative
// models. Starting from a noise sample at t = 1 it repeatedly queries a velocity
// model and advances the sample with a DPM-Solver++ or UniPC step until t = 0.
package fmsolvers

import (
	"fmt"

	kitlog "github.com/go-kit/kit/log"
)

// Option configures a Sampler.
type Option func(*Sampler)

// WithLogger sets the logger. Samplers are silent by default.
func WithLogger(l kitlog.Logger) Option {
	return func(s *Sampler) {
		s.logger = l
	}
}

// WithUpdater replaces the step updater selected by the configuration.
func WithUpdater(u StepUpdater) Option {
	return func(s *Sampler) {
		s.updater = u
	}
}

// WithExport streams every step of every run to a CSV file.
func WithExport(conf ExportConfig) Option {
	return func(s *Sampler) {
		s.export = conf
	}
}

// Sampler holds a validated configuration, its schedule and its updater.
// It is immutable once built, so one Sampler may serve concurrent runs.
type Sampler struct {
	model    VelocityModel
	conf     Config
	schedule Schedule
	updater  StepUpdater
	logger   kitlog.Logger
	export   ExportConfig
}

// NewSampler validates conf, builds the timestep schedule and selects the step updater.
func NewSampler(model VelocityModel, conf Config, opts ...Option) (*Sampler, error) {
	if model == nil {
		return nil, &ConfigError{Field: "model", Value: nil, Reason: "a velocity model is required"}
	}
	conf = conf.withDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	sched, err := GenerateSchedule(conf.NumSteps, conf.SkipType, conf.Shift)
	if err != nil {
		return nil, err
	}
	s := &Sampler{model: model, conf: conf, schedule: sched, logger: kitlog.NewNopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.updater == nil {
		if s.updater, err = NewUpdater(conf); err != nil {
			return nil, err
		}
	}
	s.logger = kitlog.With(s.logger, "solver", s.updater.String())
	return s, nil
}

// Config returns the validated configuration.
func (s *Sampler) Config() Config {
	return s.conf
}

// TimeSteps returns a copy of the schedule: num_steps+1 timestamps from 1 to 0.
func (s *Sampler) TimeSteps() []float64 {
	return s.schedule.Copy()
}

// Updater returns the step updater in use.
func (s *Sampler) Updater() StepUpdater {
	return s.updater
}

// ExpectedEvaluations returns the number of model calls a complete run makes.
func (s *Sampler) ExpectedEvaluations() int {
	n := s.conf.NumSteps
	total := 0
	for i := 0; i < n; i++ {
		total += 1 + s.updater.ExtraEvaluations(EffectiveOrder(s.conf.Order, i, n-i))
	}
	return total
}

func (s *Sampler) String() string {
	return fmt.Sprintf("Sampler(%s)", s.conf)
}
