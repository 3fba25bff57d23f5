package fmsolvers

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned for an invalid solver configuration.
	ErrConfig = errors.New("fmsolvers: invalid configuration")
	// ErrModelEvaluation is returned when the velocity model fails or returns an unusable output.
	ErrModelEvaluation = errors.New("fmsolvers: model evaluation failed")
	// ErrNonFiniteState is returned when a step produces NaN or ±Inf.
	ErrNonFiniteState = errors.New("fmsolvers: non-finite state")
	// ErrStopped is returned when a run was stopped before completion.
	ErrStopped = errors.New("fmsolvers: run stopped")
)

// ConfigError describes a rejected configuration field.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("fmsolvers: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap returns ErrConfig.
func (e *ConfigError) Unwrap() error { return ErrConfig }

// ModelEvaluationError wraps a failure of the velocity model.
type ModelEvaluationError struct {
	Step int
	T    float64
	Err  error
}

func (e *ModelEvaluationError) Error() string {
	return fmt.Sprintf("fmsolvers: model evaluation at step %d (t=%g): %v", e.Step, e.T, e.Err)
}

// Unwrap allows both errors.Is(err, ErrModelEvaluation) and matching the cause.
func (e *ModelEvaluationError) Unwrap() []error { return []error{ErrModelEvaluation, e.Err} }

// NonFiniteStateError is returned when the updated sample contains NaN or ±Inf.
type NonFiniteStateError struct {
	Step     int
	Order    int
	From, To float64
}

func (e *NonFiniteStateError) Error() string {
	return fmt.Sprintf("fmsolvers: non-finite state after step %d (order %d, t %g -> %g)", e.Step, e.Order, e.From, e.To)
}

// Unwrap returns ErrNonFiniteState.
func (e *NonFiniteStateError) Unwrap() error { return ErrNonFiniteState }
