package fmsolvers

import (
	"context"
	"errors"
	"fmt"
)

// Conditioning is the opaque conditioning payload forwarded to the model
// (text embeddings, reference image latents, guidance settings...).
type Conditioning interface{}

// VelocityModel predicts the flow velocity at (x, t). The returned tensor must
// have the shape of x. Implementations are treated as pure functions.
type VelocityModel interface {
	Velocity(ctx context.Context, x *Tensor, t float64, cond Conditioning) (*Tensor, error)
}

// VelocityFunc adapts a function to VelocityModel.
type VelocityFunc func(ctx context.Context, x *Tensor, t float64, cond Conditioning) (*Tensor, error)

// Velocity implements VelocityModel.
func (f VelocityFunc) Velocity(ctx context.Context, x *Tensor, t float64, cond Conditioning) (*Tensor, error) {
	return f(ctx, x, t, cond)
}

var (
	errNilVelocity     = errors.New("model returned no velocity")
	errNonFiniteOutput = errors.New("model returned non-finite values")
)

// checkVelocity validates a model output against the sample it was evaluated at.
func checkVelocity(x, v *Tensor) error {
	if v == nil {
		return errNilVelocity
	}
	if !v.SameShape(x) {
		return fmt.Errorf("model returned shape %v for input shape %v", v.shape, x.shape)
	}
	if !v.IsFinite() {
		return errNonFiniteOutput
	}
	return nil
}
