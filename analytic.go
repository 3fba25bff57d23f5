package fmsolvers

import (
	"context"
	"math"
)

// ClosedForm is a velocity model whose ODE solution is known exactly.
type ClosedForm interface {
	VelocityModel
	// ExactAt returns the solution at t of the trajectory starting at x1 at t = 1.
	ExactAt(x1 *Tensor, t float64) *Tensor
}

// ExponentialDecay is the linear model v = −Rate·x. Integrating from t = 1 to
// t = 0 scales the sample by e^{−Rate}.
type ExponentialDecay struct {
	Rate float64
}

// Velocity implements VelocityModel.
func (m ExponentialDecay) Velocity(_ context.Context, x *Tensor, _ float64, _ Conditioning) (*Tensor, error) {
	return x.Scaled(-m.Rate), nil
}

// ExactAt implements ClosedForm.
func (m ExponentialDecay) ExactAt(x1 *Tensor, t float64) *Tensor {
	return x1.Scaled(math.Exp(m.Rate * (t - 1)))
}

// GaussianFlow is the exact velocity of the linear flow path when the data
// distribution is the isotropic normal N(Mean, Std²). Noise x1 maps to Mean + Std·x1.
type GaussianFlow struct {
	Mean, Std float64
}

func (m GaussianFlow) spread(t float64) float64 {
	a := alpha(t)
	return math.Sqrt(a*a*m.Std*m.Std + t*t)
}

// Velocity implements VelocityModel.
func (m GaussianFlow) Velocity(_ context.Context, x *Tensor, t float64, _ Conditioning) (*Tensor, error) {
	a := alpha(t)
	s2 := a*a*m.Std*m.Std + t*t
	k := (t - a*m.Std*m.Std) / s2
	v := ZerosLike(x)
	for i, xi := range x.data {
		v.data[i] = m.Mean - k*(xi-a*m.Mean)
	}
	return v, nil
}

// ExactAt implements ClosedForm.
func (m GaussianFlow) ExactAt(x1 *Tensor, t float64) *Tensor {
	out := x1.Scaled(m.spread(t) / m.spread(1))
	for i := range out.data {
		out.data[i] += alpha(t) * m.Mean
	}
	return out
}
