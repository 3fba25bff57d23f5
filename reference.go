package fmsolvers

import (
	"context"
	"fmt"
	"math"

	"github.com/ChristopherRabotin/ode"
)

// referenceFlow is an ode.Integrable over τ = 1 − t. The state is the
// flattened sample followed by τ itself, so dx/dτ = v(x, 1 − τ).
type referenceFlow struct {
	ctx   context.Context
	model VelocityModel
	cond  Conditioning
	shape []int
	state []float64
	steps int
	done  int
	err   error
}

// GetState gets the state.
func (e *referenceFlow) GetState() []float64 {
	return append([]float64(nil), e.state...)
}

// SetState sets the next state.
func (e *referenceFlow) SetState(_ float64, s []float64) {
	copy(e.state, s)
	e.done++
}

// Stop returns whether we should stop the integration.
func (e *referenceFlow) Stop(_ float64) bool {
	return e.err != nil || e.done >= e.steps || e.ctx.Err() != nil
}

// Func returns the derivative of the augmented state.
func (e *referenceFlow) Func(_ float64, f []float64) (fDot []float64) {
	n := len(f) - 1
	fDot = make([]float64, len(f))
	fDot[n] = 1
	if e.err != nil {
		return
	}
	t := math.Max(0, math.Min(1, 1-f[n]))
	x := &Tensor{shape: e.shape, data: append([]float64(nil), f[:n]...)}
	v, err := e.model.Velocity(e.ctx, x, t, e.cond)
	if err == nil {
		err = checkVelocity(x, v)
	}
	if err != nil {
		e.err = &ModelEvaluationError{Step: e.done, T: t, Err: err}
		return
	}
	copy(fDot[:n], v.data)
	return
}

// ReferenceSolution integrates the sampling ODE from t = 1 to t = 0 with
// classical fixed step RK4 (4 model calls per step). It is meant as a ground
// truth for models without a closed form.
func ReferenceSolution(ctx context.Context, model VelocityModel, x *Tensor, cond Conditioning, steps int) (*Tensor, error) {
	if steps < 1 {
		return nil, &ConfigError{Field: "steps", Value: steps, Reason: "must be at least 1"}
	}
	if x == nil || !x.IsFinite() {
		return nil, &NonFiniteStateError{Step: 0, From: 1, To: 1}
	}
	e := &referenceFlow{
		ctx:   ctx,
		model: model,
		cond:  cond,
		shape: x.Shape(),
		state: append(append([]float64(nil), x.data...), 0),
		steps: steps,
	}
	ode.NewRK4(0, 1/float64(steps), e).Solve() // Blocking.
	if e.err != nil {
		return nil, e.err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStopped, err)
	}
	out := &Tensor{shape: e.shape, data: e.state[:len(e.state)-1]}
	if !out.IsFinite() {
		return nil, &NonFiniteStateError{Step: e.done, Order: 4, From: 1, To: 0}
	}
	return out, nil
}
