package fmsolvers

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DPMUpdater is the data prediction DPM-Solver++ exponential integrator.
//
// With σ(t) = t, α(t) = 1 − t and h = λ(T) − λ(S), the order 1 update is
//
//	x_T = (σ_T/σ_S)·x_S − α_T·(e^{−h} − 1)·x̂0(S)
//
// which equals an Euler step on the linear flow path. Higher orders add
// divided differences of x̂0 in λ, either from the run history (Multistep)
// or from extra evaluations inside the interval (Singlestep).
//
// λ is infinite at t = 1, so multistep updates whose history starts there
// integrate x̂0 in ρ = (1 − t)/t instead (see rhoIntegrate).
type DPMUpdater struct {
	Method Method
}

func (u DPMUpdater) String() string {
	return "dpm-" + string(u.method())
}

func (u DPMUpdater) method() Method {
	if u.Method == "" {
		return Multistep
	}
	return u.Method
}

// ExtraEvaluations implements StepUpdater.
func (u DPMUpdater) ExtraEvaluations(order int) int {
	if u.method() == Singlestep && order > 1 {
		return order - 1
	}
	return 0
}

// Advance implements StepUpdater.
func (u DPMUpdater) Advance(ctx context.Context, st Step) (*Tensor, error) {
	if st.S == st.T {
		return st.Sample.Clone(), nil
	}
	if u.method() == Singlestep {
		return u.singlestep(ctx, st)
	}
	return u.multistep(st)
}

func (u DPMUpdater) multistep(st Step) (*Tensor, error) {
	hist := st.History
	n := len(hist)
	cur := hist[n-1]
	order := stepOrder(st.Order, hist, st.T)
	if pts := hist[n-order:]; order > 1 && anchored(pts, st.T) {
		return rhoIntegrate(pts, st.T)
	}
	order = usableOrder(order, hist)

	ls, lt := cur.Lambda, lambda(st.T)
	h := lt - ls
	ratio := sigma(st.T) / sigma(st.S)
	at := alpha(st.T)
	em := math.Expm1(-h)
	m0 := cur.Denoised

	switch order {
	case 1:
		return combine([]float64{ratio, -at * em}, st.Sample, m0), nil
	case 2:
		prev := hist[n-2]
		r0 := (ls - prev.Lambda) / h
		d1 := m0.Sub(prev.Denoised).Scaled(1 / r0)
		return combine([]float64{ratio, -at * em, -0.5 * at * em}, st.Sample, m0, d1), nil
	}
	p1, p2 := hist[n-2], hist[n-3]
	r0 := (ls - p1.Lambda) / h
	r1 := (p1.Lambda - p2.Lambda) / h
	d10 := m0.Sub(p1.Denoised).Scaled(1 / r0)
	d11 := p1.Denoised.Sub(p2.Denoised).Scaled(1 / r1)
	diff := d10.Sub(d11)
	d1 := d10.Clone().AddScaled(r0/(r0+r1), diff)
	d2 := diff.Scaled(1 / (r0 + r1))
	phi2 := em/h + 1
	phi3 := phi2/h - 0.5
	return combine([]float64{ratio, -at * em, at * phi2, -2 * at * phi3}, st.Sample, m0, d1, d2), nil
}

// anchored reports whether pts starts with the evaluation at t = 1 and every
// later point lies strictly inside the interval.
func anchored(pts []HistoryEntry, t float64) bool {
	if len(pts) < 2 || t <= 0 || pts[0].T < 1 {
		return false
	}
	for _, e := range pts[1:] {
		if e.T >= 1 {
			return false
		}
	}
	return true
}

// rhoIntegrate advances the sample at pts[0].T = 1 to t using
//
//	x_t = t·x_1 + t·∫₀^ρ(t) x̂0 dρ,  ρ = (1 − t)/t
//
// with x̂0 interpolated through pts in ρ. The sample at t = 1 is recovered
// from its evaluation as x̂0 − v.
func rhoIntegrate(pts []HistoryEntry, t float64) (*Tensor, error) {
	m := len(pts)
	a := mat.NewDense(m, m, nil)
	b := mat.NewVecDense(m, nil)
	rt := rho(t)
	for k := 0; k < m; k++ {
		for j, e := range pts {
			a.Set(k, j, math.Pow(rho(e.T), float64(k)))
		}
		b.SetVec(k, math.Pow(rt, float64(k+1))/float64(k+1))
	}
	var w mat.VecDense
	if err := w.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("rho quadrature weights: %w", err)
	}

	first := pts[0]
	coefs := []float64{t}
	terms := []*Tensor{first.Denoised.Clone().AddScaled(-first.T, first.Velocity)}
	for j, e := range pts {
		coefs = append(coefs, t*w.AtVec(j))
		terms = append(terms, e.Denoised)
	}
	return combine(coefs, terms...), nil
}

// singlestep evaluates the model at interior λ fractions of the interval
// (1/2 for order 2, 1/3 and 2/3 for order 3).
func (u DPMUpdater) singlestep(ctx context.Context, st Step) (*Tensor, error) {
	cur := st.current()
	x := st.Sample
	s, t := st.S, st.T
	ls := cur.Lambda
	h := lambda(t) - ls
	m0 := cur.Denoised
	order := st.Order
	if math.IsInf(h, 0) || math.IsNaN(h) {
		order = 1
	}

	switch order {
	case 1:
		return combine([]float64{t / s, -alpha(t) * math.Expm1(-h)}, x, m0), nil
	case 2:
		const r1 = 0.5
		s1 := timeFromLambda(ls + r1*h)
		x1 := combine([]float64{s1 / s, -alpha(s1) * math.Expm1(-r1*h)}, x, m0)
		m1, err := u.denoised(ctx, st.Eval, x1, s1)
		if err != nil {
			return nil, err
		}
		em := math.Expm1(-h)
		return combine([]float64{t / s, -alpha(t) * em, -0.5 / r1 * alpha(t) * em}, x, m0, m1.Sub(m0)), nil
	}

	const r1, r2 = 1.0 / 3, 2.0 / 3
	s1 := timeFromLambda(ls + r1*h)
	s2 := timeFromLambda(ls + r2*h)
	p11 := math.Expm1(-r1 * h)
	p12 := math.Expm1(-r2 * h)
	p1 := math.Expm1(-h)
	p22 := p12/(r2*h) + 1
	p2 := p1/h + 1

	x1 := combine([]float64{s1 / s, -alpha(s1) * p11}, x, m0)
	m1, err := u.denoised(ctx, st.Eval, x1, s1)
	if err != nil {
		return nil, err
	}
	x2 := combine([]float64{s2 / s, -alpha(s2) * p12, r2 / r1 * alpha(s2) * p22}, x, m0, m1.Sub(m0))
	m2, err := u.denoised(ctx, st.Eval, x2, s2)
	if err != nil {
		return nil, err
	}
	return combine([]float64{t / s, -alpha(t) * p1, 1 / r2 * alpha(t) * p2}, x, m0, m2.Sub(m0)), nil
}

func (u DPMUpdater) denoised(ctx context.Context, eval Evaluator, x *Tensor, t float64) (*Tensor, error) {
	v, err := eval(ctx, x, t)
	if err != nil {
		return nil, err
	}
	return denoise(x, t, v), nil
}
