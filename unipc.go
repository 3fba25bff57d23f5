package fmsolvers

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// UniPCUpdater is the unified predictor-corrector (bh2 variant, data prediction).
// Each step predicts x_T with a multistep DPM-Solver++ update one order below
// the step order, evaluates the model once at the predicted point and corrects
// with that evaluation at the full order. This costs exactly one more model
// call per step than DPMUpdater in multistep mode.
type UniPCUpdater struct{}

func (UniPCUpdater) String() string { return "unipc-bh2" }

// ExtraEvaluations implements StepUpdater.
func (UniPCUpdater) ExtraEvaluations(int) int { return 1 }

// unipcCoefficients holds the per step quantities shared by predictor and corrector.
type unipcCoefficients struct {
	hphi1, bh float64
	r         *mat.Dense // order × order
	b         []float64
	d1s       []*Tensor // scaled differences to the older history points, newest first
}

func newUniPCCoefficients(hist []HistoryEntry, lt float64, order int) unipcCoefficients {
	n := len(hist)
	cur := hist[n-1]
	h := lt - cur.Lambda
	rks := make([]float64, 0, order)
	var c unipcCoefficients
	for i := 1; i < order; i++ {
		prev := hist[n-1-i]
		rk := (prev.Lambda - cur.Lambda) / h
		rks = append(rks, rk)
		c.d1s = append(c.d1s, prev.Denoised.Sub(cur.Denoised).Scaled(1/rk))
	}
	rks = append(rks, 1)

	hh := -h
	c.hphi1 = math.Expm1(hh)
	c.bh = math.Expm1(hh)
	hphik := c.hphi1/hh - 1
	fac := 1.0
	c.r = mat.NewDense(order, order, nil)
	for i := 1; i <= order; i++ {
		for j, rk := range rks {
			c.r.Set(i-1, j, math.Pow(rk, float64(i-1)))
		}
		c.b = append(c.b, hphik*fac/c.bh)
		fac *= float64(i + 1)
		hphik = hphik/hh - 1/fac
	}
	return c
}

// rhos solves the leading k×k block of R·ρ = b.
func (c unipcCoefficients) rhos(k int) ([]float64, error) {
	a := c.r.Slice(0, k, 0, k)
	var x mat.VecDense
	if err := x.SolveVec(a, mat.NewVecDense(k, append([]float64(nil), c.b[:k]...))); err != nil {
		return nil, fmt.Errorf("unipc coefficients: %w", err)
	}
	out := make([]float64, k)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// Advance implements StepUpdater.
func (u UniPCUpdater) Advance(ctx context.Context, st Step) (*Tensor, error) {
	if st.S == st.T {
		return st.Sample.Clone(), nil
	}
	hist := st.History
	order := stepOrder(st.Order, hist, st.T)
	t := st.T

	// Predictor: DPM-Solver++ one order below the corrector.
	pst := st
	pst.Order = max(1, order-1)
	pred, err := DPMUpdater{}.multistep(pst)
	if err != nil {
		return nil, err
	}
	v, err := st.Eval(ctx, pred, t)
	if err != nil {
		return nil, err
	}
	cur := st.current()
	if t == 0 {
		// x̂0 is the sample itself at t = 0: correct with the trapezoidal rule on v.
		return combine([]float64{1, st.S / 2, st.S / 2}, st.Sample, cur.Velocity, v), nil
	}
	mt := denoise(pred, t, v)

	if pts := hist[len(hist)-order:]; order > 1 && anchored(pts, t) {
		pts = append(append([]HistoryEntry(nil), pts...), HistoryEntry{T: t, Lambda: lambda(t), Velocity: v, Denoised: mt})
		return rhoIntegrate(pts, t)
	}

	// Corrector.
	order = usableOrder(order, hist)
	at := alpha(t)
	c := newUniPCCoefficients(hist, lambda(t), order)
	m0 := cur.Denoised
	base := combine([]float64{sigma(t) / sigma(st.S), -at * c.hphi1}, st.Sample, m0)
	rhosC := []float64{0.5}
	if order > 1 {
		if rhosC, err = c.rhos(order); err != nil {
			return nil, err
		}
	}
	corr := mt.Sub(m0).Scaled(rhosC[order-1])
	if order > 1 {
		corr.AddScaled(1, combine(rhosC[:order-1], c.d1s...))
	}
	return base.AddScaled(-at*c.bh, corr), nil
}
