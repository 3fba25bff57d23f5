package fmsolvers

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

const (
	// lambdaEps bounds the logSNR schedule away from the singular endpoints.
	lambdaEps = 1e-3
	// lambdaTol is the smallest λ gap a finite difference may be anchored on.
	lambdaTol = 1e-12
)

// sigma returns σ(t) = t, the noise scale of the linear flow path.
func sigma(t float64) float64 {
	return t
}

// alpha returns α(t) = 1 − t, the signal scale of the linear flow path.
func alpha(t float64) float64 {
	return 1 - t
}

// lambda returns the half log-SNR λ(t) = log(α/σ). It is −Inf at t = 1 and +Inf at t = 0.
func lambda(t float64) float64 {
	switch {
	case t >= 1:
		return math.Inf(-1)
	case t <= 0:
		return math.Inf(1)
	}
	return math.Log1p(-t) - math.Log(t)
}

// rho returns e^λ = α/σ.
func rho(t float64) float64 {
	return alpha(t) / sigma(t)
}

// timeFromLambda inverts lambda.
func timeFromLambda(l float64) float64 {
	switch {
	case math.IsInf(l, -1):
		return 1
	case math.IsInf(l, 1):
		return 0
	}
	if l > 0 {
		e := math.Exp(-l)
		return e / (1 + e)
	}
	return 1 / (1 + math.Exp(l))
}

// denoise returns the clean-data prediction x + t·v.
func denoise(x *Tensor, t float64, v *Tensor) *Tensor {
	return x.Clone().AddScaled(t, v)
}

// usableGap reports whether two λ values can anchor a finite difference.
func usableGap(a, b float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) || math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return !scalar.EqualWithinAbs(a, b, lambdaTol)
}

// timeShift applies the flow shift t' = s·t / (1 + (s−1)·t).
func timeShift(shift, t float64) float64 {
	if shift == 1 {
		return t
	}
	return shift * t / (1 + (shift-1)*t)
}
