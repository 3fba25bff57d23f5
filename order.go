package fmsolvers

import "math"

// MaxOrder is the highest supported solver order.
const MaxOrder = 3

// maxThirdOrderStep is the largest λ step a multistep update takes at order 3.
const maxThirdOrderStep = 0.65

// EffectiveOrder returns the order a step may use: the configured order, limited
// by the evaluations available so far and by the steps remaining, so that the
// final step always runs at order 1.
func EffectiveOrder(configured, stepsDone, stepsRemaining int) int {
	o := configured
	if stepsDone+1 < o {
		o = stepsDone + 1
	}
	if stepsRemaining < o {
		o = stepsRemaining
	}
	if o < 1 {
		o = 1
	}
	return o
}

// usableOrder lowers order until every history point used as a finite
// difference anchor has a finite λ distinct from its neighbour.
// entries are oldest first and the newest entry is the current point.
func usableOrder(order int, entries []HistoryEntry) int {
	if order > len(entries) {
		order = len(entries)
	}
	n := len(entries)
	usable := 1
	for k := 1; k < order; k++ {
		if !usableGap(entries[n-1-k].Lambda, entries[n-k].Lambda) {
			break
		}
		usable++
	}
	if usable < 1 {
		usable = 1
	}
	return usable
}

// stepOrder clamps order to the history and drops order 3 to 2 when the
// step into t spans more than maxThirdOrderStep in λ.
func stepOrder(order int, entries []HistoryEntry, t float64) int {
	if order > len(entries) {
		order = len(entries)
	}
	h := lambda(t) - entries[len(entries)-1].Lambda
	if order >= 3 && !math.IsInf(h, 0) && !math.IsNaN(h) && h > maxThirdOrderStep {
		order = 2
	}
	return order
}
