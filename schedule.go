package fmsolvers

import (
	"fmt"
	"math"
)

// SkipType selects the spacing of the timestep schedule.
type SkipType string

const (
	// TimeUniform spaces timesteps evenly in t.
	TimeUniform SkipType = "time_uniform"
	// TimeQuadratic concentrates timesteps near the noise end (t = 1).
	TimeQuadratic SkipType = "time_quadratic"
	// LogSNR spaces timesteps evenly in the half log-SNR λ.
	LogSNR SkipType = "logSNR"
)

// SkipTypes lists the supported schedule spacings.
var SkipTypes = []SkipType{TimeUniform, TimeQuadratic, LogSNR}

// Valid reports whether the skip type is known.
func (s SkipType) Valid() bool {
	for _, k := range SkipTypes {
		if s == k {
			return true
		}
	}
	return false
}

// Schedule is a strictly decreasing sequence of timestamps from 1.0 down to 0.0.
type Schedule []float64

// Steps returns the number of integration intervals.
func (s Schedule) Steps() int {
	return len(s) - 1
}

// Interval returns the (from, to) pair of step i.
func (s Schedule) Interval(i int) (from, to float64) {
	return s[i], s[i+1]
}

// Copy returns an independent copy of the schedule.
func (s Schedule) Copy() Schedule {
	return append(Schedule(nil), s...)
}

// GenerateSchedule returns numSteps+1 timestamps spaced according to skip, then
// warped by the flow shift. The first value is exactly 1 and the last exactly 0.
// A shift so extreme that neighbouring timestamps round to the same value is rejected.
func GenerateSchedule(numSteps int, skip SkipType, shift float64) (Schedule, error) {
	if numSteps < 1 {
		return nil, &ConfigError{Field: "num_steps", Value: numSteps, Reason: "must be at least 1"}
	}
	if shift <= 0 || math.IsNaN(shift) || math.IsInf(shift, 0) {
		return nil, &ConfigError{Field: "shift", Value: shift, Reason: "must be a positive finite number"}
	}
	n := float64(numSteps)
	s := make(Schedule, numSteps+1)
	switch skip {
	case TimeUniform:
		for i := range s {
			s[i] = 1 - float64(i)/n
		}
	case TimeQuadratic:
		for i := range s {
			r := float64(i) / n
			s[i] = 1 - r*r
		}
	case LogSNR:
		lo, hi := lambda(1-lambdaEps), lambda(lambdaEps)
		for i := range s {
			s[i] = timeFromLambda(lo + (hi-lo)*float64(i)/n)
		}
	default:
		return nil, &ConfigError{Field: "skip_type", Value: skip, Reason: fmt.Sprintf("unknown skip type, expected one of %v", SkipTypes)}
	}
	for i := range s {
		s[i] = timeShift(shift, s[i])
	}
	s[0], s[numSteps] = 1, 0
	for i := 1; i < len(s); i++ {
		if s[i] >= s[i-1] {
			return nil, &ConfigError{Field: "shift", Value: shift, Reason: fmt.Sprintf("timestamps %d and %d collapse to %g", i-1, i, s[i])}
		}
	}
	return s, nil
}
