package fmsolvers

import (
	"context"
	"fmt"
)

// Family selects the step update algorithm.
type Family uint8

const (
	// DPM is the DPM-Solver++ exponential integrator.
	DPM Family = iota + 1
	// UniPC is the unified predictor-corrector.
	UniPC
)

func (f Family) String() string {
	switch f {
	case DPM:
		return "dpm"
	case UniPC:
		return "unipc"
	default:
		panic(fmt.Sprintf("unknown solver family %d", f))
	}
}

// ParseFamily returns the family named s.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "dpm", "dpm++", "dpmpp":
		return DPM, nil
	case "unipc":
		return UniPC, nil
	}
	return 0, &ConfigError{Field: "solver", Value: s, Reason: "expected dpm or unipc"}
}

// Method selects how a DPM step gathers its higher order information.
type Method string

const (
	// Multistep reuses previous evaluations: one model call per step.
	Multistep Method = "multistep"
	// Singlestep evaluates the model at interior points of each step.
	Singlestep Method = "singlestep"
)

// Evaluator evaluates the velocity model at (x, t) for the current run.
type Evaluator func(ctx context.Context, x *Tensor, t float64) (*Tensor, error)

// Step carries everything an updater needs to advance one interval.
type Step struct {
	Index   int
	Sample  *Tensor // sample at S
	S, T    float64 // from, to
	Order   int     // effective order, already clamped by EffectiveOrder
	History []HistoryEntry
	Eval    Evaluator
}

// current returns the evaluation at (Sample, S), which the driver always pushes last.
func (s Step) current() HistoryEntry {
	return s.History[len(s.History)-1]
}

// StepUpdater advances a sample from S to T.
type StepUpdater interface {
	Advance(ctx context.Context, step Step) (*Tensor, error)
	// ExtraEvaluations is the number of model calls made per step beyond the driver's.
	ExtraEvaluations(order int) int
	fmt.Stringer
}

// NewUpdater returns the step updater selected by the configuration.
func NewUpdater(conf Config) (StepUpdater, error) {
	fam, err := ParseFamily(conf.Solver)
	if err != nil {
		return nil, err
	}
	switch fam {
	case UniPC:
		if Method(conf.Method) == Singlestep {
			return nil, &ConfigError{Field: "method", Value: conf.Method, Reason: "unipc only supports multistep"}
		}
		return UniPCUpdater{}, nil
	default:
		return DPMUpdater{Method: Method(conf.Method)}, nil
	}
}
