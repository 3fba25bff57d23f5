package fmsolvers

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestPrecisionRound(t *testing.T) {
	third := 1.0 / 3
	exact := Float64.Round(Vector(third))
	if exact.Data()[0] != third {
		t.Fatal("float64 must not round")
	}
	var prevErr float64
	for _, p := range []Precision{Float32, Float16, BFloat16} {
		r := p.Round(Vector(third, 1, -2, 0))
		if !floats.Equal(r.Data()[1:], []float64{1, -2, 0}) {
			t.Fatalf("%s: representable values changed: %v", p, r.Data())
		}
		e := math.Abs(r.Data()[0] - third)
		if e == 0 || e <= prevErr {
			t.Fatalf("%s: rounding error %g should exceed %g", p, e, prevErr)
		}
		if e > 4e-3 {
			t.Fatalf("%s: rounding error %g too large", p, e)
		}
		prevErr = e
	}
	if Precision("int4").Valid() || !Precision("").Valid() {
		t.Fatal("incorrect precision validation")
	}
}

func TestReducedPrecisionSampling(t *testing.T) {
	conf := Config{NumSteps: 20, Order: 2, SkipType: TimeUniform}
	ref, _ := NewSampler(testFlow, conf)
	exp, err := ref.Run(context.Background(), testNoise, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []Precision{Float32, Float16, BFloat16} {
		conf.Precision = p
		s, _ := NewSampler(testFlow, conf)
		y, err := s.Run(context.Background(), testNoise, nil)
		if err != nil {
			t.Fatalf("%s: %s", p, err)
		}
		if d := y.MaxAbsDiff(exp); d > 2e-2 {
			t.Fatalf("%s: sample drifted by %g", p, d)
		}
	}
}

func TestReducedPrecisionOverflow(t *testing.T) {
	huge := VelocityFunc(func(_ context.Context, x *Tensor, _ float64, _ Conditioning) (*Tensor, error) {
		v := ZerosLike(x)
		for i := range v.data {
			v.data[i] = 1e5
		}
		return v, nil
	})
	conf := Config{NumSteps: 4, Order: 1, SkipType: TimeUniform, Precision: Float16}
	s, _ := NewSampler(huge, conf)
	if _, err := s.Run(context.Background(), Vector(1, 2), nil); !errors.Is(err, ErrModelEvaluation) {
		t.Fatalf("a velocity beyond the float16 range must fail the evaluation, got %v", err)
	}
	conf.Precision = Float32
	s, _ = NewSampler(huge, conf)
	if _, err := s.Run(context.Background(), Vector(1, 2), nil); err != nil {
		t.Fatalf("float32 holds the same velocity: %s", err)
	}
}
