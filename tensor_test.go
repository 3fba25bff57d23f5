package fmsolvers

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestNewTensor(t *testing.T) {
	if _, err := NewTensor([]int{2, 3}, make([]float64, 5)); err == nil {
		t.Fatal("expected an error on data length mismatch")
	}
	if _, err := NewTensor([]int{2, 0}, nil); err == nil {
		t.Fatal("expected an error on zero dimension")
	}
	if _, err := NewTensor(nil, nil); err == nil {
		t.Fatal("expected an error on empty shape")
	}
	x, err := NewTensor([]int{2, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if x.Len() != 6 || x.Norm() != 0 {
		t.Fatalf("incorrect zero tensor %s", x)
	}
	shape := x.Shape()
	shape[0] = 10
	if x.Shape()[0] != 2 {
		t.Fatal("Shape must return a copy")
	}
}

func TestTensorArithmetic(t *testing.T) {
	a := Vector(1, 2, 3)
	b := Vector(4, 5, 6)
	c := a.Clone().AddScaled(2, b)
	if !floats.Equal(c.Data(), []float64{9, 12, 15}) {
		t.Fatalf("incorrect AddScaled %v", c.Data())
	}
	if !floats.Equal(a.Data(), []float64{1, 2, 3}) {
		t.Fatal("Clone shares data")
	}
	if d := b.Sub(a); !floats.Equal(d.Data(), []float64{3, 3, 3}) {
		t.Fatalf("incorrect Sub %v", d.Data())
	}
	if s := a.Scaled(-1); !floats.Equal(s.Data(), []float64{-1, -2, -3}) {
		t.Fatalf("incorrect Scaled %v", s.Data())
	}
	m := combine([]float64{0.5, -1}, a, b)
	if !floats.Equal(m.Data(), []float64{-3.5, -4, -4.5}) {
		t.Fatalf("incorrect combine %v", m.Data())
	}
	if !scalar.EqualWithinAbs(a.MaxAbsDiff(b), 3, 1e-15) {
		t.Fatal("incorrect MaxAbsDiff")
	}
	if !scalar.EqualWithinAbs(Vector(3, 4).Norm(), 5, 1e-15) {
		t.Fatal("incorrect Norm")
	}
}

func TestTensorFinite(t *testing.T) {
	if !Vector(1, -1e300).IsFinite() {
		t.Fatal("finite tensor reported as non-finite")
	}
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if Vector(0, bad).IsFinite() {
			t.Fatalf("%v not detected", bad)
		}
	}
	if Vector(1, 2).SameShape(Vector(1, 2, 3)) {
		t.Fatal("different shapes reported equal")
	}
}
