package fmsolvers

import (
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

func TestNewNoise(t *testing.T) {
	a, err := NewNoise([]int{4, 50, 50}, 42)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewNoise([]int{4, 50, 50}, 42)
	if !floats.Equal(a.Data(), b.Data()) {
		t.Fatal("same seed must give the same noise")
	}
	c, _ := NewNoise([]int{4, 50, 50}, 43)
	if floats.Equal(a.Data(), c.Data()) {
		t.Fatal("different seeds gave the same noise")
	}
	mean, std := stat.MeanStdDev(a.Data(), nil)
	if !scalar.EqualWithinAbs(mean, 0, 0.05) || !scalar.EqualWithinAbs(std, 1, 0.05) {
		t.Fatalf("noise is not standard normal: mean=%f std=%f", mean, std)
	}
	if _, err := NewNoise([]int{3, -1}, 1); err == nil {
		t.Fatal("expected an error on a negative dimension")
	}
}

func TestAddNoise(t *testing.T) {
	x0 := Vector(1, 2)
	noise := Vector(-1, 0)
	if y := AddNoise(x0, noise, 1); !floats.Equal(y.Data(), noise.Data()) {
		t.Fatal("t=1 must be pure noise")
	}
	if y := AddNoise(x0, noise, 0); !floats.Equal(y.Data(), x0.Data()) {
		t.Fatal("t=0 must be pure data")
	}
	if y := AddNoise(x0, noise, 0.25); !floats.EqualApprox(y.Data(), []float64{0.5, 1.5}, 1e-15) {
		t.Fatalf("incorrect interpolation %v", y.Data())
	}
}
