package fmsolvers

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Tensor is a dense float64 array with an opaque shape.
// Samples, velocities and data predictions are all Tensors.
type Tensor struct {
	shape []int
	data  []float64
}

// NewTensor returns a Tensor of the given shape backed by data (not copied).
// A nil data slice allocates zeros.
func NewTensor(shape []int, data []float64) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("invalid tensor dimension %d in shape %v", d, shape)
		}
		n *= d
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("tensor shape must have at least one dimension")
	}
	if data == nil {
		data = make([]float64, n)
	} else if len(data) != n {
		return nil, fmt.Errorf("tensor shape %v needs %d values, got %d", shape, n, len(data))
	}
	return &Tensor{shape: append([]int(nil), shape...), data: data}, nil
}

// Vector returns a one dimensional Tensor holding a copy of vals.
func Vector(vals ...float64) *Tensor {
	return &Tensor{shape: []int{len(vals)}, data: append([]float64(nil), vals...)}
}

// ZerosLike returns a zero Tensor with the shape of t.
func ZerosLike(t *Tensor) *Tensor {
	return &Tensor{shape: t.Shape(), data: make([]float64, len(t.data))}
}

// Shape returns a copy of the shape.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Data returns the underlying values. Callers must not resize it.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: t.Shape(), data: append([]float64(nil), t.data...)}
}

// SameShape reports whether both tensors have identical shapes.
func (t *Tensor) SameShape(o *Tensor) bool {
	if o == nil || len(t.shape) != len(o.shape) {
		return false
	}
	for i, d := range t.shape {
		if o.shape[i] != d {
			return false
		}
	}
	return true
}

// IsFinite reports whether every element is neither NaN nor ±Inf.
func (t *Tensor) IsFinite() bool {
	for _, v := range t.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Norm returns the Euclidean norm.
func (t *Tensor) Norm() float64 {
	return floats.Norm(t.data, 2)
}

// MaxAbsDiff returns the largest element-wise absolute difference.
func (t *Tensor) MaxAbsDiff(o *Tensor) float64 {
	return floats.Distance(t.data, o.data, math.Inf(1))
}

// Scaled returns a·t as a new Tensor.
func (t *Tensor) Scaled(a float64) *Tensor {
	out := t.Clone()
	floats.Scale(a, out.data)
	return out
}

// AddScaled performs t += a·o in place and returns t.
func (t *Tensor) AddScaled(a float64, o *Tensor) *Tensor {
	floats.AddScaled(t.data, a, o.data)
	return t
}

// Sub returns t − o as a new Tensor.
func (t *Tensor) Sub(o *Tensor) *Tensor {
	out := t.Clone()
	floats.Sub(out.data, o.data)
	return out
}

// combine returns Σ coefs[i]·terms[i]. All terms must share a shape.
func combine(coefs []float64, terms ...*Tensor) *Tensor {
	out := ZerosLike(terms[0])
	for i, term := range terms {
		if coefs[i] == 0 {
			continue
		}
		floats.AddScaled(out.data, coefs[i], term.data)
	}
	return out
}

func (t *Tensor) String() string {
	if len(t.data) <= 6 {
		return fmt.Sprintf("Tensor%v%v", t.shape, t.data)
	}
	return fmt.Sprintf("Tensor%v[%g %g %g ... %g]", t.shape, t.data[0], t.data[1], t.data[2], t.data[len(t.data)-1])
}
