package fmsolvers

import (
	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// Precision is the numeric format model outputs are rounded through before
// entering the solver. It mirrors running the velocity network in reduced precision
// while the solver state stays in float64.
type Precision string

const (
	Float64  Precision = "float64"
	Float32  Precision = "float32"
	Float16  Precision = "float16"
	BFloat16 Precision = "bfloat16"
)

// Valid reports whether p is a known precision. The empty value means Float64.
func (p Precision) Valid() bool {
	switch p {
	case "", Float64, Float32, Float16, BFloat16:
		return true
	}
	return false
}

// Round rounds every element of t in place and returns t.
func (p Precision) Round(t *Tensor) *Tensor {
	d := t.data
	switch p {
	case Float32:
		for i, v := range d {
			d[i] = float64(float32(v))
		}
	case Float16:
		for i, v := range d {
			d[i] = float64(float16.Fromfloat32(float32(v)).Float32())
		}
	case BFloat16:
		f32s := make([]float32, len(d))
		for i, v := range d {
			f32s[i] = float32(v)
		}
		for i, v := range bfloat16.DecodeFloat32(bfloat16.EncodeFloat32(f32s)) {
			d[i] = float64(v)
		}
	}
	return t
}
