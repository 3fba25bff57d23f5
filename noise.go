package fmsolvers

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// NewNoise returns a standard normal Tensor of the given shape. The same seed
// always yields the same tensor.
func NewNoise(shape []int, seed uint64) (*Tensor, error) {
	t, err := NewTensor(shape, nil)
	if err != nil {
		return nil, err
	}
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}
	for i := range t.data {
		t.data[i] = dist.Rand()
	}
	return t, nil
}

// AddNoise returns the point of the linear flow path at t: (1 − t)·x0 + t·noise.
func AddNoise(x0, noise *Tensor, t float64) *Tensor {
	return combine([]float64{alpha(t), sigma(t)}, x0, noise)
}
