package fmsolvers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunBatch(t *testing.T) {
	s, err := NewSampler(testFlow, Config{NumSteps: 15, Order: 3, SkipType: TimeUniform, Solver: "unipc"})
	require.NoError(t, err)
	items := make([]BatchItem, 12)
	for i := range items {
		noise, err := NewNoise([]int{2, 3}, uint64(i))
		require.NoError(t, err)
		items[i] = BatchItem{Noise: noise}
	}
	out, err := RunBatch(context.Background(), s, items, 4)
	require.NoError(t, err)
	require.Len(t, out, len(items))
	for i, it := range items {
		exp, err := s.Run(context.Background(), it.Noise, nil)
		require.NoError(t, err)
		require.Equal(t, exp.Data(), out[i].Data(), "item %d", i)
		require.Equal(t, []int{2, 3}, out[i].Shape())
	}
}

func TestRunBatchFailure(t *testing.T) {
	boom := errors.New("device lost")
	var calls int64
	model := VelocityFunc(func(ctx context.Context, x *Tensor, tm float64, c Conditioning) (*Tensor, error) {
		atomic.AddInt64(&calls, 1)
		if c == "bad" {
			return nil, boom
		}
		return testFlow.Velocity(ctx, x, tm, c)
	})
	s, err := NewSampler(model, Config{NumSteps: 5, Order: 2, SkipType: TimeUniform})
	require.NoError(t, err)
	items := []BatchItem{
		{Noise: Vector(1), Cond: "good"},
		{Noise: Vector(2), Cond: "bad"},
		{Noise: Vector(3), Cond: "good"},
	}
	out, err := RunBatch(context.Background(), s, items, 1)
	require.Nil(t, out)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, ErrModelEvaluation)
	require.Contains(t, err.Error(), "batch item 1")
}
