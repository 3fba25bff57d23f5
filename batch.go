package fmsolvers

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchItem is one independent sampling request.
type BatchItem struct {
	Noise *Tensor
	Cond  Conditioning
}

// RunBatch samples every item with at most limit concurrent runs (limit < 1
// means unbounded). Results are in input order. The first failure cancels the
// remaining runs and is returned.
func RunBatch(ctx context.Context, s *Sampler, items []BatchItem, limit int) ([]*Tensor, error) {
	out := make([]*Tensor, len(items))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			x, err := s.Run(ctx, it.Noise, it.Cond)
			if err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			out[i] = x
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
