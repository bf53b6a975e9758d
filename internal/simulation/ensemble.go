package simulation

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// Stat is a metric aggregated over an ensemble.
type Stat struct {
	Mean   float64
	Stddev float64
}

// RunEnsemble executes runs identical configurations with different
// seeds. build receives the run index and must return a fresh, fully
// independent Runner; sharing systems between runners is not safe.
// Final metrics are aggregated across the members.
func RunEnsemble(ctx context.Context, runs, parallel int, build func(i int) (*Runner, error)) ([]*Summary, map[string]Stat, error) {
	if runs < 1 {
		return nil, nil, fmt.Errorf("ensemble needs at least 1 run, got %d", runs)
	}
	if parallel < 1 {
		parallel = 1
	}

	summaries := make([]*Summary, runs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := 0; i < runs; i++ {
		g.Go(func() error {
			r, err := build(i)
			if err != nil {
				return fmt.Errorf("ensemble member %d: %w", i, err)
			}
			sum, err := r.Run(gctx)
			if err != nil {
				return fmt.Errorf("ensemble member %d: %w", i, err)
			}
			summaries[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return summaries, aggregate(summaries), nil
}

// aggregate computes mean and population stddev per metric name.
func aggregate(summaries []*Summary) map[string]Stat {
	samples := make(map[string][]float64)
	for _, s := range summaries {
		for name, v := range s.Metrics() {
			samples[name] = append(samples[name], v)
		}
	}
	out := make(map[string]Stat, len(samples))
	for name, vs := range samples {
		var mean float64
		for _, v := range vs {
			mean += v
		}
		mean /= float64(len(vs))
		var sq float64
		for _, v := range vs {
			sq += (v - mean) * (v - mean)
		}
		out[name] = Stat{Mean: mean, Stddev: math.Sqrt(sq / float64(len(vs)))}
	}
	return out
}
