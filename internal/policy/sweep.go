package policy

import (
	"context"
	"math"
	"sort"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"golang.org/x/sync/errgroup"
)

// candidate is one sweep result. A failed candidate carries err and is
// filtered out before ranking.
type candidate[T any] struct {
	index  int
	target grid.Point
	value  float64
	detail T
	err    error
}

// sweep evaluates n candidates with at most workers in flight. fn must be safe
// to call concurrently; results are returned in index order regardless of
// completion order.
func sweep[T any](ctx context.Context, workers, n int, fn func(i int) candidate[T]) ([]candidate[T], error) {
	out := make([]candidate[T], n)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(workers, 1))
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			c := fn(i)
			c.index = i
			out[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// rank drops failed candidates and orders the rest by value descending, ties
// by index ascending.
func rank[T any](cands []candidate[T]) (ok []candidate[T], failed []candidate[T]) {
	for _, c := range cands {
		if c.err != nil || math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			failed = append(failed, c)
			continue
		}
		ok = append(ok, c)
	}
	sort.SliceStable(ok, func(i, j int) bool {
		if ok[i].value != ok[j].value {
			return ok[i].value > ok[j].value
		}
		return ok[i].index < ok[j].index
	})
	return ok, failed
}

func alternatives[T any](ranked []candidate[T]) []Alternative {
	if len(ranked) <= 1 {
		return nil
	}
	rest := ranked[1:min(len(ranked), MaxAlternatives+1)]
	out := make([]Alternative, len(rest))
	for i, c := range rest {
		out[i] = Alternative{Target: c.target, Value: c.value}
	}
	return out
}

// confidence maps |value| onto [0,1) with scale as the value of roughly 63%
// confidence. It is a display aid, not an interval.
func confidence(value, scale float64) float64 {
	if !(scale > 0) {
		return 0
	}
	return 1 - math.Exp(-math.Abs(value)/scale)
}
