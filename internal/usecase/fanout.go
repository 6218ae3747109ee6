package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runIsolated calls fn for every index in [0,n) with at most limit calls in
// flight. Each call's error lands in its own slot; one failure never cancels
// the others.
func runIsolated(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func tally(errs []error) (ok, failed int) {
	for _, err := range errs {
		if err != nil {
			failed++
			continue
		}
		ok++
	}
	return ok, failed
}
