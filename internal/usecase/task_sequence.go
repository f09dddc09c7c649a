package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// TaskSequence runs per-item calls to a third-party service with a minimum interval
// between task starts and a bounded number of tasks in flight.
type TaskSequence struct {
	interval    time.Duration
	concurrency int
}

// NewTaskSequence creates a task sequence. Concurrency below 1 is treated as 1 and an
// interval of zero disables throttling.
func NewTaskSequence(interval time.Duration, concurrency int) *TaskSequence {
	if concurrency < 1 {
		concurrency = 1
	}
	if interval < 0 {
		interval = 0
	}
	return &TaskSequence{interval: interval, concurrency: concurrency}
}

// Interval returns the minimum delay between two task starts
func (s *TaskSequence) Interval() time.Duration {
	return s.interval
}

// Concurrency returns the maximum number of tasks in flight
func (s *TaskSequence) Concurrency() int {
	return s.concurrency
}

// Run starts task for every index in [0, n) in order and waits for all of them.
// A failing task never stops the others; errs[i] holds the error of item i, and items
// that could not start because ctx ended get ctx's error.
func (s *TaskSequence) Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	limit := rate.Inf
	if s.interval > 0 {
		limit = rate.Every(s.interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := 0; i < n; i++ {
		if err := limiter.Wait(ctx); err != nil {
			for j := i; j < n; j++ {
				errs[j] = ctx.Err()
				if errs[j] == nil {
					errs[j] = err
				}
			}
			break
		}

		i := i
		g.Go(func() error {
			errs[i] = task(ctx, i)
			return nil
		})
	}

	// tasks report through errs
	_ = g.Wait()
	return errs
}
