package miroflow

import (
	"context"
	"time"
)

// runWithTimeout races f against a timer. The child context is cancelled when
// either side wins, so well-behaved operations stop promptly; a stuck f leaks
// its goroutine until it honors cancellation, but the caller is unblocked at
// the deadline regardless.
func runWithTimeout[T any](ctx context.Context, d time.Duration, f func(context.Context) (T, error)) (T, error) {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := f(tctx)
		done <- outcome{v: v, err: err}
	}()

	select {
	case out := <-done:
		return out.v, out.err
	case <-tctx.Done():
		var zero T
		return zero, tctx.Err()
	}
}
