package db

import (
	"context"
	"log"
	"time"

	"github.com/madickediagne/LOGISEN/internal/apperr"
)

// GuardedFetch races fetch against a timer. If the timer wins, the caller
// gets apperr.Timeout and must fall back; the fetch keeps running in the
// background and its eventual result is discarded so a slow response can
// never clobber the fallback state. This is a UX budget for first-paint
// reads, not cancellation: the remote outcome stays unknown on timeout.
func GuardedFetch[T any](ctx context.Context, budget time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	// Buffered so the late fetch goroutine never leaks blocked on send.
	ch := make(chan result, 1)
	go func() {
		v, err := fetch(ctx)
		ch <- result{value: v, err: err}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, apperr.Wrap(apperr.Timeout, "request cancelled before fetch completed", ctx.Err())
	case <-timer.C:
		// Drain the late result in the background so it is observed and
		// dropped, never applied.
		go func() {
			r := <-ch
			if r.err == nil {
				log.Printf("guarded fetch completed after %s budget; result discarded", budget)
			}
		}()
		var zero T
		return zero, apperr.New(apperr.Timeout, "fetch exceeded read budget")
	}
}
