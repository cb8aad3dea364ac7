// Package ratelimit implements a blocking sliding-window rate limiter.
//
// Unlike a token bucket, the window is strict: at no point are more than
// max calls permitted within any trailing period, with no burst
// allowance beyond the configured capacity. Calls block until a slot
// frees up, which suits a serialized batch client better than rejection
// or reservation APIs.
package ratelimit

import (
	"context"
	"time"
)

// Limiter bounds calls to at most max per trailing period.
//
// Timestamps are kept oldest-first; insertion order is chronological
// because all requests serialize through Wait. The limiter is intended
// for a single caller and is not safe for concurrent use.
//
// Durations are measured with the process clock's monotonic reading, so
// wall-clock jumps do not distort the window while the process is
// running.
type Limiter struct {
	max    int
	period time.Duration
	stamps []time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New constructs a Limiter permitting max calls per trailing period.
func New(max int, period time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		period: period,
		stamps: make([]time.Time, 0, max),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Wait blocks until one more call would not exceed max calls within the
// trailing period, then records the call's timestamp.
//
// At capacity, the oldest timestamp decides: if it has already aged out
// it is discarded, otherwise Wait sleeps exactly until it expires and
// re-checks. Returns early with the context's error when ctx is
// canceled during a sleep; the call is not recorded in that case.
func (l *Limiter) Wait(ctx context.Context) error {
	for len(l.stamps) >= l.max {
		age := l.now().Sub(l.stamps[0])
		if age >= l.period {
			l.stamps = l.stamps[1:]
			continue
		}
		if err := l.sleep(ctx, l.period-age); err != nil {
			return err
		}
	}
	l.stamps = append(l.stamps, l.now())
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
