package deezer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"dzfresh/internal/shared"
)

const (
	defaultAttempts = 5
	defaultBackoff  = 5 * time.Second
)

// Gate admits one outbound request per call, blocking until the rate
// window has capacity.
type Gate interface {
	Wait(ctx context.Context) error
}

// Executor funnels remote calls through the rate-limit gate and a
// bounded retry loop, translating the service's error taxonomy into a
// comma-ok outcome. One Executor is shared across every profile's run
// so the rate window accounts for the whole process.
type Executor struct {
	gate     Gate
	logger   *log.Logger
	attempts int
	backoff  time.Duration

	sleep func(context.Context, time.Duration) error
}

// NewExecutor creates an Executor. attempts and backoff fall back to 5
// tries and 5s when non-positive; logger falls back to a stderr logger;
// a nil gate disables rate limiting (tests).
func NewExecutor(gate Gate, logger *log.Logger, attempts int, backoff time.Duration) *Executor {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	return &Executor{
		gate:     gate,
		logger:   logger,
		attempts: attempts,
		backoff:  backoff,
		sleep:    sleepContext,
	}
}

// Do runs fn through the executor.
//
// Outcomes:
//   - value, true, nil — the call succeeded.
//   - zero, false, nil — expected absence: not found, deleted resource,
//     benign duplicate, unrecognized service error, or exhausted
//     retries. Callers treat this as "nothing to do".
//   - zero, false, err — fatal; the run must stop.
//
// Rate-limited and transient responses are retried after a fixed
// backoff, consuming the attempt budget. Every attempt takes one slot
// from the gate.
func Do[T any](ctx context.Context, ex *Executor, op string, fn func(context.Context) (T, error)) (T, bool, error) {
	var zero T

	for attempt := 1; attempt <= ex.attempts; attempt++ {
		if ex.gate != nil {
			if err := ex.gate.Wait(ctx); err != nil {
				return zero, false, err
			}
		}

		value, err := fn(ctx)
		if err == nil {
			return value, true, nil
		}

		switch {
		case rateLimited(err):
			ex.logger.Warn("rate limited, backing off", "op", op, "attempt", attempt, "backoff", ex.backoff)
			if serr := ex.sleep(ctx, ex.backoff); serr != nil {
				return zero, false, serr
			}
		case transient(err):
			ex.logger.Warn("transient failure, backing off", "op", op, "attempt", attempt, "error", err)
			if serr := ex.sleep(ctx, ex.backoff); serr != nil {
				return zero, false, serr
			}
		case notFound(err):
			ex.logger.Debug("resource not found", "op", op)
			return zero, false, nil
		case duplicateTrack(err):
			ex.logger.Debug("track already in playlist", "op", op)
			return zero, false, nil
		default:
			var apiErr *Error
			if errors.As(err, &apiErr) {
				ex.logger.Warn("service error", "op", op, "code", apiErr.Code, "message", apiErr.Message)
				return zero, false, nil
			}
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				ex.logger.Warn("unexpected http status", "op", op, "status", httpErr.StatusCode)
				return zero, false, nil
			}
			if ctx.Err() != nil {
				return zero, false, ctx.Err()
			}
			return zero, false, fmt.Errorf("%s: %w", op, err)
		}
	}

	ex.logger.Warn("retries exhausted", "op", op, "attempts", ex.attempts)
	return zero, false, nil
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
