// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry runs an operation under an explicit backoff policy. Each
// pipeline stage carries its own Policy value; tests inject a Sleeper that
// records delays instead of waiting.
package retry

import (
	"context"
	"errors"
	"time"
)

// Sleeper waits for d. It returns early with ctx.Err() if ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// DelayFunc returns the wait before the given attempt (attempt >= 2).
type DelayFunc func(attempt int) time.Duration

// Policy bounds the attempts of one stage and spaces them out.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay computes the wait before each retry. Nil means no wait.
	Delay DelayFunc

	// Sleep performs the wait. Nil means Wait.
	Sleep Sleeper
}

// Linear returns a DelayFunc waiting base × (attempt-1): base before the
// second attempt, 2×base before the third, and so on.
func Linear(base time.Duration) DelayFunc {
	return func(attempt int) time.Duration {
		if attempt < 2 {
			return 0
		}
		return base * time.Duration(attempt-1)
	}
}

// Wait is the production Sleeper.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it returns nil, returns a Permanent error, or the policy
// runs out of attempts. It reports how many attempts were made and the last
// error (unwrapped from Permanent).
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Wait
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && p.Delay != nil {
			if err := sleep(ctx, p.Delay(attempt)); err != nil {
				return attempt - 1, err
			}
		}

		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return attempt, perm.err
		}
		lastErr = err
	}
	return maxAttempts, lastErr
}
