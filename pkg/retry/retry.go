// Package retry runs an operation a fixed number of times with a delay
// between attempts.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// Delay is the pause before the second attempt.
	Delay time.Duration
	// Multiplier grows the delay after every failed attempt. Values <= 1 keep it fixed.
	Multiplier float64
	// RetryIf reports whether err is worth another attempt. Nil retries every error.
	RetryIf func(err error) bool
	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Fixed returns a policy with a constant delay between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delay: delay}
}

// DelayFor returns the wait after the given failed attempt (1-based).
func (p Policy) DelayFor(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := p.Delay
	if p.Multiplier > 1 {
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * p.Multiplier)
		}
	}
	return d
}

// Do calls op until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done. The attempt number passed to op starts at 1.
func Do(ctx context.Context, p Policy, op func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("retry cancelled after %d attempts: %w", attempt-1, err)
			}
			return err
		}

		err := op(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if p.RetryIf != nil && !p.RetryIf(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := p.DelayFor(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled after %d attempts: %w", attempt, err)
		}
	}

	return fmt.Errorf("max attempts (%d) exceeded: %w", attempts, lastErr)
}

// Wait waits for the specified duration or until ctx is cancelled.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
