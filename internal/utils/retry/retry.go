// Package retry provides a retry policy value object and a generic helper
// that runs an operation under it.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Policy configures retry behavior.
type Policy struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// Delay is the fixed pause between attempts.
	Delay time.Duration

	// Jitter adds randomness to Delay. Value between 0 and 1, where 0.1
	// means ±10%. Zero keeps the delay fixed.
	Jitter float64

	// RetryIf determines if an error should be retried.
	// If nil, all errors are retried.
	RetryIf func(error) bool
}

// Result contains retry metadata for the last call of Do.
type Result struct {
	Attempts int
	LastErr  error
}

// ErrNoAttempts is returned when the policy allows zero attempts.
var ErrNoAttempts = errors.New("retry: policy allows no attempts")

// Do executes op until it succeeds, the attempts are exhausted, RetryIf
// rejects the error or ctx is done while waiting between attempts.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) Result {
	if p.MaxAttempts <= 0 {
		return Result{LastErr: ErrNoAttempts}
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return Result{Attempts: attempt}
		}

		if p.RetryIf != nil && !p.RetryIf(lastErr) {
			return Result{Attempts: attempt, LastErr: lastErr}
		}

		// Don't sleep after the last attempt
		if attempt == p.MaxAttempts {
			break
		}

		wait := p.withJitter()
		if wait <= 0 {
			if err := ctx.Err(); err != nil {
				return Result{Attempts: attempt, LastErr: errors.Join(lastErr, err)}
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{Attempts: attempt, LastErr: errors.Join(lastErr, ctx.Err())}
		case <-timer.C:
		}
	}

	return Result{Attempts: p.MaxAttempts, LastErr: lastErr}
}

func (p Policy) withJitter() time.Duration {
	if p.Jitter <= 0 || p.Delay <= 0 {
		return p.Delay
	}
	jitter := p.Jitter
	if jitter > 1 {
		jitter = 1
	}
	spread := float64(p.Delay) * jitter
	return time.Duration(float64(p.Delay) - spread + rand.Float64()*2*spread)
}
