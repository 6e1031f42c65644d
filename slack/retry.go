package slack

import (
	"context"
	"time"

	"nxt-tipbot/errors"
)

// RetryPolicy throttles connection attempts: at least MinInterval must
// elapse between the starts of two attempts. The timestamp is recorded at
// the start of the attempt, matching the original throttle design, which
// means a non-blocking policy that is asked again right after a fast
// failure is not yet satisfied and reports ErrRetryThrottled, effectively
// a single attempt. With Blocking set, Acquire instead sleeps out the
// remainder of the interval, giving a true periodic retry.
type RetryPolicy struct {
	MinInterval time.Duration
	Blocking    bool

	lastAttempt time.Time
	now         func() time.Time
}

func NewRetryPolicy(minInterval time.Duration, blocking bool) *RetryPolicy {
	return &RetryPolicy{
		MinInterval: minInterval,
		Blocking:    blocking,
		now:         time.Now,
	}
}

// Acquire blocks (or fails) until the next attempt may start, then records
// the attempt. A context cancellation aborts the wait.
func (p *RetryPolicy) Acquire(ctx context.Context) error {
	clock := p.now
	if clock == nil {
		clock = time.Now
	}

	if !p.lastAttempt.IsZero() {
		elapsed := clock().Sub(p.lastAttempt)
		if elapsed < p.MinInterval {
			if !p.Blocking {
				return errors.ErrRetryThrottled
			}
			timer := time.NewTimer(p.MinInterval - elapsed)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	p.lastAttempt = clock()
	return nil
}
