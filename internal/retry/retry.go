package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds a retried call: at most MaxAttempts tries, waiting
// InitialDelay before the second and doubling up to MaxDelay after that.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}
}

// Permanent marks err as not worth retrying. Do returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, exhausts the
// policy, or ctx is done.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0

	result, err := backoff.Retry(ctx, func() (T, error) {
		return op(ctx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(p.MaxAttempts)), backoff.WithMaxElapsedTime(0))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return result, perm.Unwrap()
		}
		return result, err
	}
	return result, nil
}

// Delays lists the waits Do would apply between attempts.
func (p Policy) Delays() []time.Duration {
	p = p.normalized()
	out := make([]time.Duration, 0, p.MaxAttempts-1)
	d := p.InitialDelay
	for i := 1; i < p.MaxAttempts; i++ {
		if d > p.MaxDelay {
			d = p.MaxDelay
		}
		out = append(out, d)
		d *= 2
	}
	return out
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultPolicy().InitialDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay * 8
	}
	return p
}
