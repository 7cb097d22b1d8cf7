package use_cases

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy bounds the allocator's retry loop on store contention.
type RetryPolicy struct {
	Attempts    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:    5,
		BaseBackoff: 5 * time.Millisecond,
		MaxBackoff:  200 * time.Millisecond,
	}
}

// Backoff returns the wait before retry number attempt (0-based): the
// exponential step capped at MaxBackoff, jittered into [step/2, step].
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseBackoff <= 0 {
		return 0
	}

	step := p.BaseBackoff
	for i := 0; i < attempt && step < p.MaxBackoff; i++ {
		step *= 2
	}
	if p.MaxBackoff > 0 && step > p.MaxBackoff {
		step = p.MaxBackoff
	}

	half := step / 2
	return half + time.Duration(rand.Int63n(int64(step-half)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
