package query

import (
	"context"
	"time"

	"github.com/five82/sporthub/internal/api"
)

// RetryPolicy bounds how often one execution retries a failed fetch. The
// zero Backoff retries immediately.
type RetryPolicy struct {
	MaxRetries int
	Backoff    func(attempt int) time.Duration
}

// DefaultRetryPolicy retries once without delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 1}
}

// NoRetry disables retries.
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

// ExponentialBackoff doubles base per attempt up to limit.
func ExponentialBackoff(base, limit time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		if attempt > 30 {
			attempt = 30
		}
		d := base << uint(attempt)
		if d <= 0 || (limit > 0 && d > limit) {
			return limit
		}
		return d
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	if d := p.Backoff(attempt); d > 0 {
		return d
	}
	return 0
}

// run calls fn until it succeeds, the retries are spent or ctx ends.
func (p RetryPolicy) run(ctx context.Context, fn func(context.Context) (any, error)) (any, *api.Error) {
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		apiErr := api.AsError(err)
		if attempt >= p.MaxRetries || ctx.Err() != nil {
			return nil, apiErr
		}
		if d := p.delay(attempt); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, apiErr
			case <-timer.C:
			}
		}
	}
}
