package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle limits how often operations may start using a token bucket.
// Airtable documents a limit of 5 requests per second per base.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a throttle admitting rps operations per second with
// the given burst (at least 1). A non-positive rps returns nil, which Chain
// and Wrap treat as no limit.
func NewThrottle(rps float64, burst int) *Throttle {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Acquire waits for a token or until ctx is done.
func (t *Throttle) Acquire(ctx context.Context) (Release, error) {
	if t == nil {
		return noopRelease, nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return noopRelease, nil
}

// Limit returns the configured rate in operations per second
func (t *Throttle) Limit() float64 {
	return float64(t.limiter.Limit())
}
