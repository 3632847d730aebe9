package ratelimit

import (
	"context"
	"time"
)

// Delay suspends the caller for a fixed duration after each operation
// completes, whether it succeeded or failed.
type Delay struct {
	d time.Duration
}

// NewDelay returns a post-call delay limiter. A non-positive d returns nil,
// which Chain and Wrap treat as no limit.
func NewDelay(d time.Duration) *Delay {
	if d <= 0 {
		return nil
	}
	return &Delay{d: d}
}

// Duration returns the configured delay
func (l *Delay) Duration() time.Duration {
	if l == nil {
		return 0
	}
	return l.d
}

// Acquire never blocks. The returned Release sleeps for the delay, or less
// when ctx is done first.
func (l *Delay) Acquire(ctx context.Context) (Release, error) {
	if l == nil {
		return noopRelease, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func(ctx context.Context) {
		timer := time.NewTimer(l.d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}, nil
}
