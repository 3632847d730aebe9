package ratelimit

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a counting admission gate that bounds the number of operations in
// flight. Waiters are admitted first-come-first-served.
type Gate struct {
	size     int64
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewGate returns a gate admitting at most n concurrent operations. A
// non-positive n returns nil, which Chain and Wrap treat as no limit.
func NewGate(n int) *Gate {
	if n <= 0 {
		return nil
	}
	return &Gate{
		size: int64(n),
		sem:  semaphore.NewWeighted(int64(n)),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) (Release, error) {
	if g == nil {
		return noopRelease, nil
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	current := g.inFlight.Add(1)
	for {
		peak := g.peak.Load()
		if current <= peak || g.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	var once atomic.Bool
	return func(context.Context) {
		if !once.CompareAndSwap(false, true) {
			return
		}
		g.inFlight.Add(-1)
		g.sem.Release(1)
	}, nil
}

// Size returns the gate capacity
func (g *Gate) Size() int {
	return int(g.size)
}

// InFlight returns the number of operations currently admitted
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Peak returns the highest number of operations admitted at once
func (g *Gate) Peak() int {
	return int(g.peak.Load())
}
