// Package ratelimit provides composable client-side limiters that can be
// applied around any operation: a fixed post-call delay, a bounded
// concurrency gate and a requests-per-second throttle.
//
// Limiters are decorators. Wrap turns an operation into a limited one and
// Do runs an operation once under a limiter:
//
//	gate := ratelimit.NewGate(2)
//	fetch := ratelimit.Wrap(gate, func(ctx context.Context) ([]airtable.Record, error) {
//		return client.FetchAll(ctx, "tblXXX", airtable.ListOptions{})
//	})
//	records, err := fetch(ctx)
package ratelimit

import (
	"context"
)

// Release is returned by Acquire and must be called exactly once when the
// limited operation finishes, on success and failure alike.
type Release func(ctx context.Context)

// Limiter admits operations.
type Limiter interface {
	// Acquire blocks until the operation may start or ctx is done.
	Acquire(ctx context.Context) (Release, error)
}

func noopRelease(context.Context) {}

// Wrap decorates op so that every invocation is admitted by l.
func Wrap[T any](l Limiter, op func(context.Context) (T, error)) func(context.Context) (T, error) {
	if isNil(l) {
		return op
	}
	return func(ctx context.Context) (T, error) {
		return Do(ctx, l, op)
	}
}

// Do runs op once under l.
func Do[T any](ctx context.Context, l Limiter, op func(context.Context) (T, error)) (T, error) {
	if isNil(l) {
		return op(ctx)
	}

	release, err := l.Acquire(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	defer release(ctx)

	return op(ctx)
}

// Chain composes limiters. Acquisition runs in the given order and release
// runs in reverse, so Chain(NewDelay(d), NewGate(n)) frees the gate slot
// before the caller starts waiting out the delay. Nil limiters are skipped.
func Chain(limiters ...Limiter) Limiter {
	var out chain
	for _, l := range limiters {
		if isNil(l) {
			continue
		}
		if c, ok := l.(chain); ok {
			out = append(out, c...)
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// isNil reports whether l is nil or a typed nil returned by one of the
// constructors for a disabled limit.
func isNil(l Limiter) bool {
	switch v := l.(type) {
	case nil:
		return true
	case *Delay:
		return v == nil
	case *Gate:
		return v == nil
	case *Throttle:
		return v == nil
	}
	return false
}

type chain []Limiter

func (c chain) Acquire(ctx context.Context) (Release, error) {
	releases := make([]Release, 0, len(c))
	releaseAll := func(ctx context.Context) {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i](ctx)
		}
	}

	for _, l := range c {
		r, err := l.Acquire(ctx)
		if err != nil {
			releaseAll(ctx)
			return nil, err
		}
		releases = append(releases, r)
	}
	return releaseAll, nil
}
