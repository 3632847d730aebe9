package airtable

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/airtable/pkg/errors"
)

// Future is the pending result of a non-blocking call.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	value  T
	err    error
}

// spawn runs fn on its own goroutine with a cancelable child of ctx
func spawn[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer cancel()
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Await blocks until the call completes or ctx is done. A done ctx does not
// cancel the call; use Cancel for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Wrap(ctx.Err(), errors.ErrorTypeTransport, "await interrupted")
	}
}

// Done is closed when the call completes
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel cancels the call's context. Writes Airtable already committed stay
// committed.
func (f *Future[T]) Cancel() {
	f.cancel()
}

// AwaitAll waits for every future and returns their values in order. On the
// first failure the remaining futures are canceled and that error is
// returned.
func AwaitAll[T any](ctx context.Context, futures ...*Future[T]) ([]T, error) {
	values := make([]T, len(futures))
	g, gctx := errgroup.WithContext(ctx)

	for i, f := range futures {
		g.Go(func() error {
			v, err := f.Await(gctx)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, f := range futures {
			f.Cancel()
		}
		return nil, err
	}
	return values, nil
}
