package core

import "context"

// Future holds the outcome of a call running on another goroutine.
type Future[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Go runs fn on a new goroutine and returns a Future for its result.
func Go[V any](ctx context.Context, fn func(context.Context) (V, error)) *Future[V] {
	f := &Future[V]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Wait blocks until the call finishes and returns its result.
func (f *Future[V]) Wait() (V, error) {
	<-f.done
	return f.val, f.err
}

// Done is closed once the result is available.
func (f *Future[V]) Done() <-chan struct{} {
	return f.done
}
