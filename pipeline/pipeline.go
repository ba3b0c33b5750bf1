package pipeline

import (
	"context"
	"sync"
)

// Iterator provides pull-based sequential access to a sequence of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when the
	// sequence completed and (zero, false, err) when it failed.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// result carries a value or error through a channel.
type result[T any] struct {
	val T
	ok  bool
	err error
}

// channelIter reads values from a channel. Used by concurrent operators.
type channelIter[T any] struct {
	ch     <-chan result[T]
	closer func() error
	once   sync.Once
	err    error
}

func (it *channelIter[T]) Next(ctx context.Context) (T, bool, error) {
	select {
	case r, open := <-it.ch:
		if !open {
			var zero T
			return zero, false, nil
		}
		return r.val, r.ok, r.err
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (it *channelIter[T]) Close() error {
	it.once.Do(func() {
		if it.closer != nil {
			it.err = it.closer()
		}
	})
	return it.err
}

// --- Constructors ---

// Of creates a finite sequence that yields values in order, then completes.
func Of[T any](values ...T) Iterator[T] {
	return &sliceIter[T]{items: values}
}

// Empty creates a sequence that completes immediately.
func Empty[T any]() Iterator[T] {
	return &sliceIter[T]{}
}

// Never creates a sequence that never yields and never terminates.
// Next returns only when ctx is done or the iterator is closed.
func Never[T any]() Iterator[T] {
	return &neverIter[T]{closed: make(chan struct{})}
}

// Throw creates a sequence that fails with err.
func Throw[T any](err error) Iterator[T] {
	return &throwIter[T]{err: err}
}

// FromChannel creates a sequence from a channel. The sequence completes
// when ch is closed.
func FromChannel[T any](ch <-chan T) Iterator[T] {
	return &chanIter[T]{ch: ch}
}

// --- Terminals ---

// Collect pulls the whole sequence and returns its values.
// Values read before a failure are returned alongside the error.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	defer it.Close()
	var out []T
	for {
		val, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, val)
	}
}

// Drain pulls the sequence and sends each value to sink.
func Drain[T any](ctx context.Context, it Iterator[T], sink func(context.Context, T) error) error {
	defer it.Close()
	for {
		val, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := sink(ctx, val); err != nil {
			return err
		}
	}
}

// --- Internal iterators ---

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type neverIter[T any] struct {
	closed chan struct{}
	once   sync.Once
}

func (it *neverIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case <-it.closed:
		return zero, false, nil
	}
}

func (it *neverIter[T]) Close() error {
	it.once.Do(func() { close(it.closed) })
	return nil
}

type throwIter[T any] struct {
	err error
}

func (it *throwIter[T]) Next(_ context.Context) (T, bool, error) {
	var zero T
	return zero, false, it.err
}

func (it *throwIter[T]) Close() error { return nil }

type chanIter[T any] struct {
	ch <-chan T
}

func (it *chanIter[T]) Next(ctx context.Context) (T, bool, error) {
	select {
	case v, open := <-it.ch:
		if !open {
			var zero T
			return zero, false, nil
		}
		return v, true, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (it *chanIter[T]) Close() error { return nil }
