package pipeline

import "context"

// Map transforms each value using fn.
func Map[I, O any](source Iterator[I], fn func(context.Context, I) (O, error)) Iterator[O] {
	return &mapIter[I, O]{source: source, fn: fn}
}

// Filter keeps only values that satisfy the predicate.
func Filter[T any](source Iterator[T], fn func(T) bool) Iterator[T] {
	return &filterIter[T]{source: source, fn: fn}
}

// Tap calls fn as a side-effect for each value, then passes the value through unchanged.
func Tap[T any](source Iterator[T], fn func(context.Context, T) error) Iterator[T] {
	return &tapIter[T]{source: source, fn: fn}
}

// Take yields at most n values, then completes and closes the source.
func Take[T any](source Iterator[T], n int) Iterator[T] {
	return &takeIter[T]{source: source, remaining: n}
}

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := it.fn(ctx, val)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type filterIter[T any] struct {
	source Iterator[T]
	fn     func(T) bool
}

func (it *filterIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		if it.fn(val) {
			return val, true, nil
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }

type tapIter[T any] struct {
	source Iterator[T]
	fn     func(context.Context, T) error
}

func (it *tapIter[T]) Next(ctx context.Context) (T, bool, error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return val, false, err
	}
	if err := it.fn(ctx, val); err != nil {
		var zero T
		return zero, false, err
	}
	return val, true, nil
}

func (it *tapIter[T]) Close() error { return it.source.Close() }

type takeIter[T any] struct {
	source    Iterator[T]
	remaining int
}

func (it *takeIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if it.remaining <= 0 {
		return zero, false, nil
	}
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	it.remaining--
	if it.remaining == 0 {
		_ = it.source.Close()
	}
	return val, true, nil
}

func (it *takeIter[T]) Close() error { return it.source.Close() }
