package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/pipeline"
	"github.com/kbukum/workerbridge/worker"
)

// dispatch builds the output sequence for a classified worker.
// With CompleteWhenIdle, onIdle completes the input once no unit is running.
func dispatch[I, O any](ctx context.Context, w any, caps worker.Capabilities, input pipeline.Iterator[I], completion UnitCompletion, onIdle func()) pipeline.Iterator[O] {
	if caps.Mode() == worker.ModeUnit {
		fn := w.(worker.UnitWorker[I, O]).WorkUnit
		if completion == CompleteWhenIdle {
			fn = trackIdle[I, O](onIdle, fn)
		}
		return pipeline.MergeMap[I, O](ctx, input, fn)
	}

	out, err := callStream(ctx, w.(worker.StreamWorker[I, O]), input)
	if err != nil {
		return pipeline.Throw[O](errors.TransformFailure(err))
	}
	if out == nil {
		return pipeline.Empty[O]()
	}
	return out
}

// callStream invokes the stream transform once, turning a panic into an error.
func callStream[I, O any](ctx context.Context, w worker.StreamWorker[I, O], input pipeline.Iterator[I]) (out pipeline.Iterator[O], err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.TransformFailure(fmt.Errorf("panic: %v", r))
		}
	}()
	return w.Work(ctx, input)
}

type unitFunc[I, O any] func(context.Context, I) (pipeline.Iterator[O], error)

// trackIdle calls onIdle when the last running unit finishes. Values
// already queued on the input are still delivered after it.
func trackIdle[I, O any](onIdle func(), fn unitFunc[I, O]) unitFunc[I, O] {
	var (
		mu       sync.Mutex
		inflight int
	)
	finished := func() {
		mu.Lock()
		inflight--
		idle := inflight == 0
		mu.Unlock()
		if idle {
			onIdle()
		}
	}

	return func(ctx context.Context, v I) (pipeline.Iterator[O], error) {
		mu.Lock()
		inflight++
		mu.Unlock()

		inner, err := fn(ctx, v)
		if err != nil {
			finished()
			return nil, err
		}
		if inner == nil {
			inner = pipeline.Empty[O]()
		}
		return &unitIter[O]{Iterator: inner, onClose: finished}, nil
	}
}

// unitIter reports when MergeMap is done with one unit's sequence.
type unitIter[O any] struct {
	pipeline.Iterator[O]
	once    sync.Once
	onClose func()
}

func (it *unitIter[O]) Close() error {
	err := it.Iterator.Close()
	it.once.Do(it.onClose)
	return err
}
