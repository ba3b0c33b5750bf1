// Package worker defines the capabilities a worker may expose and classifies
// a worker instance by the ones it actually implements.
//
// A worker is any value. It becomes usable when it implements StreamWorker
// or UnitWorker; TransferableSelector, Initializable and Closeable are
// optional and orthogonal.
package worker

import (
	"context"

	"github.com/kbukum/workerbridge/pipeline"
	"github.com/kbukum/workerbridge/transport"
)

// StreamWorker transforms the whole input sequence once. The returned
// sequence may never complete.
type StreamWorker[I, O any] interface {
	Work(ctx context.Context, input pipeline.Iterator[I]) (pipeline.Iterator[O], error)
}

// UnitWorker transforms one input value into a sequence of outputs.
type UnitWorker[I, O any] interface {
	WorkUnit(ctx context.Context, input I) (pipeline.Iterator[O], error)
}

// TransferableSelector names the parts of an output value whose ownership
// should move to the receiver when the value is posted.
type TransferableSelector[O any] interface {
	SelectTransferables(output O) []transport.Transferable
}

// Initializable is optionally implemented by workers that need setup before
// the first input is delivered.
type Initializable interface {
	Init(ctx context.Context) error
}

// Closeable is optionally implemented by workers holding resources that must
// be released when the wiring is released.
type Closeable interface {
	Close(ctx context.Context) error
}

// Factory builds a fresh worker instance for one wiring.
type Factory func() any

// Func adapts a plain function to UnitWorker.
type Func[I, O any] func(ctx context.Context, input I) (pipeline.Iterator[O], error)

// WorkUnit implements UnitWorker.
func (f Func[I, O]) WorkUnit(ctx context.Context, input I) (pipeline.Iterator[O], error) {
	return f(ctx, input)
}

// StreamFunc adapts a plain function to StreamWorker.
type StreamFunc[I, O any] func(ctx context.Context, input pipeline.Iterator[I]) (pipeline.Iterator[O], error)

// Work implements StreamWorker.
func (f StreamFunc[I, O]) Work(ctx context.Context, input pipeline.Iterator[I]) (pipeline.Iterator[O], error) {
	return f(ctx, input)
}
