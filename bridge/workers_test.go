package bridge

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/kbukum/workerbridge/pipeline"
	"github.com/kbukum/workerbridge/transport"
)

type doubler struct{}

func (doubler) WorkUnit(_ context.Context, n int) (pipeline.Iterator[int], error) {
	return pipeline.Of(n * 2), nil
}

// tripler scales a buffer in place and hands it back.
type tripler struct{}

func (tripler) WorkUnit(_ context.Context, b *transport.Buffer) (pipeline.Iterator[*transport.Buffer], error) {
	data := b.Bytes()
	for i := range data {
		data[i] *= 3
	}
	return pipeline.Of(b), nil
}

func (tripler) SelectTransferables(b *transport.Buffer) []transport.Transferable {
	return []transport.Transferable{b}
}

// seeded ignores its input and never completes.
type seeded struct{}

func (seeded) Work(context.Context, pipeline.Iterator[int]) (pipeline.Iterator[int], error) {
	return pipeline.NewBehaviorSubject(1), nil
}

type passthrough struct{}

func (passthrough) Work(_ context.Context, in pipeline.Iterator[int]) (pipeline.Iterator[int], error) {
	return in, nil
}

// noSelection selects no transferables for any value.
type noSelection struct{ doubler }

func (noSelection) SelectTransferables(int) []transport.Transferable { return nil }

type failing struct{}

func (failing) WorkUnit(_ context.Context, n int) (pipeline.Iterator[int], error) {
	if n < 0 {
		return nil, stderrors.New("negative input")
	}
	return pipeline.Of(n), nil
}

type panicking struct{}

func (panicking) WorkUnit(context.Context, int) (pipeline.Iterator[int], error) {
	panic("unit exploded")
}

type panickingStream struct{}

func (panickingStream) Work(context.Context, pipeline.Iterator[int]) (pipeline.Iterator[int], error) {
	panic("stream exploded")
}

// fanout emits each input twice with a delay in between.
type fanout struct{}

func (fanout) WorkUnit(ctx context.Context, n int) (pipeline.Iterator[int], error) {
	s := pipeline.NewSubject[int]()
	go func() {
		s.Emit(n)
		select {
		case <-time.After(5 * time.Millisecond):
		case <-ctx.Done():
			return
		}
		s.Emit(n * 10)
		s.Complete()
	}()
	return s, nil
}

// lifecycleWorker counts Init and Close calls.
type lifecycleWorker struct {
	doubler
	initErr error
	inits   atomic.Int32
	closes  atomic.Int32
}

func (w *lifecycleWorker) Init(context.Context) error {
	w.inits.Add(1)
	return w.initErr
}

func (w *lifecycleWorker) Close(context.Context) error {
	w.closes.Add(1)
	return nil
}

type duplicateSelection struct{ tripler }

func (duplicateSelection) SelectTransferables(b *transport.Buffer) []transport.Transferable {
	return []transport.Transferable{b, b}
}

type shapeless struct{}

func (shapeless) Transform(int) int { return 0 }

// closeableShapeless has a Close but no work method.
type closeableShapeless struct {
	shapeless
	closes atomic.Int32
}

func (w *closeableShapeless) Close(context.Context) error {
	w.closes.Add(1)
	return nil
}

// rawBytes is a transferable value type that cannot be compared.
type rawBytes struct{ b []byte }

func (r rawBytes) Transfer() ([]byte, error) { return r.b, nil }
func (r rawBytes) Detached() bool            { return false }

// rawSelection hands over a value-typed transferable for each output.
type rawSelection struct{ doubler }

func (rawSelection) SelectTransferables(n int) []transport.Transferable {
	return []transport.Transferable{rawBytes{b: []byte{byte(n)}}}
}

func factoryOf(w any) func() any {
	return func() any { return w }
}
