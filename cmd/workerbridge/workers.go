package main

import (
	"context"
	"io"
	"sort"

	"github.com/kbukum/workerbridge/bridge"
	"github.com/kbukum/workerbridge/codec"
	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/pipeline"
	"github.com/kbukum/workerbridge/server"
	"github.com/kbukum/workerbridge/transport"
	"github.com/kbukum/workerbridge/transport/framed"
	"github.com/kbukum/workerbridge/worker"
)

// doubler emits 2*v for every v.
type doubler struct{}

func (doubler) WorkUnit(_ context.Context, v int) (pipeline.Iterator[int], error) {
	return pipeline.Of(v * 2), nil
}

// summer emits the sum of its input once the input completes.
type summer struct{}

func (summer) Work(ctx context.Context, in pipeline.Iterator[int]) (pipeline.Iterator[int], error) {
	out := pipeline.NewSubject[int]()
	go func() {
		sum := 0
		err := pipeline.Drain(ctx, in, func(_ context.Context, v int) error {
			sum += v
			return nil
		})
		if err != nil {
			out.Fail(err)
			return
		}
		out.Emit(sum)
		out.Complete()
	}()
	return out, nil
}

// ScaleRequest asks the scaler to multiply every byte of Data.
type ScaleRequest struct {
	Factor int               `json:"factor" cbor:"factor"`
	Data   *transport.Buffer `json:"data" cbor:"data"`
}

// scaler multiplies bytes and hands the result buffer back by transfer.
type scaler struct{}

func (scaler) WorkUnit(_ context.Context, req ScaleRequest) (pipeline.Iterator[*transport.Buffer], error) {
	if req.Data == nil {
		return nil, errors.InvalidInput("data", "is required")
	}
	in := req.Data.Bytes()
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = byte(int(b) * req.Factor)
	}
	return pipeline.Of(transport.NewBuffer(out)), nil
}

func (scaler) SelectTransferables(b *transport.Buffer) []transport.Transferable {
	return []transport.Transferable{b}
}

// workerEntry knows how to serve one worker over either transport.
type workerEntry struct {
	register func(reg *server.Registry) error
	stdio    func(ctx context.Context, rw io.ReadWriteCloser, c codec.Codec, fopts []framed.Option, opts []bridge.Option) (*bridge.Handle, error)
}

func entry[I, O any](name string, factory worker.Factory, opts ...bridge.Option) workerEntry {
	return workerEntry{
		register: func(reg *server.Registry) error {
			return server.Register[I, O](reg, name, factory, opts...)
		},
		stdio: func(ctx context.Context, rw io.ReadWriteCloser, c codec.Codec, fopts []framed.Option, extra []bridge.Option) (*bridge.Handle, error) {
			port := framed.NewPort[I, O](rw, c, fopts...)
			h, err := bridge.Run[I, O](ctx, port, factory, append(extra, opts...)...)
			if err != nil {
				_ = port.Close()
				return nil, err
			}
			go func() {
				<-h.Done()
				_ = port.Close()
			}()
			return h, nil
		},
	}
}

// catalog lists the workers this binary ships.
func catalog() map[string]workerEntry {
	return map[string]workerEntry{
		"double": entry[int, int]("double", func() any { return doubler{} }),
		"sum":    entry[int, int]("sum", func() any { return summer{} }),
		"scale":  entry[ScaleRequest, *transport.Buffer]("scale", func() any { return scaler{} }),
	}
}

func registerAll(reg *server.Registry, workers map[string]workerEntry) error {
	names := make([]string, 0, len(workers))
	for name := range workers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := workers[name].register(reg); err != nil {
			return err
		}
	}
	return nil
}
