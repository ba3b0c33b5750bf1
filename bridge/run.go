package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/observability"
	"github.com/kbukum/workerbridge/pipeline"
	"github.com/kbukum/workerbridge/transport"
	"github.com/kbukum/workerbridge/worker"
)

// wiring owns one worker instance and the stages around it.
type wiring[I, O any] struct {
	handle *Handle
	opts   *options
	log    *logger.Logger

	name     string
	worker   any
	caps     worker.Capabilities
	selector worker.TransferableSelector[O]
	port     transport.Port[I, O]

	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span

	input  *pipeline.Subject[I]
	output pipeline.Iterator[O]
	detach func()
	ready  chan struct{}

	idle atomic.Bool

	postMu    sync.Mutex
	stopped   bool
	stopOnce  sync.Once
	stopAfter func() bool
}

// Run wires a fresh worker from factory to port and starts it.
//
// It fails before touching the port when the worker implements neither
// StreamWorker[I, O] nor UnitWorker[I, O]. Cancelling ctx releases the
// wiring.
func Run[I, O any](ctx context.Context, port transport.Port[I, O], factory worker.Factory, opts ...Option) (*Handle, error) {
	if factory == nil {
		return nil, errors.InvalidInput("factory", "worker factory is nil")
	}
	if port == nil {
		return nil, errors.InvalidInput("port", "port is nil")
	}
	o := newOptions(opts)

	inst := factory()
	caps := worker.Classify[I, O](inst)
	name := o.name
	if name == "" {
		name = worker.TypeName(inst)
	}
	if caps.Mode() == worker.ModeUnsupported {
		err := errors.UnsupportedWorkerShape(worker.TypeName(inst))
		o.log.Error("cannot wire worker", logger.ErrorFields("classify", err))
		o.metrics.RecordError(ctx, name, string(err.Code))
		closeInstance(ctx, inst, o.closeTimeout, o.log)
		return nil, err
	}

	w := &wiring[I, O]{
		handle: newHandle(),
		opts:   o,
		name:   name,
		worker: inst,
		caps:   caps,
		port:   port,
		ready:  make(chan struct{}),
	}
	if caps.Transferable {
		w.selector = inst.(worker.TransferableSelector[O])
	}
	w.log = o.log.WithComponent("bridge").WithFields(map[string]interface{}{
		logger.FieldWiringID: w.handle.id.String(),
		logger.FieldWorker:   name,
		logger.FieldMode:     caps.Mode().String(),
	})
	w.handle.stop = w.stop

	w.ctx, w.cancel = context.WithCancel(ctx)
	if o.tracing {
		w.ctx, w.span = observability.StartSpan(w.ctx, observability.SpanWiring, trace.WithAttributes(
			attribute.String(observability.AttrWiringID, w.handle.id.String()),
			attribute.String(observability.AttrWorker, name),
			attribute.String(observability.AttrMode, caps.Mode().String()),
		))
	}

	if initer, ok := inst.(worker.Initializable); ok {
		if err := initer.Init(w.ctx); err != nil {
			w.closeWorker()
			w.endSpan(err)
			w.cancel()
			return nil, fmt.Errorf("init worker %s: %w", name, err)
		}
	}

	w.input = pipeline.NewSubject[I]()
	detach, err := port.Listen(w.onEvent)
	if err != nil {
		w.closeWorker()
		w.endSpan(err)
		w.cancel()
		return nil, fmt.Errorf("listen for worker %s: %w", name, err)
	}
	w.detach = detach
	w.output = dispatch[I, O](w.ctx, inst, caps, w.input, o.completion, w.completeIdle)

	o.metrics.WiringStarted(w.ctx, name, caps.Mode().String())
	w.postMu.Lock()
	if !w.stopped {
		w.stopAfter = context.AfterFunc(ctx, w.handle.Release)
	}
	w.postMu.Unlock()
	w.log.Info("worker wired", logger.Fields(
		"transferable", caps.Transferable,
		"initializable", caps.Initializable,
		"closeable", caps.Closeable,
	))

	close(w.ready)
	go w.pump()
	return w.handle, nil
}

// stop tears the wiring down exactly once. err is reported by Handle.Err.
func (w *wiring[I, O]) stop(err error) {
	w.stopOnce.Do(func() {
		w.postMu.Lock()
		w.stopped = true
		stopAfter := w.stopAfter
		w.postMu.Unlock()

		if err != nil {
			w.handle.setErr(err)
		}
		if stopAfter != nil {
			stopAfter()
		}
		w.cancel()
		if w.detach != nil {
			w.detach()
		}
		w.input.Close()
		if w.output != nil {
			w.output.Close()
		}
		w.closeWorker()

		w.opts.metrics.WiringEnded(context.WithoutCancel(w.ctx), w.name, w.caps.Mode().String())
		w.endSpan(err)
		if err != nil {
			w.log.Warn("wiring stopped", logger.ErrorFields("stop", err))
		} else {
			w.log.Debug("wiring stopped")
		}
		close(w.handle.done)
	})
}

func (w *wiring[I, O]) closeWorker() {
	closeInstance(w.ctx, w.worker, w.opts.closeTimeout, w.log)
}

// closeInstance closes inst if it is Closeable, bounded by timeout.
func closeInstance(ctx context.Context, inst any, timeout time.Duration, log *logger.Logger) {
	c, ok := inst.(worker.Closeable)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		log.Warn("worker close failed", logger.ErrorFields("close", err))
	}
}

func (w *wiring[I, O]) endSpan(err error) {
	if w.span == nil {
		return
	}
	observability.SetSpanError(w.span, err)
	w.span.End()
}

func (w *wiring[I, O]) recordError(err error) {
	code := errors.ErrCodeInternal
	if appErr, ok := errors.AsAppError(err); ok {
		code = appErr.Code
	}
	w.opts.metrics.RecordError(context.WithoutCancel(w.ctx), w.name, string(code))
}
