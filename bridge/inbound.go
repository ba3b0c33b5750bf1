package bridge

import (
	stderrors "errors"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/notification"
	"github.com/kbukum/workerbridge/transport"
)

// onEvent feeds one inbound event into the input sequence. The transport
// calls it from a single goroutine, so input order is arrival order.
func (w *wiring[I, O]) onEvent(ev transport.Event[I]) {
	<-w.ready

	if ev.Err != nil {
		if stderrors.Is(ev.Err, transport.ErrClosed) {
			w.log.Debug("transport closed", logger.Fields(logger.FieldDirection, "inbound"))
			w.stop(nil)
			return
		}
		w.failInbound(ev.Err)
		return
	}

	n, err := notification.Decode(ev.Data)
	if err != nil {
		w.failInbound(err)
		return
	}
	w.opts.metrics.MessageReceived(w.ctx, w.name, string(n.Kind))

	var accepted bool
	switch n.Kind {
	case notification.KindNext:
		accepted = w.input.Emit(n.Value)
	case notification.KindError:
		accepted = w.input.Fail(n.Err)
	case notification.KindComplete:
		accepted = w.input.Complete()
	}
	if !accepted && n.Kind == notification.KindNext && w.idle.Load() {
		err := errors.InputDropped("unit wiring completed when idle")
		w.log.Warn("input arrived after idle completion", logger.Fields(
			logger.FieldDirection, "inbound",
			logger.FieldError, err.Error(),
		))
		w.recordError(err)
		w.handle.setErr(err)
		return
	}
	if !accepted {
		w.log.Debug("ignoring message after input terminated", logger.Fields(
			logger.FieldDirection, "inbound",
			logger.FieldKind, n.Kind.String(),
		))
	}
}

// completeIdle ends the input of a CompleteWhenIdle wiring.
func (w *wiring[I, O]) completeIdle() {
	w.idle.Store(true)
	if !w.input.Complete() {
		w.idle.Store(false)
	}
}

// failInbound stops the wiring on a message that is not a notification.
// Nothing is posted back; the failure is reported through the handle.
func (w *wiring[I, O]) failInbound(err error) {
	if !errors.IsCode(err, errors.ErrCodeDecodeFailure) {
		err = errors.DecodeFailure(err.Error()).WithCause(err)
	}
	w.log.Error("undecodable inbound message", logger.ErrorFields("decode", err))
	w.recordError(err)
	w.stop(err)
}
