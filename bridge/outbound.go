package bridge

import (
	"fmt"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/notification"
	"github.com/kbukum/workerbridge/transport"
)

// errStopped is returned by post once the wiring has stopped.
var errStopped = errors.TransportClosed("wiring")

// pump posts every signal of the output sequence until a terminal one.
func (w *wiring[I, O]) pump() {
	for {
		v, ok, err := w.output.Next(w.ctx)
		if w.ctx.Err() != nil {
			return
		}
		switch {
		case err != nil:
			failure := errors.TransformFailure(err)
			w.recordError(failure)
			w.log.Warn("worker output failed", logger.ErrorFields("work", failure))
			if perr := w.post(notification.Error[O](failure)); perr != nil {
				w.stop(perr)
				return
			}
			w.stop(failure)
			return
		case !ok:
			if perr := w.post(notification.Complete[O]()); perr != nil {
				w.stop(perr)
				return
			}
			w.log.Debug("worker output completed")
			w.stop(nil)
			return
		default:
			if !w.postValue(v) {
				return
			}
		}
	}
}

// postValue posts one Next. A worker that selects transferables always
// posts with a transfer list, possibly empty; any other worker posts none.
func (w *wiring[I, O]) postValue(v O) bool {
	var err error
	if w.selector != nil {
		var transfer []transport.Transferable
		transfer, err = w.selectTransferables(v)
		if err == nil {
			err = w.post(notification.Next(v), transfer...)
		}
	} else {
		err = w.post(notification.Next(v))
	}
	if err == nil {
		return true
	}
	if errors.IsCode(err, errors.ErrCodeTransportClosed) {
		w.stop(err)
		return false
	}

	// The value could not be handed over; report it as the terminal error.
	failure := errors.TransformFailure(err)
	w.recordError(failure)
	if perr := w.post(notification.Error[O](failure)); perr != nil {
		w.stop(perr)
		return false
	}
	w.stop(failure)
	return false
}

func (w *wiring[I, O]) selectTransferables(v O) (transfer []transport.Transferable, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.TransformFailure(fmt.Errorf("panic selecting transferables: %v", r))
		}
	}()
	transfer = w.selector.SelectTransferables(v)
	if transfer == nil {
		transfer = []transport.Transferable{}
	}
	return transfer, nil
}

// post sends one notification unless the wiring has stopped. Holding postMu
// across the send means no post can follow a completed stop.
func (w *wiring[I, O]) post(n notification.Notification[O], transfer ...transport.Transferable) error {
	w.postMu.Lock()
	defer w.postMu.Unlock()
	if w.stopped {
		return errStopped
	}

	env := notification.Encode(n)
	if err := w.port.Post(w.ctx, env, transfer...); err != nil {
		w.log.Warn("post failed", logger.Fields(
			logger.FieldDirection, "outbound",
			logger.FieldKind, n.Kind.String(),
			logger.FieldError, err.Error(),
		))
		return err
	}
	w.opts.metrics.MessagePosted(w.ctx, w.name, string(n.Kind), len(transfer))
	if n.IsTerminal() {
		w.log.Debug("posted terminal notification", logger.Fields(logger.FieldKind, n.Kind.String()))
	}
	return nil
}
