// Package controller drives a worker from the other end of a port: it posts
// an input sequence as notifications and exposes the worker's notifications
// as an output sequence.
package controller

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/notification"
	"github.com/kbukum/workerbridge/pipeline"
	"github.com/kbukum/workerbridge/transport"
)

// Option configures FromWorker.
type Option[I any] func(*options[I])

type options[I any] struct {
	selectInput     func(I) []transport.Transferable
	earlyCompletion bool
	log             *logger.Logger
}

// WithInputTransferables moves the selected parts of every input value to the
// worker instead of copying them.
func WithInputTransferables[I any](fn func(I) []transport.Transferable) Option[I] {
	return func(o *options[I]) { o.selectInput = fn }
}

// WithEarlyCompletion accepts a worker that completes before the input has
// ended, such as a stream that takes only a prefix. The output completes at
// once and the rest of the input is not sent.
func WithEarlyCompletion[I any]() Option[I] {
	return func(o *options[I]) { o.earlyCompletion = true }
}

// WithLogger sets the controller logger.
func WithLogger[I any](l *logger.Logger) Option[I] {
	return func(o *options[I]) { o.log = l }
}

// FromWorker posts input to the worker behind port and returns its output.
//
// The output completes or fails when the worker posts Complete or Error.
// If the worker never completes neither does the output. A worker that
// completes while input is still pending has dropped it: the output fails
// with INPUT_DROPPED once another input value arrives, and completes if the
// input ends instead. WithEarlyCompletion opts out of that check. Closing the
// returned iterator stops sending and detaches from the port; the port itself
// stays open for its owner.
func FromWorker[I, O any](ctx context.Context, port transport.Port[O, I], input pipeline.Iterator[I], opts ...Option[I]) pipeline.Iterator[O] {
	o := &options[I]{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	log := o.log.WithComponent("controller")

	sendCtx, cancel := context.WithCancel(ctx)
	s := &session[I, O]{
		port:        port,
		out:         pipeline.NewSubject[O](),
		selectInput: o.selectInput,
		early:       o.earlyCompletion,
		cancel:      cancel,
	}
	detach, err := port.Listen(s.onEvent)
	if err != nil {
		cancel()
		_ = input.Close()
		return pipeline.Throw[O](err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := s.send(sendCtx, input)
		switch {
		case err == nil || sendCtx.Err() != nil:
		case errors.IsCode(err, errors.ErrCodeTransportClosed):
			// The listener reports the close after every message already read.
			log.Debug("input stopped, channel closed")
		case errors.IsCode(err, errors.ErrCodeInputDropped):
			log.Warn("worker completed before the input ended", logger.ErrorFields("send", err))
			s.out.Fail(err)
		default:
			log.Warn("sending input failed", logger.ErrorFields("send", err))
			s.out.Fail(err)
		}
	}()

	return &workerIter[O]{
		Subject: s.out,
		stop: func() {
			cancel()
			detach()
			wg.Wait()
		},
	}
}

// session pairs one input sequence with the worker's notifications.
type session[I, O any] struct {
	port        transport.Sink[I]
	out         *pipeline.Subject[O]
	selectInput func(I) []transport.Transferable
	early       bool
	cancel      context.CancelFunc

	mu         sync.Mutex
	inputDone  bool
	workerDone bool
}

func (s *session[I, O]) onEvent(ev transport.Event[O]) {
	if ev.Err != nil {
		if stderrors.Is(ev.Err, transport.ErrClosed) {
			s.out.Fail(errors.TransportClosed("worker"))
			return
		}
		s.out.Fail(ev.Err)
		return
	}
	n, err := notification.Decode(ev.Data)
	if err != nil {
		s.out.Fail(err)
		return
	}
	switch n.Kind {
	case notification.KindNext:
		s.out.Emit(n.Value)
	case notification.KindError:
		s.out.Fail(n.Err)
	case notification.KindComplete:
		s.workerCompleted()
	}
}

// workerCompleted resolves the output now if the input has ended, and
// otherwise leaves the decision to the sender.
func (s *session[I, O]) workerCompleted() {
	if s.early {
		s.out.Complete()
		s.cancel()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inputDone {
		s.out.Complete()
		return
	}
	s.workerDone = true
}

// endInput marks the input as ended and reports whether the worker had
// already completed.
func (s *session[I, O]) endInput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputDone = true
	return s.workerDone
}

func (s *session[I, O]) workerFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workerDone
}

// send posts every input value, then the input's terminal signal.
func (s *session[I, O]) send(ctx context.Context, input pipeline.Iterator[I]) error {
	defer input.Close()
	for {
		v, ok, err := input.Next(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if s.endInput() {
				s.out.Fail(err)
				return nil
			}
			return s.port.Post(ctx, notification.Encode(notification.Error[I](err)))
		}
		if !ok {
			if s.endInput() {
				s.out.Complete()
				return nil
			}
			return s.port.Post(ctx, notification.Encode(notification.Complete[I]()))
		}
		if s.workerFinished() {
			return errors.InputDropped("worker completed before the input ended")
		}
		var transfer []transport.Transferable
		if s.selectInput != nil {
			transfer = s.selectInput(v)
		}
		if err := s.port.Post(ctx, notification.Encode(notification.Next(v)), transfer...); err != nil {
			return err
		}
	}
}

type workerIter[O any] struct {
	*pipeline.Subject[O]
	once sync.Once
	stop func()
}

func (it *workerIter[O]) Close() error {
	it.once.Do(it.stop)
	return it.Subject.Close()
}
