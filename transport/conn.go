package transport

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"sync"

	"github.com/kbukum/workerbridge/codec"
	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/notification"
)

// Conn carries whole messages over a byte-oriented link.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// ConnPort turns a Conn into a Port by encoding envelopes with a codec.
//
// Transfer lists cannot cross a byte link; the receiver always sees an empty
// list. Listed transferables are detached on the sending side once the
// message has been written.
type ConnPort[Recv, Send any] struct {
	conn  Conn
	codec codec.Codec
	name  string
	log   *logger.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	handler   func(Event[Recv])
	reading   bool
	closed    bool
	closeOnce sync.Once
}

// ConnOption configures a ConnPort.
type ConnOption func(*connOptions)

type connOptions struct {
	name string
	log  *logger.Logger
}

// WithConnName names the transport in logs and errors.
func WithConnName(name string) ConnOption {
	return func(o *connOptions) { o.name = name }
}

// WithConnLogger sets the logger used for dropped messages.
func WithConnLogger(l *logger.Logger) ConnOption {
	return func(o *connOptions) { o.log = l }
}

// NewConnPort wraps conn. Reading starts with the first Listen call.
func NewConnPort[Recv, Send any](conn Conn, c codec.Codec, opts ...ConnOption) *ConnPort[Recv, Send] {
	o := connOptions{name: "conn"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	return &ConnPort[Recv, Send]{
		conn:  conn,
		codec: c,
		name:  o.name,
		log: o.log.WithComponent("transport").WithFields(map[string]interface{}{
			logger.FieldTransport: o.name,
			logger.FieldCodec:     c.ContentType(),
		}),
	}
}

// Listen implements Source.
func (p *ConnPort[Recv, Send]) Listen(handler func(Event[Recv])) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.TransportClosed(p.name)
	}
	if p.handler != nil {
		return nil, errors.InvalidInput("handler", "a listener is already attached")
	}
	p.handler = handler
	if !p.reading {
		p.reading = true
		go p.readLoop()
	}
	detach := func() {
		p.mu.Lock()
		p.handler = nil
		p.mu.Unlock()
	}
	return detach, nil
}

// Post implements Sink.
func (p *ConnPort[Recv, Send]) Post(ctx context.Context, env notification.Envelope[Send], transfer ...Transferable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.isClosed() {
		return errors.TransportClosed(p.name)
	}
	if err := CheckTransfer(transfer); err != nil {
		return err
	}
	data, err := p.codec.Marshal(env)
	if err != nil {
		if errors.IsAppError(err) {
			return err
		}
		return errors.DataClone("cannot encode envelope").WithCause(err)
	}

	p.writeMu.Lock()
	err = p.conn.WriteMessage(data)
	p.writeMu.Unlock()
	if err != nil {
		if isClosedErr(err) {
			return errors.TransportClosed(p.name).WithCause(err)
		}
		return err
	}
	return Detach(transfer)
}

// Close closes the underlying link. Safe to call more than once.
func (p *ConnPort[Recv, Send]) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		err = p.conn.Close()
	})
	return err
}

func (p *ConnPort[Recv, Send]) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *ConnPort[Recv, Send]) deliver(ev Event[Recv]) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h == nil {
		p.log.Debug("dropping message with no listener")
		return
	}
	h(ev)
}

func (p *ConnPort[Recv, Send]) readLoop() {
	for {
		data, err := p.conn.ReadMessage()
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeDecodeFailure) {
				p.deliver(Event[Recv]{Err: err})
				return
			}
			if !isClosedErr(err) && !p.isClosed() {
				p.log.Warn("read failed", logger.ErrorFields("read", err))
			}
			p.deliver(Event[Recv]{Err: errors.TransportClosed(p.name).WithCause(err)})
			return
		}
		var env notification.Envelope[Recv]
		if err := p.codec.Unmarshal(data, &env); err != nil {
			p.deliver(Event[Recv]{Err: errors.DecodeFailure(err.Error()).WithCause(err)})
			continue
		}
		p.deliver(Event[Recv]{Data: env})
	}
}

func isClosedErr(err error) bool {
	return stderrors.Is(err, io.EOF) ||
		stderrors.Is(err, io.ErrClosedPipe) ||
		stderrors.Is(err, net.ErrClosed) ||
		errors.IsCode(err, errors.ErrCodeTransportClosed)
}
