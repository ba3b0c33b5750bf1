// Package mem is an in-process message channel. Envelopes are passed by
// reference and the transfer list travels with them.
package mem

import (
	"context"
	"sync"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/notification"
	"github.com/kbukum/workerbridge/transport"
)

const transportName = "mem"

// NewChannel creates an entangled pair of ports. The controller end sends In
// and receives Out; the worker end does the opposite. Messages posted before
// the receiving side listens are queued.
func NewChannel[In, Out any]() (controller transport.Port[Out, In], worker transport.Port[In, Out]) {
	ch := &channel{}
	toWorker := newMailbox[In]()
	toController := newMailbox[Out]()
	ch.boxes = []closer{toWorker, toController}

	controller = &port[Out, In]{ch: ch, inbox: toController, outbox: toWorker}
	worker = &port[In, Out]{ch: ch, inbox: toWorker, outbox: toController}
	return controller, worker
}

type closer interface{ close() }

type channel struct {
	once   sync.Once
	mu     sync.Mutex
	closed bool
	boxes  []closer
}

func (c *channel) close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		for _, b := range c.boxes {
			b.close()
		}
	})
}

func (c *channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type port[Recv, Send any] struct {
	ch     *channel
	inbox  *mailbox[Recv]
	outbox *mailbox[Send]
}

func (p *port[Recv, Send]) Listen(handler func(transport.Event[Recv])) (func(), error) {
	if p.ch.isClosed() {
		return nil, errors.TransportClosed(transportName)
	}
	return p.inbox.listen(handler)
}

func (p *port[Recv, Send]) Post(ctx context.Context, env notification.Envelope[Send], transfer ...transport.Transferable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ch.isClosed() {
		return errors.TransportClosed(transportName)
	}
	if err := transport.CheckTransfer(transfer); err != nil {
		return err
	}
	var list []transport.Transferable
	if len(transfer) > 0 {
		list = append(list, transfer...)
	}
	return p.outbox.push(transport.Event[Send]{Data: env, Transfer: list})
}

// Close closes both ends of the channel.
func (p *port[Recv, Send]) Close() error {
	p.ch.close()
	return nil
}

// mailbox delivers queued events to its handler from a single goroutine so
// ordering is preserved.
type mailbox[T any] struct {
	mu      sync.Mutex
	queue   []transport.Event[T]
	handler func(transport.Event[T])
	closed  bool
	wake    chan struct{}
}

func newMailbox[T any]() *mailbox[T] {
	m := &mailbox[T]{wake: make(chan struct{}, 1)}
	go m.run()
	return m
}

func (m *mailbox[T]) listen(handler func(transport.Event[T])) (func(), error) {
	m.mu.Lock()
	if m.handler != nil {
		m.mu.Unlock()
		return nil, errors.InvalidInput("handler", "a listener is already attached")
	}
	m.handler = handler
	m.mu.Unlock()
	m.signal()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.handler = nil
			m.mu.Unlock()
		})
	}, nil
}

func (m *mailbox[T]) push(ev transport.Event[T]) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.TransportClosed(transportName)
	}
	m.queue = append(m.queue, ev)
	m.mu.Unlock()
	m.signal()
	return nil
}

func (m *mailbox[T]) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.signal()
}

func (m *mailbox[T]) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mailbox[T]) run() {
	for {
		m.mu.Lock()
		if m.closed {
			m.queue = nil
			h := m.handler
			m.mu.Unlock()
			if h != nil {
				h(transport.Event[T]{Err: errors.TransportClosed(transportName)})
			}
			return
		}
		if m.handler == nil || len(m.queue) == 0 {
			m.mu.Unlock()
			<-m.wake
			continue
		}
		ev := m.queue[0]
		m.queue[0] = transport.Event[T]{}
		m.queue = m.queue[1:]
		h := m.handler
		m.mu.Unlock()
		h(ev)
	}
}
