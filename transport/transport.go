// Package transport defines the message channel a worker and its controller
// talk over.
//
// A Port is one end of a channel: it listens for inbound events and posts
// outbound envelopes, optionally with a transfer list. Implementations live in
// the sub-packages: mem (in-process), framed (length-prefixed byte stream) and
// ws (websocket).
package transport

import (
	"context"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/notification"
)

// ErrClosed is reported by a port once the channel is closed. It matches any
// TRANSPORT_CLOSED AppError under errors.Is.
var ErrClosed = errors.TransportClosed("message")

// Event is one inbound message. Err is set when the message could not be
// turned into an envelope, or when the channel closed.
type Event[T any] struct {
	Data     notification.Envelope[T]
	Transfer []Transferable
	Err      error
}

// Source delivers inbound events to a single handler, in arrival order.
type Source[T any] interface {
	// Listen attaches handler. The returned func detaches it and may be
	// called more than once.
	Listen(handler func(Event[T])) (detach func(), err error)
}

// Sink posts envelopes to the other end of the channel.
type Sink[T any] interface {
	Post(ctx context.Context, env notification.Envelope[T], transfer ...Transferable) error
}

// Port is one end of a channel: it receives Recv and sends Send.
type Port[Recv, Send any] interface {
	Source[Recv]
	Sink[Send]
	Close() error
}
