package bridge

import (
	"context"
	"sync"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/notification"
	"github.com/kbukum/workerbridge/transport"
)

// posted is one recorded outbound call.
type posted[O any] struct {
	env         notification.Envelope[O]
	transfer    []transport.Transferable
	hasTransfer bool
}

// recordingPort delivers inbound events synchronously and records posts.
type recordingPort[I, O any] struct {
	mu       sync.Mutex
	handler  func(transport.Event[I])
	listens  int
	detached bool
	posts    []posted[O]

	// holdComplete, when set, blocks a Complete post until it is closed.
	holdComplete chan struct{}
	holding      bool
}

func newRecordingPort[I, O any]() *recordingPort[I, O] {
	return &recordingPort[I, O]{}
}

func (p *recordingPort[I, O]) Listen(handler func(transport.Event[I])) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listens++
	p.handler = handler
	p.detached = false
	return func() {
		p.mu.Lock()
		p.handler = nil
		p.detached = true
		p.mu.Unlock()
	}, nil
}

func (p *recordingPort[I, O]) Post(_ context.Context, env notification.Envelope[O], transfer ...transport.Transferable) error {
	if err := transport.CheckTransfer(transfer); err != nil {
		return err
	}
	if env.Kind == notification.KindComplete && p.holdComplete != nil {
		p.mu.Lock()
		p.holding = true
		p.mu.Unlock()
		<-p.holdComplete
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, posted[O]{env: env, transfer: transfer, hasTransfer: transfer != nil})
	return nil
}

func (p *recordingPort[I, O]) Close() error { return nil }

func (p *recordingPort[I, O]) deliver(ev transport.Event[I]) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (p *recordingPort[I, O]) next(v I) {
	p.deliver(transport.Event[I]{Data: notification.Encode(notification.Next(v))})
}

func (p *recordingPort[I, O]) fail(err error) {
	p.deliver(transport.Event[I]{Data: notification.Encode(notification.Error[I](err))})
}

func (p *recordingPort[I, O]) complete() {
	p.deliver(transport.Event[I]{Data: notification.Encode(notification.Complete[I]())})
}

func (p *recordingPort[I, O]) closeChannel() {
	p.deliver(transport.Event[I]{Err: errors.TransportClosed("test")})
}

func (p *recordingPort[I, O]) snapshot() []posted[O] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]posted[O](nil), p.posts...)
}

func (p *recordingPort[I, O]) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.posts)
}

// completing reports whether a Complete post is being held.
func (p *recordingPort[I, O]) completing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holding
}

func (p *recordingPort[I, O]) isDetached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detached
}
