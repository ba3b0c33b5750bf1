package bridge

import (
	"sync"

	"github.com/google/uuid"
)

// Handle controls one live wiring.
type Handle struct {
	id   uuid.UUID
	stop func(error)
	done chan struct{}

	mu  sync.Mutex
	err error
}

func newHandle() *Handle {
	return &Handle{id: uuid.New(), done: make(chan struct{})}
}

// ID identifies the wiring in logs and traces.
func (h *Handle) ID() uuid.UUID { return h.id }

// Release stops every stage, detaches the transport listener and closes the
// worker. Results still being produced are never posted. Calling Release
// more than once is a no-op.
func (h *Handle) Release() { h.stop(nil) }

// Done is closed once the wiring has stopped, for any reason.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the error that ended the wiring: a transform failure that was
// posted, an undecodable inbound message or a failed post. It is nil while
// the wiring runs and when it completed or was released.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}
