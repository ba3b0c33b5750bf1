package server

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/kbukum/workerbridge/bridge"
	"github.com/kbukum/workerbridge/codec"
	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/transport/ws"
	"github.com/kbukum/workerbridge/validation"
	"github.com/kbukum/workerbridge/worker"
)

const namePattern = `^[a-z][a-z0-9-]*$`

type session struct {
	ctx    context.Context
	w      http.ResponseWriter
	r      *http.Request
	codec  codec.Codec
	wsOpts []ws.Option
	opts   []bridge.Option
}

// mountFunc upgrades a request and wires it to a new worker instance.
type mountFunc func(s session) (*bridge.Handle, error)

type entry struct {
	name  string
	mode  worker.Mode
	mount mountFunc
}

// Registry maps worker names to factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds factory under name. One instance is built to check its
// shape; every connection gets its own instance. opts apply after the
// server's own bridge options.
func Register[I, O any](reg *Registry, name string, factory worker.Factory, opts ...bridge.Option) error {
	if err := validation.New().Pattern("name", name, namePattern).Err(); err != nil {
		return err
	}
	if factory == nil {
		return errors.InvalidInput("factory", "must not be nil")
	}

	sample := factory()
	mode := worker.Classify[I, O](sample).Mode()
	if closer, ok := sample.(worker.Closeable); ok {
		_ = closer.Close(context.Background())
	}
	if mode == worker.ModeUnsupported {
		return errors.UnsupportedWorkerShape(worker.TypeName(sample))
	}

	mount := func(s session) (*bridge.Handle, error) {
		port, err := ws.Upgrade[I, O](s.w, s.r, s.codec, s.wsOpts...)
		if err != nil {
			return nil, err
		}
		h, err := bridge.Run[I, O](s.ctx, port, factory, append(s.opts, opts...)...)
		if err != nil {
			_ = port.Close()
			return nil, err
		}
		// The wiring never owns its port; the connection ends with it.
		go func() {
			<-h.Done()
			_ = port.Close()
		}()
		return h, nil
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, dup := reg.entries[name]; dup {
		return errors.InvalidInput("name", name+" is already registered")
	}
	reg.entries[name] = entry{name: name, mode: mode, mount: mount}
	return nil
}

func (r *Registry) lookup(name string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// WorkerInfo describes a registered worker.
type WorkerInfo struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// Workers lists registered workers sorted by name.
func (r *Registry) Workers() []WorkerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]WorkerInfo, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, WorkerInfo{Name: e.name, Mode: e.mode.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered workers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
