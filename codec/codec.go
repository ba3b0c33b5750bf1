// Package codec turns envelopes into bytes for transports that cross a
// process boundary.
package codec

import (
	"sort"
	"strings"
	"sync"

	"github.com/kbukum/workerbridge/errors"
)

// Content types of the built-in codecs.
const (
	ContentTypeJSON = "application/json"
	ContentTypeCBOR = "application/cbor"
)

// Codec marshals values to bytes and back.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Binary is implemented by codecs whose output is not valid UTF-8 text.
type Binary interface {
	Binary() bool
}

// IsBinary reports whether c produces binary output.
func IsBinary(c Codec) bool {
	b, ok := c.(Binary)
	return ok && b.Binary()
}

// Registry maps content types and short names to codecs.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Codec
}

// NewRegistry constructs a registry preloaded with JSON and CBOR.
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]Codec)}
	r.Register(JSON())
	r.Register(CBOR())
	return r
}

// Register adds or replaces a codec.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[c.ContentType()] = c
}

// Get returns a codec by content type, or nil.
func (r *Registry) Get(contentType string) Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byType[contentType]
}

// ByName resolves a short name ("json", "cbor") or a full content type.
func (r *Registry) ByName(name string) (Codec, error) {
	contentType := strings.ToLower(strings.TrimSpace(name))
	if !strings.Contains(contentType, "/") {
		contentType = "application/" + contentType
	}
	if c := r.Get(contentType); c != nil {
		return c, nil
	}
	return nil, errors.NotFound("codec", name).WithDetail("available", r.ContentTypes())
}

// ContentTypes lists registered content types in sorted order.
func (r *Registry) ContentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byType))
	for ct := range r.byType {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}
