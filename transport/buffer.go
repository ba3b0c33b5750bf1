package transport

import (
	"encoding/json"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/kbukum/workerbridge/errors"
)

// Transferable is a value whose ownership moves to the receiver when it is
// named in a transfer list. After a successful transfer the sender's handle
// is detached and reads as empty. Implementations must be comparable,
// normally pointer types.
type Transferable interface {
	// Transfer detaches the value and hands its bytes over.
	Transfer() ([]byte, error)
	// Detached reports whether ownership has already moved.
	Detached() bool
}

// Buffer is a transferable byte buffer.
type Buffer struct {
	mu       sync.Mutex
	data     []byte
	detached bool
}

var _ Transferable = (*Buffer)(nil)

// NewBuffer takes ownership of data.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the buffer contents, or nil once detached.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Len returns the buffer length, zero once detached.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Detached implements Transferable.
func (b *Buffer) Detached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.detached
}

// Transfer implements Transferable. A second transfer is a DATA_CLONE error.
func (b *Buffer) Transfer() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.detached {
		return nil, errors.DataClone("buffer is already detached")
	}
	data := b.data
	b.data = nil
	b.detached = true
	return data, nil
}

func (b *Buffer) snapshot() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.detached {
		return nil, errors.DataClone("cannot serialize a detached buffer")
	}
	return b.data, nil
}

// MarshalJSON encodes the contents as a base64 string.
func (b *Buffer) MarshalJSON() ([]byte, error) {
	data, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(data)
}

// UnmarshalJSON decodes a base64 string.
func (b *Buffer) UnmarshalJSON(raw []byte) error {
	var data []byte
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}
	b.mu.Lock()
	b.data, b.detached = data, false
	b.mu.Unlock()
	return nil
}

// MarshalCBOR encodes the contents as a CBOR byte string.
func (b *Buffer) MarshalCBOR() ([]byte, error) {
	data, err := b.snapshot()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(data)
}

// UnmarshalCBOR decodes a CBOR byte string.
func (b *Buffer) UnmarshalCBOR(raw []byte) error {
	var data []byte
	if err := cbor.Unmarshal(raw, &data); err != nil {
		return err
	}
	b.mu.Lock()
	b.data, b.detached = data, false
	b.mu.Unlock()
	return nil
}
