// Package notification defines the three-variant signal (next, error,
// complete) that crosses a worker transport, and its envelope wire form.
package notification

import (
	"github.com/google/uuid"

	"github.com/kbukum/workerbridge/errors"
)

// Kind tags a notification.
type Kind string

const (
	KindNext     Kind = "N"
	KindError    Kind = "E"
	KindComplete Kind = "C"
)

func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindError:
		return "error"
	case KindComplete:
		return "complete"
	default:
		return "unknown(" + string(k) + ")"
	}
}

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	return k == KindNext || k == KindError || k == KindComplete
}

// Notification is a value, a failure, or the completion of a sequence.
type Notification[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Next wraps a produced value.
func Next[T any](v T) Notification[T] {
	return Notification[T]{Kind: KindNext, Value: v}
}

// Error wraps a failure.
func Error[T any](err error) Notification[T] {
	return Notification[T]{Kind: KindError, Err: err}
}

// Complete signals successful termination.
func Complete[T any]() Notification[T] {
	return Notification[T]{Kind: KindComplete}
}

// IsTerminal reports whether no further notification may follow n.
func (n Notification[T]) IsTerminal() bool {
	return n.Kind == KindError || n.Kind == KindComplete
}

// Envelope is the transport form of a Notification. Value is meaningful only
// for KindNext and Error only for KindError.
type Envelope[T any] struct {
	ID    uuid.UUID         `json:"id" cbor:"id"`
	Kind  Kind              `json:"kind" cbor:"kind"`
	Value T                 `json:"value,omitempty" cbor:"value,omitempty"`
	Error *errors.ErrorBody `json:"error,omitempty" cbor:"error,omitempty"`
}

// Encode wraps n into an envelope with a fresh ID.
// Errors keep their code and message; causes and stacks are dropped.
func Encode[T any](n Notification[T]) Envelope[T] {
	env := Envelope[T]{ID: uuid.New(), Kind: n.Kind}
	switch n.Kind {
	case KindNext:
		env.Value = n.Value
	case KindError:
		env.Error = errors.ToBody(n.Err)
		if env.Error == nil {
			env.Error = &errors.ErrorBody{Code: errors.ErrCodeInternal, Message: "error notification without error"}
		}
	}
	return env
}

// Decode unwraps an envelope. A value carried by an error or complete
// envelope is ignored. An unknown kind is a DECODE_FAILURE.
func Decode[T any](env Envelope[T]) (Notification[T], error) {
	switch env.Kind {
	case KindNext:
		return Next(env.Value), nil
	case KindError:
		return Error[T](errors.FromBody(env.Error)), nil
	case KindComplete:
		return Complete[T](), nil
	default:
		return Notification[T]{}, errors.DecodeFailure("unknown notification kind " + string(env.Kind))
	}
}
