package worker

import (
	"fmt"
)

// Mode is the invocation style picked for a worker.
type Mode int

const (
	ModeUnsupported Mode = iota
	ModeUnit
	ModeStream
)

func (m Mode) String() string {
	switch m {
	case ModeUnit:
		return "unit"
	case ModeStream:
		return "stream"
	default:
		return "unsupported"
	}
}

// Capabilities records which optional operations a worker implements for a
// given input/output type pair. It is computed once and never changes.
type Capabilities struct {
	Unit          bool
	Stream        bool
	Transferable  bool
	Initializable bool
	Closeable     bool
}

// Classify inspects w. The check is purely structural: only the presence of
// the operations with the right signatures matters.
func Classify[I, O any](w any) Capabilities {
	if w == nil {
		return Capabilities{}
	}
	_, unit := w.(UnitWorker[I, O])
	_, stream := w.(StreamWorker[I, O])
	_, transferable := w.(TransferableSelector[O])
	_, initializable := w.(Initializable)
	_, closeable := w.(Closeable)
	return Capabilities{
		Unit:          unit,
		Stream:        stream,
		Transferable:  transferable,
		Initializable: initializable,
		Closeable:     closeable,
	}
}

// HasUnitWork reports whether w implements the per-item transform.
func HasUnitWork[I, O any](w any) bool {
	return Classify[I, O](w).Unit
}

// HasTransferables reports whether w implements transferable selection.
func HasTransferables[O any](w any) bool {
	_, ok := w.(TransferableSelector[O])
	return ok
}

// Mode returns the invocation style. A worker exposing both transforms runs
// in unit mode.
func (c Capabilities) Mode() Mode {
	switch {
	case c.Unit:
		return ModeUnit
	case c.Stream:
		return ModeStream
	default:
		return ModeUnsupported
	}
}

// TypeName describes w for logs and errors.
func TypeName(w any) string {
	if w == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", w)
}
