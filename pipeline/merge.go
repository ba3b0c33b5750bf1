package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/workerbridge/errors"
)

// MergeMap calls fn for every value of source and merges the resulting
// sequences into one. Inner sequences run concurrently.
//
// Output follows source order: an inner sequence's values are held back
// until every earlier inner sequence has produced its first value or
// finished, and when several values are ready the earliest inner sequence
// goes first. After that, values of different inner sequences interleave as
// they arrive; values of one inner sequence keep their order.
//
// The merged sequence completes once source completed and every inner
// sequence completed. The first failure, from source, from fn or from any
// inner sequence, becomes the terminal error and cancels all other work.
// A panic in fn is recovered into a TRANSFORM_FAILURE error.
func MergeMap[I, O any](ctx context.Context, source Iterator[I], fn func(context.Context, I) (Iterator[O], error)) Iterator[O] {
	emitCtx, stopEmit := context.WithCancel(ctx)
	workCtx, stopWork := context.WithCancel(emitCtx)
	m := &merger[O]{notify: make(chan struct{}, 1)}
	out := make(chan result[O])

	drain := func(s *mergeSlot[O], inner Iterator[O]) {
		defer m.finish(s)
		defer inner.Close()
		for {
			val, ok, err := inner.Next(workCtx)
			if err != nil {
				if workCtx.Err() == nil {
					m.fail(err)
				}
				return
			}
			if !ok {
				return
			}
			m.push(s, val)
		}
	}

	go func() {
		defer m.finishSource()
		for {
			val, ok, err := source.Next(workCtx)
			if err != nil {
				if workCtx.Err() == nil {
					m.fail(err)
				}
				return
			}
			if !ok {
				return
			}
			inner, err := callSafe(workCtx, fn, val)
			if err != nil {
				m.fail(err)
				return
			}
			go drain(m.open(), inner)
		}
	}()

	go func() {
		defer close(out)
		defer stopWork()
		for {
			r, last, ok := m.take()
			if !ok {
				select {
				case <-m.notify:
					continue
				case <-emitCtx.Done():
					return
				}
			}
			if r.err != nil {
				stopWork()
			}
			if last {
				return
			}
			select {
			case out <- r:
			case <-emitCtx.Done():
				return
			}
			if r.err != nil {
				return
			}
		}
	}()

	return &channelIter[O]{
		ch: out,
		closer: func() error {
			stopEmit()
			return source.Close()
		},
	}
}

type mergeSlot[O any] struct {
	queue   []O
	started bool
	done    bool
}

// merger holds inner sequence output in source order until it can be
// emitted.
type merger[O any] struct {
	mu         sync.Mutex
	slots      []*mergeSlot[O]
	sourceDone bool
	err        error
	notify     chan struct{}
}

func (m *merger[O]) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *merger[O]) open() *mergeSlot[O] {
	s := &mergeSlot[O]{}
	m.mu.Lock()
	m.slots = append(m.slots, s)
	m.mu.Unlock()
	return s
}

func (m *merger[O]) push(s *mergeSlot[O], v O) {
	m.mu.Lock()
	s.queue = append(s.queue, v)
	m.mu.Unlock()
	m.signal()
}

func (m *merger[O]) finish(s *mergeSlot[O]) {
	m.mu.Lock()
	s.done = true
	m.mu.Unlock()
	m.signal()
}

func (m *merger[O]) finishSource() {
	m.mu.Lock()
	m.sourceDone = true
	m.mu.Unlock()
	m.signal()
}

func (m *merger[O]) fail(err error) {
	m.mu.Lock()
	if m.err == nil {
		m.err = err
	}
	m.mu.Unlock()
	m.signal()
}

// take returns the next signal to emit. last reports that the merged
// sequence completed; ok is false when nothing can be emitted yet.
func (m *merger[O]) take() (r result[O], last, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return result[O]{err: m.err}, false, true
	}
	for len(m.slots) > 0 && m.slots[0].done && len(m.slots[0].queue) == 0 {
		m.slots[0] = nil
		m.slots = m.slots[1:]
	}
	for _, s := range m.slots {
		if len(s.queue) > 0 {
			v := s.queue[0]
			var zero O
			s.queue[0] = zero
			s.queue = s.queue[1:]
			s.started = true
			return result[O]{val: v, ok: true}, false, true
		}
		if !s.started && !s.done {
			break
		}
	}
	if m.sourceDone && len(m.slots) == 0 {
		return result[O]{}, true, true
	}
	return result[O]{}, false, false
}

func callSafe[I, O any](ctx context.Context, fn func(context.Context, I) (Iterator[O], error), val I) (inner Iterator[O], err error) {
	defer func() {
		if r := recover(); r != nil {
			inner = nil
			err = errors.TransformFailure(fmt.Errorf("panic: %v", r))
		}
	}()
	inner, err = fn(ctx, val)
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return Empty[O](), nil
	}
	return inner, nil
}
