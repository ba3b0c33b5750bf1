package pipeline

import (
	"context"
	"sync"
)

// Subject is a push-driven sequence with a single consumer.
//
// Producers call Emit, Fail and Complete; none of them block, values are
// queued until the consumer pulls them. Once the subject is terminated every
// further push is ignored. Queued values are delivered before the terminal
// signal.
type Subject[T any] struct {
	mu     sync.Mutex
	queue  []T
	done   bool
	err    error
	closed bool
	signal chan struct{}
}

// NewSubject creates an empty, open subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{signal: make(chan struct{}, 1)}
}

// NewBehaviorSubject creates an open subject that already holds seed.
// It stays open until Complete or Fail is called.
func NewBehaviorSubject[T any](seed T) *Subject[T] {
	s := NewSubject[T]()
	s.Emit(seed)
	return s
}

// Emit queues v. It reports false if the subject is already terminated.
func (s *Subject[T]) Emit(v T) bool {
	s.mu.Lock()
	if s.done || s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	s.notify()
	return true
}

// Fail terminates the subject with err.
func (s *Subject[T]) Fail(err error) bool {
	return s.terminate(err)
}

// Complete terminates the subject successfully.
func (s *Subject[T]) Complete() bool {
	return s.terminate(nil)
}

// Terminated reports whether Fail or Complete has been called.
func (s *Subject[T]) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Next implements Iterator.
func (s *Subject[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			v := s.queue[0]
			s.queue[0] = zero
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return v, true, nil
		}
		if s.done || s.closed {
			err := s.err
			s.mu.Unlock()
			return zero, false, err
		}
		s.mu.Unlock()

		select {
		case <-s.signal:
		case <-ctx.Done():
			return zero, false, ctx.Err()
		}
	}
}

// Close drops queued values and stops accepting new ones.
func (s *Subject[T]) Close() error {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Subject[T]) terminate(err error) bool {
	s.mu.Lock()
	if s.done || s.closed {
		s.mu.Unlock()
		return false
	}
	s.done = true
	s.err = err
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Subject[T]) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}
