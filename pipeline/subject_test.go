package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject_QueuedValuesThenComplete(t *testing.T) {
	s := NewSubject[int]()
	assert.True(t, s.Emit(1))
	assert.True(t, s.Emit(2))
	assert.True(t, s.Complete())

	got, err := Collect[int](context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
}

func TestSubject_FailAfterValues(t *testing.T) {
	boom := errors.New("boom")
	s := NewSubject[string]()
	s.Emit("a")
	s.Fail(boom)

	got, err := Collect[string](context.Background(), s)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, got)
}

func TestSubject_IgnoresPushesAfterTermination(t *testing.T) {
	s := NewSubject[int]()
	require.True(t, s.Complete())

	assert.False(t, s.Emit(1))
	assert.False(t, s.Fail(errors.New("late")))
	assert.False(t, s.Complete())
	assert.True(t, s.Terminated())

	_, ok, err := s.Next(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestSubject_NextWaitsForEmit(t *testing.T) {
	s := NewSubject[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Emit(42)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, ok, err := s.Next(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestSubject_NextHonoursContext(t *testing.T) {
	s := NewSubject[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := s.Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubject_PreservesOrderUnderConcurrentEmit(t *testing.T) {
	s := NewSubject[int]()
	const n = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			s.Emit(i)
		}
		s.Complete()
	}()

	got, err := Collect[int](context.Background(), s)
	wg.Wait()
	require.NoError(t, err)
	require.Len(t, got, n)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestSubject_CloseDropsQueue(t *testing.T) {
	s := NewSubject[int]()
	s.Emit(1)
	require.NoError(t, s.Close())

	_, ok, err := s.Next(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.False(t, s.Emit(2))
}

func TestBehaviorSubject_StaysOpen(t *testing.T) {
	s := NewBehaviorSubject(1)

	v, ok, err := s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok, err = s.Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
