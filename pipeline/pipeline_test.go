package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf_Collect(t *testing.T) {
	got, err := Collect(context.Background(), Of(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestEmpty(t *testing.T) {
	got, err := Collect(context.Background(), Empty[string]())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestThrow(t *testing.T) {
	boom := errors.New("boom")
	got, err := Collect(context.Background(), Throw[int](boom))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, got)
}

func TestNever_BlocksUntilContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok, err := Never[int]().Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNever_CloseUnblocks(t *testing.T) {
	it := Never[int]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok, err := it.Next(context.Background())
		assert.False(t, ok)
		assert.NoError(t, err)
	}()

	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestFromChannel(t *testing.T) {
	ch := make(chan string, 2)
	ch <- "a"
	ch <- "b"
	close(ch)

	got, err := Collect(context.Background(), FromChannel(ch))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestMap(t *testing.T) {
	strs := Map(Of(1, 2, 3), func(_ context.Context, n int) (string, error) {
		return fmt.Sprintf("#%d", n*2), nil
	})
	got, err := Collect(context.Background(), strs)
	require.NoError(t, err)
	assert.Equal(t, []string{"#2", "#4", "#6"}, got)
}

func TestMap_Error(t *testing.T) {
	fail := Map(Of(1, 2, 3), func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errors.New("bad value")
		}
		return n, nil
	})
	got, err := Collect(context.Background(), fail)
	require.Error(t, err)
	assert.Equal(t, []int{1}, got)
}

func TestFilter(t *testing.T) {
	evens := Filter(Of(1, 2, 3, 4, 5, 6), func(n int) bool { return n%2 == 0 })
	got, err := Collect(context.Background(), evens)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, got)
}

func TestTap(t *testing.T) {
	var seen []int
	tapped := Tap(Of(1, 2), func(_ context.Context, n int) error {
		seen = append(seen, n)
		return nil
	})
	got, err := Collect(context.Background(), tapped)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestTake_StopsNeverEndingSource(t *testing.T) {
	s := NewBehaviorSubject(7)
	got, err := Collect(context.Background(), Take[int](s, 1))
	require.NoError(t, err)
	assert.Equal(t, []int{7}, got)
	assert.False(t, s.Emit(8), "Take closes its source once satisfied")
}

func TestDrain(t *testing.T) {
	var sum int
	err := Drain(context.Background(), Of(1, 2, 3), func(_ context.Context, n int) error {
		sum += n
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 6, sum)

	stop := errors.New("stop")
	err = Drain(context.Background(), Of(1, 2, 3), func(_ context.Context, n int) error {
		if n == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
}
