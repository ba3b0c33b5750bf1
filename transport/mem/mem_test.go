package mem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/notification"
	"github.com/kbukum/workerbridge/transport"
)

type recorder[T any] struct {
	mu     sync.Mutex
	events []transport.Event[T]
}

func (r *recorder[T]) handle(ev transport.Event[T]) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder[T]) get() []transport.Event[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transport.Event[T](nil), r.events...)
}

func TestChannel_QueuesUntilListen(t *testing.T) {
	ctx := context.Background()
	controller, worker := NewChannel[int, string]()
	defer controller.Close()

	for i := 1; i <= 3; i++ {
		require.NoError(t, controller.Post(ctx, notification.Encode(notification.Next(i))))
	}
	require.NoError(t, controller.Post(ctx, notification.Encode(notification.Complete[int]())))

	var rec recorder[int]
	detach, err := worker.Listen(rec.handle)
	require.NoError(t, err)
	defer detach()

	assert.Eventually(t, func() bool { return rec.len() == 4 }, time.Second, time.Millisecond)
	events := rec.get()
	for i := 0; i < 3; i++ {
		assert.Equal(t, notification.KindNext, events[i].Data.Kind)
		assert.Equal(t, i+1, events[i].Data.Value)
	}
	assert.Equal(t, notification.KindComplete, events[3].Data.Kind)
}

func TestChannel_BothDirections(t *testing.T) {
	ctx := context.Background()
	controller, worker := NewChannel[int, string]()
	defer worker.Close()

	var fromController recorder[int]
	var fromWorker recorder[string]
	_, err := worker.Listen(fromController.handle)
	require.NoError(t, err)
	_, err = controller.Listen(fromWorker.handle)
	require.NoError(t, err)

	require.NoError(t, controller.Post(ctx, notification.Encode(notification.Next(7))))
	require.NoError(t, worker.Post(ctx, notification.Encode(notification.Next("seven"))))

	assert.Eventually(t, func() bool { return fromController.len() == 1 && fromWorker.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 7, fromController.get()[0].Data.Value)
	assert.Equal(t, "seven", fromWorker.get()[0].Data.Value)
}

func TestChannel_TransferList(t *testing.T) {
	ctx := context.Background()
	controller, worker := NewChannel[int, *transport.Buffer]()
	defer controller.Close()

	var rec recorder[*transport.Buffer]
	_, err := controller.Listen(rec.handle)
	require.NoError(t, err)

	buf := transport.NewBuffer([]byte{3, 6, 9})
	require.NoError(t, worker.Post(ctx, notification.Encode(notification.Next(buf)), buf))
	require.NoError(t, worker.Post(ctx, notification.Encode(notification.Complete[*transport.Buffer]())))

	assert.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, time.Millisecond)
	events := rec.get()
	require.Len(t, events[0].Transfer, 1)
	assert.Same(t, buf, events[0].Transfer[0])
	assert.Same(t, buf, events[0].Data.Value)
	assert.Empty(t, events[1].Transfer)

	err = worker.Post(ctx, notification.Encode(notification.Next(buf)), buf, buf)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataClone))
}

func TestChannel_Close(t *testing.T) {
	ctx := context.Background()
	controller, worker := NewChannel[int, int]()

	var rec recorder[int]
	detach, err := worker.Listen(rec.handle)
	require.NoError(t, err)
	defer detach()

	_, err = worker.Listen(rec.handle)
	assert.Error(t, err)

	require.NoError(t, controller.Close())
	require.NoError(t, controller.Close())

	assert.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, time.Millisecond)
	assert.ErrorIs(t, rec.get()[0].Err, transport.ErrClosed)

	assert.ErrorIs(t, worker.Post(ctx, notification.Encode(notification.Next(1))), transport.ErrClosed)
	_, err = controller.Listen(rec.handle)
	assert.ErrorIs(t, err, transport.ErrClosed)
}

func TestChannel_DetachStopsDelivery(t *testing.T) {
	ctx := context.Background()
	controller, worker := NewChannel[int, int]()
	defer controller.Close()

	var first recorder[int]
	detach, err := worker.Listen(first.handle)
	require.NoError(t, err)
	detach()
	detach()

	var second recorder[int]
	_, err = worker.Listen(second.handle)
	require.NoError(t, err)

	require.NoError(t, controller.Post(ctx, notification.Encode(notification.Next(1))))
	assert.Eventually(t, func() bool { return second.len() == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, first.len())
}
