package fabric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushPopPreservesOrder(t *testing.T) {
	q := NewQueue[int](4)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, 1))
	require.NoError(t, q.Push(ctx, 2))
	require.NoError(t, q.Push(ctx, 3))

	for _, want := range []int{1, 2, 3} {
		got, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestQueueTryPushFailsWhenFull(t *testing.T) {
	q := NewQueue[int](1)
	assert.True(t, q.TryPush(1))
	assert.False(t, q.TryPush(2))
}

func TestQueuePopRespectsContextCancellation(t *testing.T) {
	q := NewQueue[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueueLenReflectsPendingItems(t *testing.T) {
	q := NewQueue[int](4)
	q.TryPush(1)
	q.TryPush(2)
	assert.Equal(t, 2, q.Len())
}

func TestQueueRunStopsOnCancellation(t *testing.T) {
	q := NewQueue[int](4)
	ctx, cancel := context.WithCancel(context.Background())
	q.TryPush(1)
	q.TryPush(2)

	var seen []int
	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(v int) { seen = append(seen, v) })
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	assert.Equal(t, []int{1, 2}, seen)
}
