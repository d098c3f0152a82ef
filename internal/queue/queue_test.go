package queue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/codecengine/internal/queue"
)

func TestFIFOOrder(t *testing.T) {
	q := queue.New()
	require.True(t, q.Enqueue(queue.Work{Input: 1}))
	require.True(t, q.Enqueue(queue.Work{Input: 2}))
	require.True(t, q.Enqueue(queue.Work{Input: 3}))

	for _, want := range []int{1, 2, 3} {
		msg, ok := q.DequeueFor(time.Second)
		require.True(t, ok)
		assert.Equal(t, want, msg.(queue.Work).Input)
	}
}

func TestRequeuePutsMessageAheadOfAlreadyQueuedWork(t *testing.T) {
	q := queue.New()
	require.True(t, q.Enqueue(queue.Work{Input: 2}))
	require.True(t, q.Enqueue(queue.Work{Input: 3}))
	require.True(t, q.Requeue(queue.Work{Input: 1}))

	for _, want := range []int{1, 2, 3} {
		msg, ok := q.DequeueFor(time.Second)
		require.True(t, ok)
		assert.Equal(t, want, msg.(queue.Work).Input)
	}
}

func TestRequeueFailsAfterShutdown(t *testing.T) {
	q := queue.New()
	q.Shutdown()
	assert.False(t, q.Requeue(queue.Work{Input: 1}))
}

func TestDequeueForTimesOutOnEmptyQueue(t *testing.T) {
	q := queue.New()
	start := time.Now()
	_, ok := q.DequeueFor(20 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestDequeueUnblocksOnEnqueue(t *testing.T) {
	q := queue.New()
	result := make(chan queue.Message, 1)
	go func() {
		msg, ok := q.Dequeue()
		if ok {
			result <- msg
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(queue.Close{})

	select {
	case msg := <-result:
		assert.Equal(t, queue.Close{}, msg)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not unblock after enqueue")
	}
}

func TestShutdownWakesBlockedDequeue(t *testing.T) {
	q := queue.New()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Shutdown()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("shutdown did not wake blocked dequeue")
	}

	assert.False(t, q.Enqueue(queue.Reset{}))
}

func TestDrainPendingReturnsWorkPayloadsOnly(t *testing.T) {
	q := queue.New()
	q.Enqueue(queue.Configure{Config: "cfg"})
	q.Enqueue(queue.Work{Input: "a"})
	q.Enqueue(queue.Work{Input: "b"})
	q.Enqueue(queue.Flush{FlushID: "f1"})

	dropped := q.DrainPending()
	assert.Equal(t, []any{"a", "b"}, dropped)
	assert.Equal(t, 0, q.Len())
}
