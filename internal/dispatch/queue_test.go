package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskFor(id int64) task {
	return task{req: Request{Kind: OpRemove, ID: id}, pending: newPending()}
}

func TestRequestQueue_FIFO(t *testing.T) {
	q := newRequestQueue()
	for i := int64(1); i <= 3; i++ {
		require.True(t, q.Enqueue(taskFor(i)))
	}

	for want := int64(1); want <= 3; want++ {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.req.ID)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "queue should be empty")
}

func TestRequestQueue_DequeueBlocksUntilAvailable(t *testing.T) {
	q := newRequestQueue()
	got := make(chan task, 1)

	go func() {
		if tk, ok := q.Dequeue(); ok {
			got <- tk
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(taskFor(7))

	select {
	case tk := <-got:
		assert.Equal(t, int64(7), tk.req.ID)
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not wake up")
	}
}

func TestRequestQueue_CloseRejectsEnqueue(t *testing.T) {
	q := newRequestQueue()
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(taskFor(1)))
}

func TestRequestQueue_CloseKeepsQueuedWork(t *testing.T) {
	q := newRequestQueue()
	q.Enqueue(taskFor(1))
	q.Enqueue(taskFor(2))
	q.Close()

	a, ok := q.Dequeue()
	require.True(t, ok)
	b, ok := q.Dequeue()
	require.True(t, ok)
	_, ok = q.Dequeue()
	assert.False(t, ok, "closed and empty")

	assert.Equal(t, int64(1), a.req.ID)
	assert.Equal(t, int64(2), b.req.ID)
}

func TestRequestQueue_BurstWakesSeveralWaiters(t *testing.T) {
	q := newRequestQueue()
	const waiters = 4

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[int64]bool{}
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk, ok := q.Dequeue()
			if ok {
				mu.Lock()
				seen[tk.req.ID] = true
				mu.Unlock()
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	for i := int64(1); i <= waiters; i++ {
		q.Enqueue(taskFor(i))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not every waiter was woken")
	}
	assert.Len(t, seen, waiters)
	assert.Equal(t, 0, q.Len())
}
