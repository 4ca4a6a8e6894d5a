package dispatch

import "sync"

// task pairs a request with the handle its submitter waits on.
type task struct {
	req     Request
	pending *Pending
}

// requestQueue is an unbounded FIFO shared by all workers.
//
// Availability is signalled on a channel with a buffer of one. A dequeue
// that leaves work behind re-arms the signal so that a burst of submissions
// wakes more than one worker.
type requestQueue struct {
	mu     sync.Mutex
	tasks  []task
	closed bool
	signal chan struct{}
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		tasks:  make([]task, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends t. It returns false once the queue is closed.
func (q *requestQueue) Enqueue(t task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)
	q.notifyLocked()
	return true
}

// TryDequeue removes the front task without blocking.
func (q *requestQueue) TryDequeue() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return task{}, false
	}

	t := q.tasks[0]
	// Drop the reference so the backing array does not pin finished requests.
	q.tasks[0] = task{}
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
		q.notifyLocked()
	}
	return t, true
}

// Dequeue blocks until a task is available. It returns false only when the
// queue is closed and empty, so closing never discards queued work.
func (q *requestQueue) Dequeue() (task, bool) {
	for {
		if t, ok := q.TryDequeue(); ok {
			return t, true
		}

		q.mu.Lock()
		if q.closed && len(q.tasks) == 0 {
			q.mu.Unlock()
			return task{}, false
		}
		q.mu.Unlock()

		<-q.signal
	}
}

// notifyLocked arms the signal without blocking. Caller holds mu.
func (q *requestQueue) notifyLocked() {
	if q.closed {
		return
	}
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Len returns the number of queued tasks.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close rejects further Enqueue calls and wakes every blocked Dequeue.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
