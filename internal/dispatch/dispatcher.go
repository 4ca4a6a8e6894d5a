package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// DefaultWorkers is the pool size used when WithWorkers is not given.
const DefaultWorkers = 4

// Dispatcher feeds queued requests to a fixed pool of workers.
type Dispatcher struct {
	handler Handler
	workers int
	logger  *slog.Logger

	queue *requestQueue
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc

	submitted atomic.Uint64
	completed atomic.Uint64
	panicked  atomic.Uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the number of worker goroutines. Values below one are
// ignored.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithLogger sets the logger used for worker diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a dispatcher for h. Workers are not running until Start.
func New(h Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handler: h,
		workers: DefaultWorkers,
		logger:  slog.Default(),
		queue:   newRequestQueue(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d
}

// Start launches the workers.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return ErrAlreadyStarted
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Debug("dispatcher started", "workers", d.workers)
	return nil
}

// Submit queues req and returns its handle. Requests submitted before Start
// wait in the queue. After Stop, Submit returns ErrClosed.
func (d *Dispatcher) Submit(req Request) (*Pending, error) {
	p := newPending()
	if !d.queue.Enqueue(task{req: req, pending: p}) {
		return nil, ErrClosed
	}
	d.submitted.Add(1)
	return p, nil
}

// Stop rejects new submissions, waits for the workers to finish everything
// already queued, and joins them. If ctx ends first, the context passed to
// running handlers is cancelled and ctx.Err() is returned; queued requests
// still run to completion in the background.
//
// If Start was never called, queued requests are resolved with ErrClosed.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.queue.Close()

	d.mu.Lock()
	started := d.started
	d.started = true // a late Start must not spawn workers on a closed queue
	d.mu.Unlock()

	if !started {
		for {
			t, ok := d.queue.TryDequeue()
			if !ok {
				break
			}
			t.pending.resolve(Reply{}, ErrClosed)
			d.completed.Add(1)
		}
		d.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.logger.Debug("dispatcher stopped", "completed", d.completed.Load())
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		t, ok := d.queue.Dequeue()
		if !ok {
			return
		}
		d.run(id, t)
	}
}

// run executes one task and always resolves its Pending.
func (d *Dispatcher) run(worker int, t task) {
	defer d.completed.Add(1)
	defer func() {
		if r := recover(); r != nil {
			d.panicked.Add(1)
			d.logger.Error("handler panicked",
				"worker", worker,
				"op", t.req.Kind.String(),
				"request_id", t.req.RequestID,
				"panic", r,
				"stack", string(debug.Stack()))
			t.pending.resolve(Reply{}, fmt.Errorf("%w: %v", ErrHandlerPanic, r))
		}
	}()

	reply := d.handler.Handle(d.ctx, t.req)
	t.pending.resolve(reply, nil)
}

// Stats is a point-in-time view of dispatcher activity.
type Stats struct {
	Workers   int
	Queued    int
	Submitted uint64
	Completed uint64
	Panicked  uint64
	// Pending counts requests submitted but not yet completed, whether
	// queued or running.
	Pending uint64
}

// Stats returns current counters.
func (d *Dispatcher) Stats() Stats {
	completed := d.completed.Load()
	submitted := d.submitted.Load()
	var pending uint64
	if submitted > completed {
		pending = submitted - completed
	}
	return Stats{
		Workers:   d.workers,
		Queued:    d.queue.Len(),
		Submitted: submitted,
		Completed: completed,
		Panicked:  d.panicked.Load(),
		Pending:   pending,
	}
}
