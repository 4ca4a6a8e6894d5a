package dispatch

import (
	"context"
	"sync"
)

// Pending is the one-shot result of a submitted Request. It is resolved
// exactly once by the worker that ran the request.
type Pending struct {
	once  sync.Once
	done  chan struct{}
	reply Reply
	err   error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// resolve stores the outcome and wakes waiters. Later calls are ignored.
func (p *Pending) resolve(reply Reply, err error) {
	p.once.Do(func() {
		p.reply = reply
		p.err = err
		close(p.done)
	})
}

// Done is closed once the result is available.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the result is available or ctx is done. Giving up on
// the wait does not cancel the request.
func (p *Pending) Wait(ctx context.Context) (Reply, error) {
	select {
	case <-p.done:
		return p.reply, p.err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}
