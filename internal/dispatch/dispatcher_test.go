package dispatch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoHandler() Handler {
	return HandlerFunc(func(_ context.Context, req Request) Reply {
		return Reply{Found: req.ID%2 == 0}
	})
}

func waitReply(t *testing.T, p *Pending) Reply {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := p.Wait(ctx)
	require.NoError(t, err)
	return r
}

func TestDispatcher_SubmitAndWait(t *testing.T) {
	d := New(echoHandler(), WithWorkers(2), WithLogger(quietLogger()))
	require.NoError(t, d.Start())
	defer d.Stop(context.Background())

	p, err := d.Submit(Request{Kind: OpRemove, ID: 4})
	require.NoError(t, err)

	assert.True(t, waitReply(t, p).Found)
	select {
	case <-p.Done():
	default:
		t.Fatal("Done should be closed after Wait returns")
	}
}

func TestDispatcher_StartTwice(t *testing.T) {
	d := New(echoHandler(), WithLogger(quietLogger()))
	require.NoError(t, d.Start())
	defer d.Stop(context.Background())

	assert.ErrorIs(t, d.Start(), ErrAlreadyStarted)
}

func TestDispatcher_SubmitAfterStop(t *testing.T) {
	d := New(echoHandler(), WithLogger(quietLogger()))
	require.NoError(t, d.Start())
	require.NoError(t, d.Stop(context.Background()))

	p, err := d.Submit(Request{Kind: OpQueryAll})
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDispatcher_StopDrainsQueue(t *testing.T) {
	release := make(chan struct{})
	var ran atomic.Int64
	h := HandlerFunc(func(_ context.Context, _ Request) Reply {
		<-release
		ran.Add(1)
		return Reply{Accepted: true}
	})

	d := New(h, WithWorkers(1), WithLogger(quietLogger()))
	require.NoError(t, d.Start())

	var pendings []*Pending
	for i := 0; i < 10; i++ {
		p, err := d.Submit(Request{Kind: OpAdd})
		require.NoError(t, err)
		pendings = append(pendings, p)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- d.Stop(context.Background()) }()
	close(release)

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.Equal(t, int64(10), ran.Load(), "every queued request runs before Stop returns")
	for _, p := range pendings {
		assert.True(t, waitReply(t, p).Accepted)
	}
}

func TestDispatcher_StopHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	h := HandlerFunc(func(ctx context.Context, _ Request) Reply {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return Reply{}
	})

	d := New(h, WithWorkers(1), WithLogger(quietLogger()))
	require.NoError(t, d.Start())
	_, err := d.Submit(Request{Kind: OpAdd})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Stop(ctx), context.DeadlineExceeded)
}

func TestDispatcher_StopWithoutStart(t *testing.T) {
	d := New(echoHandler(), WithLogger(quietLogger()))
	p, err := d.Submit(Request{Kind: OpQueryAll})
	require.NoError(t, err)

	require.NoError(t, d.Stop(context.Background()))

	_, err = p.Wait(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, d.Start(), ErrAlreadyStarted)
}

func TestDispatcher_HandlerPanic(t *testing.T) {
	h := HandlerFunc(func(_ context.Context, req Request) Reply {
		if req.ID == 13 {
			panic("unlucky")
		}
		return Reply{Found: true}
	})
	d := New(h, WithWorkers(1), WithLogger(quietLogger()))
	require.NoError(t, d.Start())
	defer d.Stop(context.Background())

	bad, err := d.Submit(Request{Kind: OpRemove, ID: 13})
	require.NoError(t, err)
	good, err := d.Submit(Request{Kind: OpRemove, ID: 1})
	require.NoError(t, err)

	_, err = bad.Wait(context.Background())
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.Contains(t, err.Error(), "unlucky")

	assert.True(t, waitReply(t, good).Found, "worker survives a panic")
	assert.Equal(t, uint64(1), d.Stats().Panicked)
}

func TestDispatcher_WaitContextDoesNotCancelRequest(t *testing.T) {
	release := make(chan struct{})
	h := HandlerFunc(func(_ context.Context, _ Request) Reply {
		<-release
		return Reply{Accepted: true}
	})
	d := New(h, WithWorkers(1), WithLogger(quietLogger()))
	require.NoError(t, d.Start())
	defer d.Stop(context.Background())

	p, err := d.Submit(Request{Kind: OpAdd})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.True(t, waitReply(t, p).Accepted)
}

func TestDispatcher_ConcurrentSubmitters(t *testing.T) {
	var handled atomic.Int64
	h := HandlerFunc(func(_ context.Context, _ Request) Reply {
		handled.Add(1)
		return Reply{Accepted: true}
	})
	d := New(h, WithWorkers(4), WithLogger(quietLogger()))
	require.NoError(t, d.Start())

	const submitters, each = 8, 50
	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				p, err := d.Submit(Request{Kind: OpAdd})
				if !assert.NoError(t, err) {
					return
				}
				r, err := p.Wait(context.Background())
				assert.NoError(t, err)
				assert.True(t, r.Accepted)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, d.Stop(context.Background()))

	stats := d.Stats()
	assert.Equal(t, int64(submitters*each), handled.Load())
	assert.Equal(t, uint64(submitters*each), stats.Submitted)
	assert.Equal(t, uint64(submitters*each), stats.Completed)
	assert.Equal(t, uint64(0), stats.Pending)
	assert.Equal(t, 0, stats.Queued)
	assert.Equal(t, 4, stats.Workers)
}

func TestDispatcher_DefaultWorkers(t *testing.T) {
	d := New(echoHandler(), WithWorkers(0))
	assert.Equal(t, DefaultWorkers, d.Stats().Workers)
}

func TestOpKind_String(t *testing.T) {
	assert.Equal(t, "add", OpAdd.String())
	assert.Equal(t, "query_all", OpQueryAll.String())
	assert.Equal(t, "batch", OpAddBatch.String())
	assert.Equal(t, "op(99)", OpKind(99).String())
}
