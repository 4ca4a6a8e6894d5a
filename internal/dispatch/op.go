package dispatch

import (
	"context"
	"fmt"

	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/conflict"
)

// OpKind identifies the store operation a Request carries.
type OpKind int

const (
	OpAdd OpKind = iota + 1
	OpRemove
	OpReplace
	OpQuery
	OpQueryAll
	OpAddBatch
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpReplace:
		return "replace"
	case OpQuery:
		return "query"
	case OpQueryAll:
		return "query_all"
	case OpAddBatch:
		return "batch"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Request is one queued operation. Which fields are read depends on Kind:
// Event for OpAdd and OpReplace, ID for OpRemove, Owner for OpQuery and
// Events for OpAddBatch.
type Request struct {
	Kind   OpKind
	Event  calendar.Event
	Events []calendar.Event
	ID     int64
	Owner  string

	// RequestID correlates the request with notifications and logs.
	RequestID string
}

// Reply is the outcome of a Request.
type Reply struct {
	// Accepted is set for OpAdd and OpReplace.
	Accepted bool
	// Found is set for OpRemove.
	Found bool
	// Events is set for OpQuery and OpQueryAll.
	Events []calendar.Event
	// Batch holds one flag per input event for OpAddBatch.
	Batch []bool
	// Conflict describes why an add or replace was rejected.
	Conflict conflict.Result
}

// Handler executes requests. Implementations must be safe for concurrent
// use by every worker.
type Handler interface {
	Handle(ctx context.Context, req Request) Reply
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) Reply

// Handle calls f(ctx, req).
func (f HandlerFunc) Handle(ctx context.Context, req Request) Reply {
	return f(ctx, req)
}
