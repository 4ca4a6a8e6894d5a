package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/slotguard/internal/conflict"
	"github.com/roach88/slotguard/internal/dispatch"
)

// Error describes why a scheduler request did not take effect.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// EventID identifies the affected event, when there is one.
	EventID int64

	// Pairs lists the overlaps behind an ErrCodeConflict.
	Pairs []conflict.Pair

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes scheduler errors.
type ErrorCode string

const (
	// ErrCodeConflict indicates the event overlaps one of the same owner.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeNotFound indicates no event has the requested id.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeClosed indicates the scheduler no longer accepts async work.
	ErrCodeClosed ErrorCode = "CLOSED"

	// ErrCodeInvalidEvent indicates the event failed boundary validation.
	ErrCodeInvalidEvent ErrorCode = "INVALID_EVENT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.EventID != 0 {
		return fmt.Sprintf("%s: %s (event=%d)", e.Code, e.Message, e.EventID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsConflict reports whether err is a conflict rejection.
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }

// IsNotFound reports whether err is an unknown-id failure.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsClosed reports whether err came from submitting after Close.
func IsClosed(err error) bool { return hasCode(err, ErrCodeClosed) }

// IsInvalidEvent reports whether err is a boundary validation failure.
func IsInvalidEvent(err error) bool { return hasCode(err, ErrCodeInvalidEvent) }

func invalidEventError(id int64, err error) *Error {
	return &Error{
		Code:    ErrCodeInvalidEvent,
		Message: err.Error(),
		EventID: id,
		Err:     err,
	}
}

func closedError() *Error {
	return &Error{
		Code:    ErrCodeClosed,
		Message: "scheduler is closed",
		Err:     dispatch.ErrClosed,
	}
}

// ReplyError converts a negative reply into an *Error. It returns nil when
// the request took effect, and for queries, which cannot fail.
func ReplyError(req dispatch.Request, reply dispatch.Reply) error {
	switch req.Kind {
	case dispatch.OpAdd, dispatch.OpReplace:
		if reply.Accepted {
			return nil
		}
		if reply.Conflict.HasConflict {
			return &Error{
				Code:    ErrCodeConflict,
				Message: fmt.Sprintf("overlaps %d event(s) of %s", reply.Conflict.Total, req.Event.Owner),
				EventID: req.Event.ID,
				Pairs:   reply.Conflict.Pairs,
			}
		}
		return &Error{Code: ErrCodeNotFound, Message: "no event to replace", EventID: req.Event.ID}
	case dispatch.OpRemove:
		if reply.Found {
			return nil
		}
		return &Error{Code: ErrCodeNotFound, Message: "no event to remove", EventID: req.ID}
	case dispatch.OpAddBatch:
		var rejected []int64
		for i, ok := range reply.Batch {
			if !ok {
				rejected = append(rejected, req.Events[i].ID)
			}
		}
		if len(rejected) == 0 {
			return nil
		}
		return &Error{
			Code:    ErrCodeConflict,
			Message: fmt.Sprintf("%d of %d batch events rejected: %v", len(rejected), len(reply.Batch), rejected),
		}
	default:
		return nil
	}
}
