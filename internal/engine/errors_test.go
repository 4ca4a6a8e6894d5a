package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/conflict"
	"github.com/roach88/slotguard/internal/dispatch"
)

func TestError_Helpers(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"conflict", &Error{Code: ErrCodeConflict}, IsConflict},
		{"not found", &Error{Code: ErrCodeNotFound}, IsNotFound},
		{"closed", closedError(), IsClosed},
		{"invalid", invalidEventError(1, calendar.ErrMissingOwner), IsInvalidEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(tt.err))
			assert.True(t, tt.is(fmt.Errorf("wrapped: %w", tt.err)), "should see through wrapping")
			assert.False(t, tt.is(errors.New("plain")))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	assert.ErrorIs(t, closedError(), dispatch.ErrClosed)
	assert.ErrorIs(t, invalidEventError(3, calendar.ErrInvalidInterval), calendar.ErrInvalidInterval)
}

func TestError_Message(t *testing.T) {
	err := &Error{Code: ErrCodeNotFound, Message: "no event to remove", EventID: 9}
	assert.Equal(t, "NOT_FOUND: no event to remove (event=9)", err.Error())

	assert.Equal(t, "CLOSED: scheduler is closed", closedError().Error())
}

func TestReplyError(t *testing.T) {
	e := calendar.Event{ID: 2, Start: 1500, End: 2500, Owner: "u1"}
	conflicted := conflict.Result{HasConflict: true, Total: 1, Pairs: []conflict.Pair{{A: 2, B: 1}}}

	assert.NoError(t, ReplyError(dispatch.Request{Kind: dispatch.OpAdd, Event: e}, dispatch.Reply{Accepted: true}))

	err := ReplyError(dispatch.Request{Kind: dispatch.OpAdd, Event: e}, dispatch.Reply{Conflict: conflicted})
	assert.True(t, IsConflict(err))
	var se *Error
	if assert.ErrorAs(t, err, &se) {
		assert.Equal(t, conflicted.Pairs, se.Pairs)
		assert.Equal(t, int64(2), se.EventID)
	}

	err = ReplyError(dispatch.Request{Kind: dispatch.OpReplace, Event: e}, dispatch.Reply{})
	assert.True(t, IsNotFound(err))

	err = ReplyError(dispatch.Request{Kind: dispatch.OpRemove, ID: 5}, dispatch.Reply{})
	assert.True(t, IsNotFound(err))

	batch := dispatch.Request{Kind: dispatch.OpAddBatch, Events: []calendar.Event{{ID: 1}, {ID: 2}}}
	assert.NoError(t, ReplyError(batch, dispatch.Reply{Batch: []bool{true, true}}))
	err = ReplyError(batch, dispatch.Reply{Batch: []bool{true, false}})
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "[2]")

	assert.NoError(t, ReplyError(dispatch.Request{Kind: dispatch.OpQuery}, dispatch.Reply{}))
}
