package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/slotguard/internal/conflict"
)

// Hour is one hour in event timestamp units (milliseconds).
const Hour int64 = 3_600_000

// Event is a time-bounded booking for one owner.
//
// Priority is advisory and Recurring is carried but not interpreted.
type Event struct {
	ID          int64  `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Start       int64  `json:"start" yaml:"start"`
	End         int64  `json:"end" yaml:"end"`
	Owner       string `json:"owner" yaml:"owner"`
	Priority    int    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Recurring   bool   `json:"recurring,omitempty" yaml:"recurring,omitempty"`
}

var (
	// ErrInvalidInterval reports an event whose start is not before its end.
	ErrInvalidInterval = errors.New("start must be before end")

	// ErrMissingOwner reports an event without an owner.
	ErrMissingOwner = errors.New("owner is required")
)

// ValidationError describes why an event was rejected at the boundary.
type ValidationError struct {
	EventID int64
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event %d: %v", e.EventID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks the event preconditions.
func (e Event) Validate() error {
	if e.Start >= e.End {
		return &ValidationError{EventID: e.ID, Err: fmt.Errorf("%w (start=%d, end=%d)", ErrInvalidInterval, e.Start, e.End)}
	}
	if e.Owner == "" {
		return &ValidationError{EventID: e.ID, Err: ErrMissingOwner}
	}
	return nil
}

// Slot projects the event onto the fields the conflict engine reads.
func (e Event) Slot() conflict.TimeSlot {
	return conflict.TimeSlot{
		ID:       e.ID,
		Start:    e.Start,
		End:      e.End,
		Owner:    e.Owner,
		Priority: e.Priority,
	}
}

// Duration returns the event length in milliseconds.
func (e Event) Duration() int64 {
	return e.End - e.Start
}

// StartTime and EndTime convert timestamps to UTC time values.
func (e Event) StartTime() time.Time { return time.UnixMilli(e.Start).UTC() }
func (e Event) EndTime() time.Time   { return time.UnixMilli(e.End).UTC() }

// WithSlot returns a copy of e moved to the slot's interval.
func (e Event) WithSlot(s conflict.TimeSlot) Event {
	e.Start = s.Start
	e.End = s.End
	return e
}

// Slots projects every event.
func Slots(events []Event) []conflict.TimeSlot {
	out := make([]conflict.TimeSlot, len(events))
	for i, e := range events {
		out[i] = e.Slot()
	}
	return out
}

// SortByStart stably orders events by start time.
func SortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start < events[j].Start
	})
}

// IDs returns the event IDs in order.
func IDs(events []Event) []int64 {
	out := make([]int64, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
