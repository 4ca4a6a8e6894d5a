package harness

import (
	"github.com/roach88/slotguard/internal/calendar"
	"github.com/roach88/slotguard/internal/notify"
	"github.com/roach88/slotguard/internal/store"
)

// Trace event types.
const (
	TraceRequest      = "request"
	TraceNotification = "notification"
)

// TraceEvent is either a flow step or a notification it caused.
//
// Args and Outcome hold only canonical JSON values (string, bool, int,
// int64, []any, map[string]any) so a trace can be written to a golden file.
type TraceEvent struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq"`

	// Request fields.
	Step    int            `json:"step,omitempty"`
	Op      string         `json:"op,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome map[string]any `json:"outcome,omitempty"`

	// Notification fields.
	Kind       string `json:"kind,omitempty"`
	EventID    int64  `json:"event_id,omitempty"`
	Owner      string `json:"owner,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	MessageSeq int64  `json:"message_seq,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the flow steps and their notifications in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is every event left in the store, in storage order.
	State []calendar.Event `json:"state"`

	// Metrics are the store counters after the flow, setup included.
	Metrics store.Metrics `json:"metrics"`

	// Notifications are the broadcasts emitted by the flow.
	Notifications []notify.Message `json:"notifications"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addRequestTrace records a flow step.
func (r *Result) addRequestTrace(step int, op Op, args, outcome map[string]any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    TraceRequest,
		Seq:     seq,
		Step:    step,
		Op:      string(op),
		Args:    args,
		Outcome: outcome,
	})
}

// addNotificationTrace records a broadcast caused by the previous step.
// The fingerprint is left out; event content is already in the request.
func (r *Result) addNotificationTrace(msg notify.Message, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       TraceNotification,
		Seq:        seq,
		Kind:       string(msg.Kind),
		EventID:    msg.EventID,
		Owner:      msg.Owner,
		RequestID:  msg.RequestID,
		MessageSeq: msg.Seq,
	})
}
