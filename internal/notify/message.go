package notify

import (
	"encoding/json"
	"fmt"
)

// Kind names the change a Message reports.
type Kind string

const (
	KindAdded    Kind = "added"
	KindRemoved  Kind = "removed"
	KindReplaced Kind = "replaced"
	// KindBatch is sent once per event accepted by a batch add.
	KindBatch Kind = "batch"
)

// Message describes one committed change to the event store.
type Message struct {
	// Seq is a logical timestamp, strictly increasing per scheduler.
	Seq         int64  `json:"seq"`
	Kind        Kind   `json:"kind"`
	EventID     int64  `json:"event_id"`
	Owner       string `json:"owner"`
	Fingerprint string `json:"fingerprint,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// String renders m as a single JSON line.
func (m Message) String() string {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("%s event %d (%s)", m.Kind, m.EventID, m.Owner)
	}
	return string(data)
}
