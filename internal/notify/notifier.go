package notify

import "sync"

// Notifier receives change notifications. Implementations must be safe for
// concurrent use and must not report errors to the caller.
type Notifier interface {
	// Broadcast delivers msg to every interested party.
	Broadcast(msg Message)
	// SendTo delivers msg to a single client.
	SendTo(clientID string, msg Message)
}

// Nop discards every message.
type Nop struct{}

func (Nop) Broadcast(Message)      {}
func (Nop) SendTo(string, Message) {}

// Multi fans each call out to all notifiers in order.
type Multi []Notifier

func (m Multi) Broadcast(msg Message) {
	for _, n := range m {
		n.Broadcast(msg)
	}
}

func (m Multi) SendTo(clientID string, msg Message) {
	for _, n := range m {
		n.SendTo(clientID, msg)
	}
}

// Recorder keeps every message it receives. Used by tests and the scenario
// harness to assert on notifications.
type Recorder struct {
	mu        sync.Mutex
	broadcast []Message
	direct    map[string][]Message
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{direct: make(map[string][]Message)}
}

func (r *Recorder) Broadcast(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = append(r.broadcast, msg)
}

func (r *Recorder) SendTo(clientID string, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct[clientID] = append(r.direct[clientID], msg)
}

// Broadcasts returns a copy of the broadcast messages in arrival order.
func (r *Recorder) Broadcasts() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.broadcast))
	copy(out, r.broadcast)
	return out
}

// SentTo returns a copy of the messages sent to clientID.
func (r *Recorder) SentTo(clientID string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.direct[clientID]))
	copy(out, r.direct[clientID])
	return out
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = nil
	r.direct = make(map[string][]Message)
}
