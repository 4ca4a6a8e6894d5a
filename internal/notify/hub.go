package notify

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultSyncInterval is how often a running Hub flushes client queues.
const DefaultSyncInterval = 100 * time.Millisecond

// subscriberBuffer is the channel capacity handed out by Subscribe.
const subscriberBuffer = 64

// ErrHubRunning is returned by Start when the flush loop is already active.
var ErrHubRunning = errors.New("hub already running")

// Sink receives each message delivered to a client.
type Sink func(clientID string, msg Message)

// Hub queues messages per registered client and delivers them in batches.
//
// Broadcast and SendTo only enqueue; delivery to the Sink happens on Flush,
// which the loop started by Start calls every interval and whenever new
// messages arrive. Messages for one client are delivered in the order they
// were queued.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client

	sink     Sink
	interval time.Duration
	logger   *slog.Logger

	flushMu   sync.Mutex
	wake      chan struct{}
	delivered atomic.Uint64

	runMu    sync.Mutex
	stop     context.CancelFunc
	loopDone chan struct{}

	subMu sync.RWMutex
	subs  map[chan Message]struct{}
}

type client struct {
	id       string
	lastSync time.Time
	pending  []Message
	active   bool
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithSink sets where delivered messages go. The default logs them.
func WithSink(s Sink) HubOption {
	return func(h *Hub) {
		if s != nil {
			h.sink = s
		}
	}
}

// WithInterval sets the flush period.
func WithInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.interval = d
		}
	}
}

// WithHubLogger sets the logger.
func WithHubLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub creates a Hub with no clients.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:  make(map[string]*client),
		interval: DefaultSyncInterval,
		logger:   slog.Default(),
		wake:     make(chan struct{}, 1),
		subs:     make(map[chan Message]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.sink == nil {
		logger := h.logger
		h.sink = func(clientID string, msg Message) {
			logger.Info("sync", "client", clientID, "update", msg.String())
		}
	}
	return h
}

// Register adds clientID, or reactivates it with an empty queue if it was
// seen before.
func (h *Hub) Register(clientID string) {
	h.mu.Lock()
	h.clients[clientID] = &client{id: clientID, lastSync: time.Now(), active: true}
	h.mu.Unlock()

	h.logger.Debug("client registered", "client", clientID)
}

// RegisterNew registers a client under a fresh UUIDv7 and returns its id.
func (h *Hub) RegisterNew() string {
	id := uuid.Must(uuid.NewV7()).String()
	h.Register(id)
	return id
}

// Disconnect marks clientID inactive and drops its undelivered messages.
// Unknown ids are ignored.
func (h *Hub) Disconnect(clientID string) {
	h.mu.Lock()
	c, ok := h.clients[clientID]
	if ok {
		c.active = false
		c.pending = nil
	}
	h.mu.Unlock()

	if ok {
		h.logger.Debug("client disconnected", "client", clientID)
	}
}

// ActiveClients returns the number of connected clients.
func (h *Hub) ActiveClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, c := range h.clients {
		if c.active {
			n++
		}
	}
	return n
}

// Pending returns the number of queued messages for clientID.
func (h *Hub) Pending(clientID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		return len(c.pending)
	}
	return 0
}

// LastSync returns when clientID last had messages delivered, or when it
// registered if nothing has been delivered yet.
func (h *Hub) LastSync(clientID string) (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return time.Time{}, false
	}
	return c.lastSync, true
}

// Broadcast queues msg for every active client and publishes it to
// subscribers.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	for _, c := range h.clients {
		if c.active {
			c.pending = append(c.pending, msg)
		}
	}
	h.mu.Unlock()

	h.publish(msg)
	h.signal()
}

// SendTo queues msg for clientID if it is registered and active.
func (h *Hub) SendTo(clientID string, msg Message) {
	h.mu.Lock()
	c, ok := h.clients[clientID]
	if ok && c.active {
		c.pending = append(c.pending, msg)
	}
	h.mu.Unlock()

	if ok {
		h.signal()
	}
}

func (h *Hub) signal() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

type batch struct {
	clientID string
	msgs     []Message
}

// Flush delivers every queued message to the sink and returns how many were
// delivered. Clients are visited in id order.
func (h *Hub) Flush() int {
	h.flushMu.Lock()
	defer h.flushMu.Unlock()

	now := time.Now()
	var batches []batch

	h.mu.Lock()
	for id, c := range h.clients {
		if !c.active || len(c.pending) == 0 {
			continue
		}
		batches = append(batches, batch{clientID: id, msgs: c.pending})
		c.pending = nil
		c.lastSync = now
	}
	h.mu.Unlock()

	sort.Slice(batches, func(i, j int) bool { return batches[i].clientID < batches[j].clientID })

	n := 0
	for _, b := range batches {
		for _, msg := range b.msgs {
			h.sink(b.clientID, msg)
			n++
		}
	}
	h.delivered.Add(uint64(n))
	return n
}

// Delivered returns the total number of messages handed to the sink.
func (h *Hub) Delivered() uint64 {
	return h.delivered.Load()
}

// Start runs the flush loop until ctx is cancelled or Stop is called.
func (h *Hub) Start(ctx context.Context) error {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	if h.stop != nil {
		return ErrHubRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	h.stop = cancel
	h.loopDone = make(chan struct{})
	go h.loop(ctx, h.loopDone)
	return nil
}

func (h *Hub) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Flush()
			return
		case <-ticker.C:
			h.Flush()
		case <-h.wake:
			h.Flush()
		}
	}
}

// Stop ends the flush loop after a final flush. It is a no-op when the
// loop is not running.
func (h *Hub) Stop() {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	if h.stop == nil {
		return
	}
	h.stop()
	<-h.loopDone
	h.stop = nil
}

// Subscribe returns a channel receiving every broadcast message. A
// subscriber that falls behind misses messages rather than blocking
// Broadcast.
func (h *Hub) Subscribe() chan Message {
	ch := make(chan Message, subscriberBuffer)
	h.subMu.Lock()
	h.subs[ch] = struct{}{}
	h.subMu.Unlock()
	return ch
}

// Unsubscribe removes ch and closes it.
func (h *Hub) Unsubscribe(ch chan Message) {
	h.subMu.Lock()
	_, ok := h.subs[ch]
	delete(h.subs, ch)
	h.subMu.Unlock()
	if ok {
		close(ch)
	}
}

func (h *Hub) publish(msg Message) {
	h.subMu.RLock()
	defer h.subMu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}
