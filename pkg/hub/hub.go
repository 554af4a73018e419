package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	tlog "github.com/teslashibe/go-theater/internal/log"
)

// queueSize bounds messages waiting for the Run loop.
const queueSize = 256

// Hub fans messages out to every connected client. A single Run goroutine
// owns membership changes; readers use the mutex only for counting.
type Hub struct {
	name   string
	logger *slog.Logger

	queue chan Message
	join  chan *Client
	leave chan *Client
	done  chan struct{}

	mu      sync.RWMutex
	clients map[*Client]struct{}

	dropped atomic.Int64
}

// New creates a hub. name tags its log lines.
func New(name string, logger *slog.Logger) *Hub {
	return &Hub{
		name:    name,
		logger:  tlog.Or(logger, "hub").With("hub", name),
		queue:   make(chan Message, queueSize),
		join:    make(chan *Client),
		leave:   make(chan *Client),
		done:    make(chan struct{}),
		clients: make(map[*Client]struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client
// and closes Done. Call it once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.disconnectAll()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.join:
			h.add(c)
		case c := <-h.leave:
			h.remove(c, "client disconnected")
		case msg := <-h.queue:
			h.fanout(msg)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", n)
}

// remove closes c's queue if c is still a member.
func (h *Hub) remove(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Debug(reason, "clients", n)
	}
}

// fanout queues msg for every client. A client whose queue is full is
// disconnected rather than allowed to stall the others.
func (h *Hub) fanout(msg Message) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client")
		h.remove(c, "slow client removed")
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
	}
	clear(h.clients)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Broadcast queues msg for every client without blocking. When the hub is
// backed up the message is dropped and counted.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.queue <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Warn("hub backed up, message dropped")
	}
}

// BroadcastJSON encodes payload as a kind-tagged envelope and broadcasts it.
func (h *Hub) BroadcastJSON(kind string, payload any) error {
	msg, err := Encode(kind, payload)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// ClientCount returns how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many broadcasts were discarded because the hub was
// backed up.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }
