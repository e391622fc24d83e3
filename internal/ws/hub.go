package ws

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrSubscriberClosed is returned by Send after the subscriber went away.
	ErrSubscriberClosed = errors.New("subscriber closed")
	// ErrSlowSubscriber is returned when a subscriber cannot keep up.
	ErrSlowSubscriber = errors.New("subscriber send queue full")
)

// Subscriber abstracts a streaming client. Send is called with the hub
// lock held and must not wait on the network.
type Subscriber interface {
	ID() string
	Send([]byte) error
	Close()
}

// Hub keeps the set of connected subscribers and fans payloads out to them.
type Hub struct {
	mu      sync.Mutex
	clients map[Subscriber]struct{}
	closed  bool
	log     *slog.Logger
}

// NewHub creates an initialized Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	initMetrics()
	return &Hub{
		clients: make(map[Subscriber]struct{}),
		log:     logger.With("component", "hub"),
	}
}

// Register adds a subscriber. Registering after Close closes the subscriber.
func (h *Hub) Register(client Subscriber) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.Close()
		return
	}
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	subscriberGauge.Set(float64(count))
	h.log.Info("subscriber registered", "subscriber", client.ID(), "subscribers", count)
}

// Unregister removes a subscriber. It does not close it.
func (h *Hub) Unregister(client Subscriber) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		subscriberGauge.Set(float64(count))
		h.log.Info("subscriber unregistered", "subscriber", client.ID(), "subscribers", count)
	}
}

// Broadcast sends payload to every subscriber. Subscribers whose Send fails
// are closed and dropped. The lock is held for the whole fan-out so each
// subscriber observes broadcasts in call order.
func (h *Hub) Broadcast(kind string, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := 0
	for c := range h.clients {
		if err := c.Send(payload); err != nil {
			reason := "error"
			switch {
			case errors.Is(err, ErrSlowSubscriber):
				reason = "slow"
			case errors.Is(err, ErrSubscriberClosed):
				reason = "closed"
			}
			droppedSubscribers.WithLabelValues(reason).Inc()
			h.log.Info("dropping subscriber", "subscriber", c.ID(), "reason", reason, "error", err)
			c.Close()
			delete(h.clients, c)
			continue
		}
		delivered++
	}
	broadcastsTotal.WithLabelValues(kind).Inc()
	subscriberGauge.Set(float64(len(h.clients)))
	return delivered
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close closes every subscriber and rejects further registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
	subscriberGauge.Set(0)
}
