package ws

import (
	"bytes"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sseWriteWait = 10 * time.Second

// SSEClient streams Server-Sent Events over an HTTP response writer.
// Send only queues; the handler that owns the response calls Drain when
// Ready fires, so a stalled reader never holds up the hub.
type SSEClient struct {
	id     string
	writer http.ResponseWriter
	ctrl   *http.ResponseController
	queue  *sendQueue
	log    *slog.Logger
	done   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	last time.Time
}

// NewSSEClient builds an SSE client instance.
func NewSSEClient(w http.ResponseWriter, logger *slog.Logger) *SSEClient {
	id := uuid.NewString()
	return &SSEClient{
		id:     id,
		writer: w,
		ctrl:   http.NewResponseController(w),
		queue:  newSendQueue(maxQueuedBytes),
		log:    logger.With("subscriber", id, "transport", "sse"),
		done:   make(chan struct{}),
		last:   time.Now().UTC(),
	}
}

// ID identifies the client in logs.
func (c *SSEClient) ID() string {
	return c.id
}

// Send queues a data event for the stream.
func (c *SSEClient) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrSubscriberClosed
	default:
	}
	if !c.queue.push(payload) {
		c.log.Warn("sse send queue full", "queued_bytes", c.queue.pending())
		return ErrSlowSubscriber
	}
	return nil
}

// Ready fires after Send queued something that Drain has not written yet.
func (c *SSEClient) Ready() <-chan struct{} {
	return c.queue.ready
}

// Drain writes every queued event as one flush. It must only be called
// from the goroutine serving the response.
func (c *SSEClient) Drain() error {
	items := c.queue.drain()
	if len(items) == 0 {
		return nil
	}
	var frame bytes.Buffer
	for _, payload := range items {
		frame.WriteString("data: ")
		frame.Write(payload)
		frame.WriteString("\n\n")
	}
	return c.write(frame.Bytes())
}

// Heartbeat emits a comment frame to keep the connection alive.
func (c *SSEClient) Heartbeat() error {
	return c.write([]byte(": ping\n\n"))
}

func (c *SSEClient) write(frame []byte) error {
	select {
	case <-c.done:
		return ErrSubscriberClosed
	default:
	}
	_ = c.ctrl.SetWriteDeadline(time.Now().Add(sseWriteWait))
	if _, err := c.writer.Write(frame); err != nil {
		c.Close()
		c.log.Warn("sse send failed", "error", err)
		return err
	}
	if err := c.ctrl.Flush(); err != nil {
		c.Close()
		c.log.Warn("sse flush failed", "error", err)
		return err
	}
	c.mu.Lock()
	c.last = time.Now().UTC()
	c.mu.Unlock()
	return nil
}

// Close marks the stream as closed. Safe to call more than once.
func (c *SSEClient) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Done is closed once the stream is closed.
func (c *SSEClient) Done() <-chan struct{} {
	return c.done
}

// LastActivity reports the timestamp of the most recent successful write.
func (c *SSEClient) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
