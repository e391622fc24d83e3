package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4096
)

// Client represents a websocket client connection. Payloads are queued by
// Send and written by WritePump so a slow socket never blocks the hub.
type Client struct {
	id    string
	conn  *websocket.Conn
	queue *sendQueue
	done  chan struct{}
	once  sync.Once
	log   *slog.Logger
}

// NewClient constructs a client wrapper.
func NewClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:    id,
		conn:  conn,
		queue: newSendQueue(maxQueuedBytes),
		done:  make(chan struct{}),
		log:   logger.With("subscriber", id, "transport", "websocket"),
	}
}

// ID identifies the client in logs.
func (c *Client) ID() string {
	return c.id
}

// Send queues a message for the websocket connection. It never waits on
// the network; a client with more than maxQueuedBytes unwritten is slow.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrSubscriberClosed
	default:
	}
	if !c.queue.push(payload) {
		c.log.Warn("websocket send queue full", "queued_bytes", c.queue.pending())
		return ErrSlowSubscriber
	}
	return nil
}

// Close terminates the connection. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// WritePump drains the send queue and keeps the connection alive with pings.
// It owns all writes to the connection and closes it on return.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.queue.ready:
			for _, payload := range c.queue.drain() {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					c.log.Warn("websocket send failed", "error", err)
					return
				}
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("websocket ping failed", "error", err)
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// ReadPump discards inbound messages until the peer goes away, then calls
// onClose. Viewers never send anything meaningful; reading is how a
// disconnect is noticed.
func (c *Client) ReadPump(onClose func()) {
	defer func() {
		if onClose != nil {
			onClose()
		}
		c.Close()
	}()
	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket closed unexpectedly", "error", err)
			}
			return
		}
	}
}
