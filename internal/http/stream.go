package httpx

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/altoslab447/openclaw-dashboard/internal/ws"
)

// handleRoot upgrades websocket requests on "/" and otherwise serves the
// static UI when one is configured.
func (r *Router) handleRoot(w http.ResponseWriter, req *http.Request) {
	if websocket.IsWebSocketUpgrade(req) {
		r.wsHandler(w, req)
		return
	}
	if r.static != nil {
		r.static.ServeHTTP(w, req)
		return
	}
	if req.URL.Path != "/" {
		r.notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "openclaw-dashboard",
		"stream":  "/ws",
		"events":  "/api/events",
	})
}

func (r *Router) handleWS(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	// Queued before registration so the greeting precedes any broadcast.
	_ = client.Send(r.events.Greeting())
	r.hub.Register(client)
	r.streamOpened(transportWebSocket)
	go client.WritePump()
	go client.ReadPump(func() {
		r.hub.Unregister(client)
		r.streamClosed(transportWebSocket)
	})
}

func (r *Router) handleSSE(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	client := ws.NewSSEClient(w, r.logger)
	// Queued before registration so the greeting precedes any broadcast.
	_ = client.Send(r.events.Greeting())
	r.hub.Register(client)
	r.streamOpened(transportSSE)
	defer func() {
		r.hub.Unregister(client)
		client.Close()
		r.streamClosed(transportSSE)
	}()

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-client.Done():
			return
		case <-client.Ready():
			if err := client.Drain(); err != nil {
				return
			}
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}
