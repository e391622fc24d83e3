// Package events turns watcher change events into the envelopes pushed to
// dashboard viewers and serves the recent-log backlog.
package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
	"github.com/altoslab447/openclaw-dashboard/internal/logline"
	"github.com/altoslab447/openclaw-dashboard/internal/tail"
	"github.com/altoslab447/openclaw-dashboard/internal/ws"
)

// Backlog limits for the recent-log query.
const (
	DefaultBacklog = 100
	MaxBacklog     = 500
)

// ConnectedMessage greets every new push subscriber.
const ConnectedMessage = "connected to OpenClaw mission control"

// Envelope is the JSON frame pushed to subscribers.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Broadcaster fans payloads out to subscribers.
type Broadcaster interface {
	Broadcast(kind string, payload []byte) int
}

// Service publishes change events and reads the log backlog.
type Service struct {
	hub        Broadcaster
	logPath    string
	maxBacklog int
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs an events service. maxBacklog <= 0 selects MaxBacklog.
func New(hub Broadcaster, logPath string, maxBacklog int, logger *slog.Logger) *Service {
	if maxBacklog <= 0 {
		maxBacklog = MaxBacklog
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		hub:        hub,
		logPath:    logPath,
		maxBacklog: maxBacklog,
		logger:     logger.With("component", "events"),
		now:        time.Now,
	}
}

// Publish marshals a change event and broadcasts it.
func (s *Service) Publish(ev domain.ChangeEvent) {
	env, ok := s.envelope(ev)
	if !ok {
		s.logger.Warn("unknown change event", "event", ev)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", "type", env.Type, "error", err)
		return
	}
	s.hub.Broadcast(env.Type, data)
}

func (s *Service) envelope(ev domain.ChangeEvent) (Envelope, bool) {
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	switch e := ev.(type) {
	case domain.LogEvent:
		return Envelope{Type: domain.EnvelopeLog, Data: e.Record, Timestamp: stamp}, true
	case domain.RotatedEvent:
		return Envelope{Type: domain.EnvelopeLog, Data: domain.RotationRecord(), Timestamp: stamp}, true
	case domain.DataChangedEvent:
		return Envelope{
			Type:      domain.EnvelopeDataChanged,
			Data:      map[string]string{"file": e.FileName, "path": e.FullPath},
			Timestamp: stamp,
		}, true
	default:
		return Envelope{}, false
	}
}

// Greeting is the first frame a new subscriber receives.
func (s *Service) Greeting() []byte {
	data, _ := json.Marshal(Envelope{
		Type: domain.EnvelopeConnected,
		Data: map[string]string{"message": ConnectedMessage},
	})
	return data
}

// ClampBacklog maps a requested count onto [1, max]; non-positive means default.
func (s *Service) ClampBacklog(n int) int {
	if n <= 0 {
		n = DefaultBacklog
	}
	if n > s.maxBacklog {
		n = s.maxBacklog
	}
	return n
}

// Recent returns the last n parsed log records, oldest first.
func (s *Service) Recent(n int) ([]domain.LogRecord, error) {
	lines, err := tail.Recent(s.logPath, s.ClampBacklog(n))
	if err != nil {
		return nil, err
	}
	return logline.ParseAll(lines), nil
}

var _ Broadcaster = (*ws.Hub)(nil)
