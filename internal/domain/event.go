package domain

// ChangeEvent is produced by the watcher and consumed by the notification path.
// The concrete types are LogEvent, DataChangedEvent and RotatedEvent.
type ChangeEvent interface {
	changeEvent()
}

// LogEvent carries one new line appended to the gateway log.
type LogEvent struct {
	Record LogRecord
}

// DataChangedEvent reports that a watched state file was modified.
type DataChangedEvent struct {
	FileName string
	FullPath string
}

// RotatedEvent reports that the gateway log shrank or was replaced.
type RotatedEvent struct{}

func (LogEvent) changeEvent()         {}
func (DataChangedEvent) changeEvent() {}
func (RotatedEvent) changeEvent()     {}

// Envelope types pushed to subscribers.
const (
	EnvelopeLog         = "log"
	EnvelopeDataChanged = "data-changed"
	EnvelopeConnected   = "connected"
)
