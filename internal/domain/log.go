package domain

// LogRecord represents one gateway log line after parsing.
// Timestamp and Tag are nil when the line does not follow the
// "<timestamp> [tag] message" grammar.
type LogRecord struct {
	Timestamp *string `json:"timestamp"`
	Tag       *string `json:"tag"`
	Message   string  `json:"message"`
	Raw       string  `json:"raw"`
}

// SystemTag marks records synthesised by the dashboard itself.
const SystemTag = "system"

// RotationMessage is the message carried by the synthetic rotation record.
const RotationMessage = "log rotated"

// RotationRecord builds the record pushed to viewers when the log was truncated or replaced.
func RotationRecord() LogRecord {
	tag := SystemTag
	return LogRecord{Tag: &tag, Message: RotationMessage}
}
