// Package logline turns gateway log lines into structured records.
//
// Lines are expected as "<timestamp> [tag] message". The timestamp is any
// non-whitespace token; no calendar format is assumed. Lines that do not
// match keep their full text as the message.
package logline

import (
	"regexp"
	"strings"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
)

var linePattern = regexp.MustCompile(`^(\S+)\s+\[([^\]]+)\]\s*(.*)$`)

// Parse never fails. Raw always holds the input line.
func Parse(line string) domain.LogRecord {
	text := strings.TrimSuffix(line, "\r")
	match := linePattern.FindStringSubmatch(text)
	if match == nil {
		return domain.LogRecord{Message: line, Raw: line}
	}
	timestamp, tag := match[1], match[2]
	return domain.LogRecord{
		Timestamp: &timestamp,
		Tag:       &tag,
		Message:   match[3],
		Raw:       line,
	}
}

// ParseAll parses lines in order.
func ParseAll(lines []string) []domain.LogRecord {
	records := make([]domain.LogRecord, 0, len(lines))
	for _, line := range lines {
		records = append(records, Parse(line))
	}
	return records
}
