package main

import (
	"hash/fnv"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
)

var tagPalette = []lipgloss.Color{"39", "42", "214", "170", "81", "208", "141", "110"}

type formatter struct {
	color     bool
	timestamp lipgloss.Style
	system    lipgloss.Style
	notice    lipgloss.Style
}

func newFormatter(color bool) formatter {
	return formatter{
		color:     color,
		timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		system:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
	}
}

func (f formatter) record(rec domain.LogRecord) string {
	if rec.Timestamp == nil && rec.Tag == nil {
		return rec.Raw
	}
	ts := ""
	if rec.Timestamp != nil {
		ts = localTime(*rec.Timestamp)
	}
	tag := ""
	if rec.Tag != nil {
		tag = "[" + *rec.Tag + "]"
		if *rec.Tag == domain.SystemTag {
			tag = f.paint(f.system, tag)
		} else {
			tag = f.paint(lipgloss.NewStyle().Foreground(tagColor(*rec.Tag)), tag)
		}
	}
	line := f.paint(f.timestamp, ts)
	if tag != "" {
		if line != "" {
			line += " "
		}
		line += tag
	}
	return line + " " + rec.Message
}

func (f formatter) changed(file string) string {
	return f.paint(f.notice, "~ "+file+" changed")
}

func (f formatter) paint(style lipgloss.Style, s string) string {
	if !f.color || s == "" {
		return s
	}
	return style.Render(s)
}

// localTime shortens RFC 3339 timestamps to local wall time; anything else
// is shown as written.
func localTime(ts string) string {
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return parsed.In(time.Local).Format("2006-01-02 15:04:05")
}

func tagColor(tag string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tag))
	return tagPalette[h.Sum32()%uint32(len(tagPalette))]
}
