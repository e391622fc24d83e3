// Package parser extracts dashboard views from the agent's markdown and
// JSON state files. Every extractor is total: a missing or malformed file
// yields the default shape for that view.
package parser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
)

// isoMillis matches the millisecond UTC timestamps used across the API.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Reader resolves state files under the OpenClaw home and workspace
// directories.
type Reader struct {
	home      string
	workspace string
	now       func() time.Time
}

// New returns a Reader rooted at home and workspace.
func New(home, workspace string) *Reader {
	return &Reader{home: home, workspace: workspace, now: time.Now}
}

// Home returns the OpenClaw home directory.
func (r *Reader) Home() string { return r.home }

// Workspace returns the agent workspace directory.
func (r *Reader) Workspace() string { return r.workspace }

func (r *Reader) workspacePath(parts ...string) string {
	return filepath.Join(append([]string{r.workspace}, parts...)...)
}

func (r *Reader) homePath(parts ...string) string {
	return filepath.Join(append([]string{r.home}, parts...)...)
}

// readFile returns the file contents, or false when it cannot be read.
func readFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// decodeJSON accepts JSON with comments and trailing commas.
func decodeJSON(data []byte, v any) error {
	return json.Unmarshal(jsonc.ToJSON(data), v)
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoMillis)
}

func strPtr(s string) *string {
	return &s
}

// firstGroup returns the first capture group of re in text.
func firstGroup(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// splitSections groups "- " bullets under headings that start with prefix.
func splitSections(raw, prefix string) []domain.Section {
	sections := []domain.Section{}
	var current *domain.Section
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, prefix):
			if current != nil {
				sections = append(sections, *current)
			}
			current = &domain.Section{
				Title: strings.TrimSpace(strings.Replace(line, prefix, "", 1)),
				Items: []string{},
			}
		case current != nil && strings.HasPrefix(trimmed, "- "):
			current.Items = append(current.Items, strings.TrimPrefix(trimmed, "- "))
		}
	}
	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}

func truncateRunes(s string, n int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= n {
		return s, false
	}
	return string(runes[:n]), true
}
