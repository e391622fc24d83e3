package parser

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
)

const summaryTextLimit = 200

type sessionMeta struct {
	SessionID     string  `json:"sessionId"`
	UpdatedAt     float64 `json:"updatedAt"`
	Channel       string  `json:"channel"`
	LastChannel   string  `json:"lastChannel"`
	Model         string  `json:"model"`
	ModelProvider string  `json:"modelProvider"`
	TotalTokens   float64 `json:"totalTokens"`
	InputTokens   float64 `json:"inputTokens"`
	OutputTokens  float64 `json:"outputTokens"`
	ChatType      string  `json:"chatType"`
	Origin        struct {
		Label   string `json:"label"`
		Surface string `json:"surface"`
	} `json:"origin"`
}

func (r *Reader) sessionsDir() string {
	return r.homePath("agents", "main", "sessions")
}

// loadSessions decodes sessions.json, keeping entries with activity.
func (r *Reader) loadSessions() map[string]sessionMeta {
	raw, ok := readFile(filepath.Join(r.sessionsDir(), "sessions.json"))
	if !ok {
		return nil
	}
	var index map[string]json.RawMessage
	if err := decodeJSON([]byte(raw), &index); err != nil {
		return nil
	}
	sessions := make(map[string]sessionMeta, len(index))
	for key, data := range index {
		var meta sessionMeta
		if err := json.Unmarshal(data, &meta); err != nil || meta.UpdatedAt <= 0 {
			continue
		}
		sessions[key] = meta
	}
	return sessions
}

// classifySession derives the session type and icon from its key.
func classifySession(key string) (string, string) {
	switch {
	case strings.Contains(key, ":cron:"):
		return "cron", "⏰"
	case strings.Contains(key, ":subagent:"):
		return "subagent", "🤖"
	case strings.Contains(key, ":group:"):
		return "group", "👥"
	case key == "agent:main:main":
		return "dm", "💬"
	case strings.Contains(key, ":topic:"):
		return "topic", "📌"
	default:
		return "other", "📡"
	}
}

// Sessions lists the most recently active sessions, newest first.
func (r *Reader) Sessions(limit int) []domain.Session {
	index := r.loadSessions()
	sessions := make([]domain.Session, 0, len(index))
	for key, meta := range index {
		kind, icon := classifySession(key)
		origin := meta.Origin.Label
		if origin == "" {
			origin = meta.Origin.Surface
		}
		channel := meta.Channel
		if channel == "" {
			channel = meta.LastChannel
		}
		updated := int64(meta.UpdatedAt)
		sessions = append(sessions, domain.Session{
			Key:           key,
			SessionID:     meta.SessionID,
			Type:          kind,
			Icon:          icon,
			Channel:       channel,
			Model:         meta.Model,
			ModelProvider: meta.ModelProvider,
			TotalTokens:   int64(meta.TotalTokens),
			InputTokens:   int64(meta.InputTokens),
			OutputTokens:  int64(meta.OutputTokens),
			ChatType:      meta.ChatType,
			Origin:        origin,
			UpdatedAt:     formatMillis(updated),
			UpdatedAtMS:   updated,
		})
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].UpdatedAtMS != sessions[j].UpdatedAtMS {
			return sessions[i].UpdatedAtMS > sessions[j].UpdatedAtMS
		}
		return sessions[i].Key < sessions[j].Key
	})
	if limit >= 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions
}

type transcriptEntry struct {
	Type      string          `json:"type"`
	Timestamp any             `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

type transcriptMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// SessionSummaries returns the latest user messages of the most recently
// active non-cron sessions that have a transcript on disk.
func (r *Reader) SessionSummaries(maxSessions, maxMessages int) []domain.SessionSummary {
	type candidate struct {
		key     string
		origin  string
		updated int64
		path    string
	}
	var candidates []candidate
	for key, meta := range r.loadSessions() {
		if strings.Contains(key, ":cron:") || meta.SessionID == "" {
			continue
		}
		path := filepath.Join(r.sessionsDir(), meta.SessionID+".jsonl")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		candidates = append(candidates, candidate{key: key, origin: meta.Origin.Label, updated: int64(meta.UpdatedAt), path: path})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].updated != candidates[j].updated {
			return candidates[i].updated > candidates[j].updated
		}
		return candidates[i].key < candidates[j].key
	})
	if maxSessions >= 0 && len(candidates) > maxSessions {
		candidates = candidates[:maxSessions]
	}

	summaries := []domain.SessionSummary{}
	for _, c := range candidates {
		lines, err := readNonBlankLines(c.path)
		if err != nil {
			continue
		}
		summaries = append(summaries, domain.SessionSummary{
			Key:       c.key,
			Origin:    c.origin,
			UpdatedAt: formatMillis(c.updated),
			Messages:  latestUserMessages(lines, maxMessages),
		})
	}
	return summaries
}

func latestUserMessages(lines []string, max int) []domain.SessionMessage {
	msgs := []domain.SessionMessage{}
	for i := len(lines) - 1; i >= 0 && len(msgs) < max; i-- {
		var entry transcriptEntry
		if err := json.Unmarshal([]byte(lines[i]), &entry); err != nil || entry.Type != "message" {
			continue
		}
		var msg transcriptMessage
		if err := json.Unmarshal(entry.Message, &msg); err != nil || msg.Role != "user" {
			continue
		}
		text, ok := messageText(msg.Content)
		if !ok {
			continue
		}
		if strings.Contains(text, "Conversation info") {
			parts := strings.Split(text, "\n\n")
			text = parts[len(parts)-1]
		}
		if strings.HasPrefix(text, "System:") {
			continue
		}
		text = strings.TrimSpace(text)
		if len([]rune(text)) < 3 {
			continue
		}
		text, _ = truncateRunes(text, summaryTextLimit)
		msgs = append([]domain.SessionMessage{{Text: text, Timestamp: entry.Timestamp}}, msgs...)
	}
	return msgs
}

// messageText accepts either a plain string or a list of typed parts.
func messageText(content json.RawMessage) (string, bool) {
	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return text, true
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &parts); err != nil {
		return "", false
	}
	var texts []string
	for _, p := range parts {
		if p.Type == "text" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, " "), true
}

func readNonBlankLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// TokenTrend sums token usage per UTC day over the last days days,
// including days without activity.
func (r *Reader) TokenTrend(days int) []domain.TokenDay {
	index := r.loadSessions()
	if index == nil || days <= 0 {
		return []domain.TokenDay{}
	}
	byDay := make(map[string]*domain.TokenDay)
	for _, meta := range index {
		day := time.UnixMilli(int64(meta.UpdatedAt)).UTC().Format("2006-01-02")
		agg, ok := byDay[day]
		if !ok {
			agg = &domain.TokenDay{Date: day}
			byDay[day] = agg
		}
		agg.TotalTokens += int64(meta.TotalTokens)
		agg.InputTokens += int64(meta.InputTokens)
		agg.OutputTokens += int64(meta.OutputTokens)
		agg.Sessions++
	}
	now := r.now().UTC()
	trend := make([]domain.TokenDay, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		if agg, ok := byDay[day]; ok {
			trend = append(trend, *agg)
			continue
		}
		trend = append(trend, domain.TokenDay{Date: day})
	}
	return trend
}
