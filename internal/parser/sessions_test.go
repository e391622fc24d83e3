package parser

import (
	"strings"
	"testing"
	"time"
)

const sessionsIndex = `{
	"agent:main:main": {"sessionId": "s-main", "updatedAt": 1771718400000, "channel": "telegram", "totalTokens": 100, "inputTokens": 60, "outputTokens": 40, "origin": {"label": "Alice"}},
	"agent:main:cron:digest": {"sessionId": "s-cron", "updatedAt": 1771804800000, "totalTokens": 5},
	"agent:main:subagent:x": {"sessionId": "s-sub", "updatedAt": 1771632000000, "lastChannel": "slack", "origin": {"surface": "cli"}},
	"agent:main:group:ops": {"sessionId": "", "updatedAt": 0}
}`

func TestSessions(t *testing.T) {
	f := newFixture(t)
	f.write(t, "agents/main/sessions/sessions.json", sessionsIndex)

	sessions := f.reader.Sessions(20)
	if len(sessions) != 3 {
		t.Fatalf("expected inactive session skipped, got %d", len(sessions))
	}
	if sessions[0].Type != "cron" || sessions[1].Type != "dm" || sessions[2].Type != "subagent" {
		t.Fatalf("unexpected order/types: %s %s %s", sessions[0].Type, sessions[1].Type, sessions[2].Type)
	}
	if sessions[1].Origin != "Alice" || sessions[1].Channel != "telegram" || sessions[1].UpdatedAt != "2026-02-22T00:00:00.000Z" {
		t.Fatalf("unexpected dm session %+v", sessions[1])
	}
	if sessions[2].Origin != "cli" || sessions[2].Channel != "slack" {
		t.Fatalf("expected fallbacks for origin and channel, got %+v", sessions[2])
	}
	if got := f.reader.Sessions(1); len(got) != 1 || got[0].Type != "cron" {
		t.Fatalf("expected limit honoured, got %+v", got)
	}
}

func TestSessionSummaries(t *testing.T) {
	f := newFixture(t)
	f.write(t, "agents/main/sessions/sessions.json", sessionsIndex)
	f.write(t, "agents/main/sessions/s-main.jsonl", strings.Join([]string{
		`{"type":"message","timestamp":"t1","message":{"role":"user","content":"first question"}}`,
		`{"type":"message","timestamp":"t2","message":{"role":"assistant","content":"answer"}}`,
		`{"type":"message","timestamp":"t3","message":{"role":"user","content":[{"type":"text","text":"part one"},{"type":"image"},{"type":"text","text":"part two"}]}}`,
		`{"type":"message","timestamp":"t4","message":{"role":"user","content":"System: heartbeat"}}`,
		`{"type":"message","timestamp":"t5","message":{"role":"user","content":"Conversation info (untrusted)\n\nmeta\n\nreal text"}}`,
		`{"type":"message","timestamp":"t6","message":{"role":"user","content":"ok"}}`,
		`not json`,
		``,
	}, "\n"))
	f.write(t, "agents/main/sessions/s-cron.jsonl", `{"type":"message","message":{"role":"user","content":"cron run"}}`)

	summaries := f.reader.SessionSummaries(5, 5)
	if len(summaries) != 1 {
		t.Fatalf("expected only the dm session with transcript, got %+v", summaries)
	}
	s := summaries[0]
	if s.Key != "agent:main:main" || s.Origin != "Alice" {
		t.Fatalf("unexpected summary %+v", s)
	}
	var texts []string
	for _, m := range s.Messages {
		texts = append(texts, m.Text)
	}
	if strings.Join(texts, "|") != "first question|part one part two|real text" {
		t.Fatalf("unexpected messages %q", texts)
	}
	if s.Messages[0].Timestamp != "t1" {
		t.Fatalf("expected timestamps kept, got %v", s.Messages[0].Timestamp)
	}

	if got := f.reader.SessionSummaries(5, 1); len(got[0].Messages) != 1 || got[0].Messages[0].Text != "real text" {
		t.Fatalf("expected newest message only, got %+v", got[0].Messages)
	}
}

func TestTokenTrend(t *testing.T) {
	f := newFixture(t)
	f.write(t, "agents/main/sessions/sessions.json", sessionsIndex)
	f.reader.now = func() time.Time { return time.Date(2026, time.February, 23, 8, 0, 0, 0, time.UTC) }

	trend := f.reader.TokenTrend(4)
	if len(trend) != 4 {
		t.Fatalf("expected four days, got %d", len(trend))
	}
	wantDates := []string{"2026-02-20", "2026-02-21", "2026-02-22", "2026-02-23"}
	for i, day := range trend {
		if day.Date != wantDates[i] {
			t.Fatalf("day %d: expected %s, got %s", i, wantDates[i], day.Date)
		}
	}
	if trend[1].Sessions != 1 || trend[2].TotalTokens != 100 || trend[2].InputTokens != 60 || trend[3].TotalTokens != 5 {
		t.Fatalf("unexpected aggregation %+v", trend)
	}
	if trend[0].Sessions != 0 {
		t.Fatalf("expected empty day, got %+v", trend[0])
	}
}
