package logline

import (
	"encoding/json"
	"testing"
)

func TestParseMatchesGrammar(t *testing.T) {
	cases := []struct {
		line      string
		timestamp string
		tag       string
		message   string
	}{
		{"2026-02-22T00:12:50.918+08:00 [ws] client connected", "2026-02-22T00:12:50.918+08:00", "ws", "client connected"},
		{"2026-02-21T16:12:50.918Z [agent]run started", "2026-02-21T16:12:50.918Z", "agent", "run started"},
		{"12:00:01    [cron] ", "12:00:01", "cron", ""},
		{"t0 [a b] message [with] brackets", "t0", "a b", "message [with] brackets"},
	}
	for _, tc := range cases {
		rec := Parse(tc.line)
		if rec.Timestamp == nil || *rec.Timestamp != tc.timestamp {
			t.Fatalf("%q: unexpected timestamp %v", tc.line, rec.Timestamp)
		}
		if rec.Tag == nil || *rec.Tag != tc.tag {
			t.Fatalf("%q: unexpected tag %v", tc.line, rec.Tag)
		}
		if rec.Message != tc.message {
			t.Fatalf("%q: expected message %q, got %q", tc.line, tc.message, rec.Message)
		}
		if rec.Raw != tc.line {
			t.Fatalf("%q: raw not preserved, got %q", tc.line, rec.Raw)
		}
	}
}

func TestParseFallsBackToWholeLine(t *testing.T) {
	lines := []string{
		"",
		"    at Object.<anonymous> (/srv/gateway.js:10:5)",
		"[ws] missing timestamp",
		"no tag here at all",
		"2026-02-22T00:12:50Z [] empty tag",
		"2026-02-22T00:12:50Z [unterminated tag",
	}
	for _, line := range lines {
		rec := Parse(line)
		if rec.Timestamp != nil || rec.Tag != nil {
			t.Fatalf("%q: expected absent timestamp and tag, got %v %v", line, rec.Timestamp, rec.Tag)
		}
		if rec.Message != line || rec.Raw != line {
			t.Fatalf("%q: expected message and raw to equal line, got %q / %q", line, rec.Message, rec.Raw)
		}
	}
}

func TestParseIgnoresTrailingCarriageReturn(t *testing.T) {
	line := "2026-02-22T00:12:50Z [gateway] ready\r"
	rec := Parse(line)
	if rec.Message != "ready" {
		t.Fatalf("expected carriage return stripped from message, got %q", rec.Message)
	}
	if rec.Raw != line {
		t.Fatalf("expected raw kept verbatim, got %q", rec.Raw)
	}
}

func TestParseEncodesAbsentFieldsAsNull(t *testing.T) {
	data, err := json.Marshal(Parse("plain"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"timestamp":null,"tag":null,"message":"plain","raw":"plain"}`
	if string(data) != want {
		t.Fatalf("unexpected encoding %s", data)
	}
}

func TestParseAllKeepsOrder(t *testing.T) {
	records := ParseAll([]string{"a [x] 1", "b [y] 2", "tail"})
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Message != "1" || records[1].Message != "2" || records[2].Message != "tail" {
		t.Fatalf("unexpected order %+v", records)
	}
}
