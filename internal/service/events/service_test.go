package events

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
)

type broadcastStub struct {
	kinds    []string
	payloads [][]byte
}

func (b *broadcastStub) Broadcast(kind string, payload []byte) int {
	b.kinds = append(b.kinds, kind)
	b.payloads = append(b.payloads, payload)
	return 1
}

func newTestService(t *testing.T, logPath string, max int) (*Service, *broadcastStub) {
	t.Helper()
	stub := &broadcastStub{}
	svc := New(stub, logPath, max, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2026, time.February, 22, 0, 12, 50, 0, time.UTC) }
	return svc, stub
}

func decode(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("decode %s: %v", payload, err)
	}
	return out
}

func TestPublishLogEvent(t *testing.T) {
	svc, stub := newTestService(t, "", 0)
	ts, tag := "2026-02-22T00:12:50.918+08:00", "ws"
	svc.Publish(domain.LogEvent{Record: domain.LogRecord{Timestamp: &ts, Tag: &tag, Message: "hi", Raw: ts + " [ws] hi"}})

	if len(stub.payloads) != 1 || stub.kinds[0] != "log" {
		t.Fatalf("expected one log broadcast, got %v", stub.kinds)
	}
	env := decode(t, stub.payloads[0])
	if env["type"] != "log" || env["timestamp"] != "2026-02-22T00:12:50Z" {
		t.Fatalf("unexpected envelope %v", env)
	}
	data := env["data"].(map[string]any)
	if data["tag"] != "ws" || data["message"] != "hi" || data["timestamp"] != ts {
		t.Fatalf("unexpected record %v", data)
	}
}

func TestPublishRotationAsSystemRecord(t *testing.T) {
	svc, stub := newTestService(t, "", 0)
	svc.Publish(domain.RotatedEvent{})

	env := decode(t, stub.payloads[0])
	if env["type"] != "log" {
		t.Fatalf("expected rotation as log envelope, got %v", env["type"])
	}
	data := env["data"].(map[string]any)
	if data["tag"] != "system" || data["message"] != domain.RotationMessage {
		t.Fatalf("unexpected rotation record %v", data)
	}
	if v, ok := data["timestamp"]; !ok || v != nil {
		t.Fatalf("expected null record timestamp, got %v", v)
	}
	if data["raw"] != "" {
		t.Fatalf("expected empty raw, got %v", data["raw"])
	}
}

func TestPublishDataChanged(t *testing.T) {
	svc, stub := newTestService(t, "", 0)
	svc.Publish(domain.DataChangedEvent{FileName: "jobs.json", FullPath: "/home/u/.openclaw/cron/jobs.json"})

	if stub.kinds[0] != "data-changed" {
		t.Fatalf("unexpected kind %s", stub.kinds[0])
	}
	env := decode(t, stub.payloads[0])
	data := env["data"].(map[string]any)
	if data["file"] != "jobs.json" || data["path"] != "/home/u/.openclaw/cron/jobs.json" {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestGreeting(t *testing.T) {
	svc, _ := newTestService(t, "", 0)
	env := decode(t, svc.Greeting())
	if env["type"] != "connected" {
		t.Fatalf("unexpected greeting %v", env)
	}
	if _, ok := env["timestamp"]; ok {
		t.Fatalf("greeting carries no timestamp")
	}
	if data := env["data"].(map[string]any); data["message"] != ConnectedMessage {
		t.Fatalf("unexpected greeting data %v", data)
	}
}

func TestRecentClampsToMaximum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	var b strings.Builder
	for i := 0; i < 600; i++ {
		fmt.Fprintf(&b, "t%d [ws] line %d\n", i, i)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	svc, _ := newTestService(t, path, 500)

	records, err := svc.Recent(10000)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 500 {
		t.Fatalf("expected 500 records, got %d", len(records))
	}
	if records[0].Message != "line 100" || records[499].Message != "line 599" {
		t.Fatalf("expected most recent records in order, got %q .. %q", records[0].Message, records[499].Message)
	}

	records, err = svc.Recent(0)
	if err != nil {
		t.Fatalf("recent default: %v", err)
	}
	if len(records) != DefaultBacklog {
		t.Fatalf("expected default backlog, got %d", len(records))
	}
}

func TestRecentMissingLog(t *testing.T) {
	svc, _ := newTestService(t, filepath.Join(t.TempDir(), "absent.log"), 0)
	records, err := svc.Recent(5)
	if err != nil || len(records) != 0 {
		t.Fatalf("expected empty backlog, got %v %v", records, err)
	}
}
