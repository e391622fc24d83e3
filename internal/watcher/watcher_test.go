package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	events []domain.ChangeEvent
}

func (r *recorder) record(ev domain.ChangeEvent) {
	r.events = append(r.events, ev)
}

func (r *recorder) reset() {
	r.events = nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestNewSkipsMissingStatePaths(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "KANBAN.md")
	writeFile(t, present, "# board\n")
	absent := filepath.Join(dir, "MEMORY.md")

	w := New(filepath.Join(dir, "logs", "gateway.log"), []string{present, absent}, Options{}, testLogger())
	if w.LogActive() {
		t.Fatalf("expected log inactive without logs directory")
	}
	paths := w.StatePaths()
	if len(paths) != 1 || paths[0] != present {
		t.Fatalf("unexpected active paths %v", paths)
	}

	writeFile(t, absent, "created later\n")
	rec := &recorder{}
	w.pollState(rec.record)
	if len(rec.events) != 0 {
		t.Fatalf("expected path created after start to stay unwatched, got %v", rec.events)
	}
}

func TestPollLogEmitsRecordsInFileOrder(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "gateway.log")
	writeFile(t, logPath, "2026-02-22T00:00:00Z [ws] history\n")

	w := New(logPath, nil, Options{}, testLogger())
	rec := &recorder{}
	w.pollLog(rec.record)
	if len(rec.events) != 0 {
		t.Fatalf("expected no events for history, got %v", rec.events)
	}

	appendFile(t, logPath, "2026-02-22T00:00:01Z [agent] first\nstack frame\n")
	w.pollLog(rec.record)
	if len(rec.events) != 2 {
		t.Fatalf("expected two events, got %d", len(rec.events))
	}
	first, ok := rec.events[0].(domain.LogEvent)
	if !ok || first.Record.Tag == nil || *first.Record.Tag != "agent" || first.Record.Message != "first" {
		t.Fatalf("unexpected first event %+v", rec.events[0])
	}
	second, ok := rec.events[1].(domain.LogEvent)
	if !ok || second.Record.Tag != nil || second.Record.Message != "stack frame" {
		t.Fatalf("unexpected second event %+v", rec.events[1])
	}
}

func TestPollLogRotationPrecedesNewLines(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "gateway.log")
	writeFile(t, logPath, strings.Repeat("old [x] line\n", 5))
	w := New(logPath, nil, Options{}, testLogger())
	rec := &recorder{}

	if err := os.Truncate(logPath, 0); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	w.pollLog(rec.record)
	appendFile(t, logPath, "t1 [gw] after\n")
	w.pollLog(rec.record)

	if len(rec.events) != 2 {
		t.Fatalf("expected rotation plus one line, got %v", rec.events)
	}
	if _, ok := rec.events[0].(domain.RotatedEvent); !ok {
		t.Fatalf("expected rotation first, got %T", rec.events[0])
	}
	ev, ok := rec.events[1].(domain.LogEvent)
	if !ok || ev.Record.Message != "after" {
		t.Fatalf("unexpected event after rotation %+v", rec.events[1])
	}
}

func TestPollStateCoalescesWritesPerTick(t *testing.T) {
	dir := t.TempDir()
	jobs := filepath.Join(dir, "cron", "jobs.json")
	writeFile(t, jobs, `{"jobs":[]}`)
	w := New("", []string{jobs}, Options{}, testLogger())
	rec := &recorder{}

	w.pollState(rec.record)
	if len(rec.events) != 0 {
		t.Fatalf("expected no events before modification, got %v", rec.events)
	}

	writeFile(t, jobs, `{"jobs":[1]}`)
	writeFile(t, jobs, `{"jobs":[1,2]}`)
	writeFile(t, jobs, `{"jobs":[1,2,3]}`)
	w.pollState(rec.record)
	if len(rec.events) != 1 {
		t.Fatalf("expected one coalesced event, got %d", len(rec.events))
	}
	ev, ok := rec.events[0].(domain.DataChangedEvent)
	if !ok || ev.FileName != "jobs.json" || ev.FullPath != jobs {
		t.Fatalf("unexpected event %+v", rec.events[0])
	}

	rec.reset()
	w.pollState(rec.record)
	if len(rec.events) != 0 {
		t.Fatalf("expected quiet tick, got %v", rec.events)
	}
}

func TestPollStateDirectoryReportsChangedEntry(t *testing.T) {
	dir := t.TempDir()
	memory := filepath.Join(dir, "memory")
	writeFile(t, filepath.Join(memory, "2026-02-20.md"), "# day one\n")
	w := New("", []string{memory}, Options{}, testLogger())
	rec := &recorder{}

	added := filepath.Join(memory, "2026-02-21.md")
	writeFile(t, added, "# day two\n")
	w.pollState(rec.record)
	if len(rec.events) != 1 {
		t.Fatalf("expected one event, got %v", rec.events)
	}
	ev := rec.events[0].(domain.DataChangedEvent)
	if ev.FileName != "2026-02-21.md" || ev.FullPath != added {
		t.Fatalf("unexpected event %+v", ev)
	}

	rec.reset()
	archived := filepath.Join(memory, "archive", "2026-01-01.md")
	writeFile(t, archived, "# archived\n")
	w.pollState(rec.record)
	if len(rec.events) != 1 {
		t.Fatalf("expected archive change reported, got %v", rec.events)
	}
	if ev := rec.events[0].(domain.DataChangedEvent); ev.FullPath != archived {
		t.Fatalf("unexpected archive event %+v", ev)
	}
}

func TestPollStateReportsReappearedFile(t *testing.T) {
	dir := t.TempDir()
	kanban := filepath.Join(dir, "KANBAN.md")
	writeFile(t, kanban, "# board\n")
	w := New("", []string{kanban}, Options{}, testLogger())
	rec := &recorder{}

	if err := os.Remove(kanban); err != nil {
		t.Fatalf("remove: %v", err)
	}
	w.pollState(rec.record)
	if len(rec.events) != 0 {
		t.Fatalf("removal should not be reported, got %v", rec.events)
	}
	writeFile(t, kanban, "# board\n")
	w.pollState(rec.record)
	if len(rec.events) != 1 {
		t.Fatalf("expected reappearance reported once, got %v", rec.events)
	}
}

func TestRunDeliversEventsUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "gateway.log")
	writeFile(t, logPath, "")
	soul := filepath.Join(dir, "SOUL.md")
	writeFile(t, soul, "**Truth** one\n")

	w := New(logPath, []string{soul}, Options{LogInterval: minInterval, StateInterval: minInterval, FSNotify: true}, testLogger())
	events := make(chan domain.ChangeEvent, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(ev domain.ChangeEvent) { events <- ev })
	}()

	appendFile(t, logPath, "t [ws] live\n")
	writeFile(t, soul, "**Truth** one\n**Another** two\n")

	var sawLog, sawChange bool
	timeout := time.After(3 * time.Second)
	for !sawLog || !sawChange {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case domain.LogEvent:
				sawLog = e.Record.Message == "live"
			case domain.DataChangedEvent:
				sawChange = e.FileName == "SOUL.md"
			}
		case <-timeout:
			t.Fatalf("timed out: log=%v change=%v", sawLog, sawChange)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("watcher did not stop after cancel")
	}
}

func TestNewClampsPollIntervals(t *testing.T) {
	cases := []struct {
		name      string
		opts      Options
		wantLog   time.Duration
		wantState time.Duration
	}{
		{"defaults", Options{}, defaultLogInterval, defaultStateInterval},
		{"negative", Options{LogInterval: -time.Second, StateInterval: -1}, defaultLogInterval, defaultStateInterval},
		{"too short", Options{LogInterval: time.Millisecond, StateInterval: 49 * time.Millisecond}, minInterval, minInterval},
		{"kept", Options{LogInterval: 250 * time.Millisecond, StateInterval: 3 * time.Second}, 250 * time.Millisecond, 3 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := New("", nil, tc.opts, testLogger())
			if w.opts.LogInterval != tc.wantLog || w.opts.StateInterval != tc.wantState {
				t.Fatalf("got log=%s state=%s, want log=%s state=%s",
					w.opts.LogInterval, w.opts.StateInterval, tc.wantLog, tc.wantState)
			}
		})
	}
}
