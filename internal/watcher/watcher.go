// Package watcher observes the gateway log and the agent's state files and
// turns disk mutations into change events.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
	"github.com/altoslab447/openclaw-dashboard/internal/logline"
	"github.com/altoslab447/openclaw-dashboard/internal/tail"
)

const (
	defaultLogInterval   = time.Second
	defaultStateInterval = 2 * time.Second
	minInterval          = 50 * time.Millisecond
)

// Options tunes the observation cadence.
type Options struct {
	LogInterval   time.Duration
	StateInterval time.Duration
	// FSNotify adds OS change hints on top of polling. Polling stays
	// authoritative; hints only mark a path as changed for the next tick.
	FSNotify bool
}

// Watcher drives the log cursor and the state path observations from a
// single goroutine.
type Watcher struct {
	logPath string
	cursor  *tail.Cursor
	states  []*pathState
	dirty   map[string]struct{}
	opts    Options
	log     *slog.Logger
}

// New resolves the active path set. The log is followed when its directory
// exists; state paths missing now are skipped for the lifetime of the watcher.
func New(logPath string, statePaths []string, opts Options, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	initMetrics()

	w := &Watcher{
		logPath: logPath,
		dirty:   make(map[string]struct{}),
		log:     logger.With("component", "watcher"),
	}
	opts.LogInterval = w.interval("log", opts.LogInterval, defaultLogInterval)
	opts.StateInterval = w.interval("state", opts.StateInterval, defaultStateInterval)
	w.opts = opts
	if logPath != "" {
		if info, err := os.Stat(filepath.Dir(logPath)); err == nil && info.IsDir() {
			w.cursor = tail.NewCursor(logPath, logger)
		} else {
			w.log.Warn("log directory missing, live log disabled", "path", logPath)
		}
	}
	for _, path := range statePaths {
		info, err := os.Stat(path)
		if err != nil {
			w.log.Debug("state path missing, not watched", "path", path)
			continue
		}
		w.states = append(w.states, newPathState(path, info))
	}
	return w
}

// LogActive reports whether the gateway log is being followed.
func (w *Watcher) LogActive() bool {
	return w.cursor != nil
}

// StatePaths returns the state paths under observation.
func (w *Watcher) StatePaths() []string {
	paths := make([]string, 0, len(w.states))
	for _, ps := range w.states {
		paths = append(paths, ps.path)
	}
	return paths
}

// Run observes until ctx is cancelled. onEvent is invoked synchronously
// from the watcher goroutine, in detection order.
func (w *Watcher) Run(ctx context.Context, onEvent func(domain.ChangeEvent)) error {
	var (
		notifyEvents <-chan fsnotify.Event
		notifyErrors <-chan error
	)
	if w.opts.FSNotify && len(w.states) > 0 {
		notifier, err := w.startNotify()
		if err != nil {
			w.log.Warn("fsnotify unavailable, polling only", "error", err)
		} else {
			defer notifier.Close()
			notifyEvents = notifier.Events
			notifyErrors = notifier.Errors
		}
	}

	var logTick <-chan time.Time
	if w.cursor != nil {
		logTicker := time.NewTicker(w.opts.LogInterval)
		defer logTicker.Stop()
		logTick = logTicker.C
	}
	stateTicker := time.NewTicker(w.opts.StateInterval)
	defer stateTicker.Stop()

	w.log.Info("watcher started",
		"log", w.logPath,
		"log_active", w.cursor != nil,
		"state_paths", len(w.states),
		"fsnotify", notifyEvents != nil,
	)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher stopped")
			return nil
		case <-logTick:
			w.pollLog(onEvent)
		case <-stateTicker.C:
			w.pollState(onEvent)
		case ev, ok := <-notifyEvents:
			if !ok {
				notifyEvents = nil
				continue
			}
			w.markDirty(ev)
		case err, ok := <-notifyErrors:
			if !ok {
				notifyErrors = nil
				continue
			}
			w.log.Warn("fsnotify error", "error", err)
		}
	}
}

// interval applies the default to unset values and raises anything below
// minInterval to it.
func (w *Watcher) interval(name string, d, fallback time.Duration) time.Duration {
	switch {
	case d <= 0:
		return fallback
	case d < minInterval:
		w.log.Warn("poll interval too short, raising", "poll", name, "requested", d, "interval", minInterval)
		return minInterval
	default:
		return d
	}
}

func (w *Watcher) pollLog(onEvent func(domain.ChangeEvent)) {
	if w.cursor == nil {
		return
	}
	delta := w.cursor.Poll()
	if delta.Err != nil {
		tailReadErrors.Inc()
	}
	if delta.Rotated {
		tailRotations.Inc()
		onEvent(domain.RotatedEvent{})
	}
	for _, line := range delta.Lines {
		onEvent(domain.LogEvent{Record: logline.Parse(line)})
	}
	tailLines.Add(float64(len(delta.Lines)))
}

func (w *Watcher) pollState(onEvent func(domain.ChangeEvent)) {
	for _, ps := range w.states {
		changedPath, changed := ps.observe()
		if _, hinted := w.dirty[ps.path]; hinted {
			delete(w.dirty, ps.path)
			if !changed && ps.exists {
				changedPath, changed = ps.path, true
			}
		}
		if !changed {
			continue
		}
		name := filepath.Base(changedPath)
		stateChanges.WithLabelValues(filepath.Base(ps.path)).Inc()
		w.log.Info("state file changed", "file", name, "path", changedPath)
		onEvent(domain.DataChangedEvent{FileName: name, FullPath: changedPath})
	}
}

func (w *Watcher) startNotify() (*fsnotify.Watcher, error) {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, ps := range w.states {
		if err := notifier.Add(ps.path); err != nil {
			w.log.Debug("fsnotify add failed", "path", ps.path, "error", err)
		}
	}
	return notifier, nil
}

const hintOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

func (w *Watcher) markDirty(ev fsnotify.Event) {
	if ev.Op&hintOps == 0 {
		return
	}
	for _, ps := range w.states {
		if ev.Name == ps.path || (ps.dir && filepath.Dir(ev.Name) == ps.path) {
			w.dirty[ps.path] = struct{}{}
			return
		}
	}
}
