package watcher

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	tailLines      prometheus.Counter
	tailRotations  prometheus.Counter
	tailReadErrors prometheus.Counter
	stateChanges   *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		tailLines = registerCounter(prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "openclaw_dashboard",
			Subsystem: "watcher",
			Name:      "tail_lines_total",
			Help:      "Log lines read from the gateway log",
		}))
		tailRotations = registerCounter(prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "openclaw_dashboard",
			Subsystem: "watcher",
			Name:      "tail_rotations_total",
			Help:      "Detected truncations or replacements of the gateway log",
		}))
		tailReadErrors = registerCounter(prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "openclaw_dashboard",
			Subsystem: "watcher",
			Name:      "tail_read_errors_total",
			Help:      "Transient failures reading the gateway log",
		}))
		stateChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openclaw_dashboard",
			Subsystem: "watcher",
			Name:      "state_changes_total",
			Help:      "Change notifications emitted per watched state path",
		}, []string{"file"})
		if err := prometheus.Register(stateChanges); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
					stateChanges = existing
				}
			}
		}
	})
}

func registerCounter(c prometheus.Counter) prometheus.Counter {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
	}
	return c
}
