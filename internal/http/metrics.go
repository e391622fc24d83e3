package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	transportWebSocket = "websocket"
	transportSSE       = "sse"
)

// Route classes label request metrics. Stream requests are counted but
// not timed: their duration is the viewer's session length.
const (
	classPull   = "pull"
	classStream = "stream"
	classOps    = "ops"
	classStatic = "static"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

func routeClass(route string, status int) string {
	switch {
	case status == http.StatusSwitchingProtocols, route == "/ws", route == "/api/events":
		return classStream
	case route == "/healthz", route == "/metrics":
		return classOps
	case strings.HasPrefix(route, "/api/"):
		return classPull
	default:
		return classStatic
	}
}

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		r.requestTotal = registerCollector(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openclaw_dashboard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route class, route and status",
		}, []string{"class", "method", "route", "status"}))
		r.requestLatency = registerCollector(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "openclaw_dashboard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of pull and ops requests",
			Buckets:   latencyBuckets,
		}, []string{"class", "route"}))
		r.rateLimitHits = registerCollector(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openclaw_dashboard",
			Subsystem: "http",
			Name:      "rate_limit_hits_total",
			Help:      "Requests refused by the per-client budget",
		}, []string{"class", "route"}))
		r.openStreams = registerCollector(prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "openclaw_dashboard",
			Subsystem: "http",
			Name:      "open_streams",
			Help:      "Live push connections by transport",
		}, []string{"transport"}))
		r.metricsInitialized = true
	})
}

// registerCollector registers c, or returns the collector already
// registered under the same descriptor.
func registerCollector[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	class := routeClass(route, status)
	r.requestTotal.WithLabelValues(class, method, route, strconv.Itoa(status)).Inc()
	if class != classStream {
		r.requestLatency.WithLabelValues(class, route).Observe(duration.Seconds())
	}
}

func (r *Router) recordRateLimitHit(route string) {
	if !r.metricsInitialized {
		return
	}
	r.rateLimitHits.WithLabelValues(routeClass(route, 0), route).Inc()
}

func (r *Router) streamOpened(transport string) {
	if r.metricsInitialized {
		r.openStreams.WithLabelValues(transport).Inc()
	}
}

func (r *Router) streamClosed(transport string) {
	if r.metricsInitialized {
		r.openStreams.WithLabelValues(transport).Dec()
	}
}
