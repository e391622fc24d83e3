package httpx

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
	"github.com/altoslab447/openclaw-dashboard/internal/service/events"
	"github.com/altoslab447/openclaw-dashboard/internal/service/snapshot"
	"github.com/altoslab447/openclaw-dashboard/internal/ws"
)

// StateReader serves the parsed state-file views.
type StateReader interface {
	snapshot.Source
	Sessions(limit int) []domain.Session
	SessionSummaries(maxSessions, maxMessages int) []domain.SessionSummary
	TokenTrend(days int) []domain.TokenDay
}

// WatchStatus reports what the file watcher is following.
type WatchStatus interface {
	LogActive() bool
	StatePaths() []string
}

// Dependencies are the services the router exposes.
type Dependencies struct {
	Events    *events.Service
	Snapshots *snapshot.Assembler
	State     StateReader
	Hub       *ws.Hub
	Watch     WatchStatus
	Limiter   RateLimiter
	// RateLimit is the per-IP request budget per minute on /api/*. Zero disables it.
	RateLimit int
	StaticDir string
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	events    *events.Service
	snapshots *snapshot.Assembler
	state     StateReader
	hub       *ws.Hub
	watch     WatchStatus
	upgrader  websocket.Upgrader
	limiter   RateLimiter
	pull      rateBudget
	static    http.Handler
	heartbeat time.Duration
	wsHandler http.HandlerFunc

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	openStreams        *prometheus.GaugeVec
}

const (
	sseHeartbeat      = 15 * time.Second
	dailyLogsDefault  = 7
	dailyLogsMax      = 30
	sessionsDefault   = 20
	sessionsMax       = 100
	summarySessions   = 5
	summaryMessages   = 5
	tokenTrendDefault = 7
	tokenTrendMax     = 90
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, deps Dependencies) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger.With("component", "http"),
		events:    deps.Events,
		snapshots: deps.Snapshots,
		state:     deps.State,
		hub:       deps.Hub,
		watch:     deps.Watch,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:   deps.Limiter,
		pull:      pullBudget(deps.RateLimit),
		heartbeat: sseHeartbeat,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if deps.StaticDir != "" {
		r.static = http.FileServer(http.Dir(deps.StaticDir))
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.wsHandler = r.withRateLimit("/ws", streamBudget, r.handleWS)

	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.HandleFunc("/metrics", r.audit("/metrics", promhttp.Handler().ServeHTTP))
	r.mux.HandleFunc("/ws", r.audit("/ws", r.wsHandler))
	r.mux.HandleFunc("/api/events", r.audit("/api/events", r.cors(
		r.withRateLimit("/api/events", streamBudget, r.handleSSE))))

	r.api("/api/agent", func(*http.Request) any { return r.state.Agent() })
	r.api("/api/kanban", func(*http.Request) any { return r.state.Kanban() })
	r.api("/api/skills", func(*http.Request) any { return r.state.Skills() })
	r.api("/api/cron", func(*http.Request) any { return r.state.Cron() })
	r.api("/api/memory", func(*http.Request) any { return r.state.Memory() })
	r.api("/api/config", func(*http.Request) any { return r.state.Config() })
	r.api("/api/stability", func(*http.Request) any { return r.state.Stability() })
	r.api("/api/daily-logs", func(req *http.Request) any {
		logs := r.state.DailyLogs(queryInt(req, "days", dailyLogsDefault, dailyLogsMax))
		if logs == nil {
			logs = []domain.DailyLog{}
		}
		return logs
	})
	r.api("/api/sessions", func(req *http.Request) any {
		return r.state.Sessions(queryInt(req, "limit", sessionsDefault, sessionsMax))
	})
	r.api("/api/session-summaries", func(*http.Request) any {
		return r.state.SessionSummaries(summarySessions, summaryMessages)
	})
	r.api("/api/token-trend", func(req *http.Request) any {
		return r.state.TokenTrend(queryInt(req, "days", tokenTrendDefault, tokenTrendMax))
	})
	r.mux.HandleFunc("/api/logs", r.audit("/api/logs", r.cors(r.apiRateLimit("/api/logs", r.handleLogs))))
	r.mux.HandleFunc("/api/all", r.audit("/api/all", r.cors(r.apiRateLimit("/api/all", r.handleAll))))
	r.mux.HandleFunc("/api/", r.audit("/api/", r.cors(func(w http.ResponseWriter, _ *http.Request) {
		r.notFound(w)
	})))
	r.mux.HandleFunc("/", r.audit("/", r.handleRoot))
}

// api registers a read-only JSON view.
func (r *Router) api(route string, view func(*http.Request) any) {
	r.mux.HandleFunc(route, r.audit(route, r.cors(r.apiRateLimit(route, func(w http.ResponseWriter, req *http.Request) {
		if !allowRead(req) {
			r.methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, view(req))
	}))))
}

func (r *Router) apiRateLimit(route string, next http.HandlerFunc) http.HandlerFunc {
	return r.withRateLimit(route, r.pull, gzhttp.GzipHandler(next))
}

func (r *Router) handleLogs(w http.ResponseWriter, req *http.Request) {
	if !allowRead(req) {
		r.methodNotAllowed(w)
		return
	}
	count, _ := strconv.Atoi(req.URL.Query().Get("count"))
	records, err := r.events.Recent(count)
	if err != nil {
		r.logger.Warn("failed to read log backlog", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read logs")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (r *Router) handleAll(w http.ResponseWriter, req *http.Request) {
	if !allowRead(req) {
		r.methodNotAllowed(w)
		return
	}
	snap, err := r.snapshots.Snapshot(req.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if !allowRead(req) {
		r.methodNotAllowed(w)
		return
	}
	watching := map[string]any{"log": false, "statePaths": 0}
	if r.watch != nil {
		watching["log"] = r.watch.LogActive()
		watching["statePaths"] = len(r.watch.StatePaths())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"watching":    watching,
		"subscribers": r.hub.Len(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		reqID := strings.TrimSpace(req.Header.Get("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", reqID,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		case route == "/metrics" || route == "/healthz":
			r.logger.Debug("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

// cors allows any origin to read; the dashboard UI may be served elsewhere.
func (r *Router) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		headers := w.Header()
		headers.Set("Access-Control-Allow-Origin", "*")
		headers.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		headers.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		headers.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, req)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		conn, rw, err := h.Hijack()
		if err == nil {
			sr.status = http.StatusSwitchingProtocols
		}
		return conn, rw, err
	}
	return nil, nil, errors.New("hijacker not supported")
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func allowRead(req *http.Request) bool {
	return req.Method == http.MethodGet || req.Method == http.MethodHead
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
