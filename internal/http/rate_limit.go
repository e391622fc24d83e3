package httpx

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const rateLimiterSweepInterval = 5 * time.Minute

// rateBudget is how many requests one client may make on one route per window.
type rateBudget struct {
	limit  int
	window time.Duration
}

var streamBudget = rateBudget{limit: 30, window: 30 * time.Second}

func pullBudget(perMinute int) rateBudget {
	return rateBudget{limit: perMinute, window: time.Minute}
}

func (b rateBudget) enabled() bool {
	return b.limit > 0
}

func (b rateBudget) normalized() rateBudget {
	if b.window <= 0 {
		b.window = time.Minute
	}
	return b
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(key string, budget rateBudget) rateDecision
	Close()
}

type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

func (d rateDecision) remaining(b rateBudget) int {
	if left := b.limit - d.count; left > 0 {
		return left
	}
	return 0
}

// memoryRateLimiter keeps windows in process memory. Expired windows are
// swept from Allow itself, at most once per rateLimiterSweepInterval.
type memoryRateLimiter struct {
	mu        sync.Mutex
	windows   map[string]rateDecision
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryRateLimiter returns a limiter local to this process.
func NewMemoryRateLimiter() RateLimiter {
	return newMemoryRateLimiter(time.Now)
}

func newMemoryRateLimiter(now func() time.Time) *memoryRateLimiter {
	return &memoryRateLimiter{
		windows:   make(map[string]rateDecision),
		lastSweep: now(),
		now:       now,
	}
}

func (rl *memoryRateLimiter) Allow(key string, budget rateBudget) rateDecision {
	if !budget.enabled() {
		return rateDecision{allowed: true}
	}
	budget = budget.normalized()
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if now.Sub(rl.lastSweep) >= rateLimiterSweepInterval {
		rl.sweepLocked(now)
	}

	w, ok := rl.windows[key]
	if !ok || now.After(w.windowEnd) {
		w = rateDecision{windowEnd: now.Add(budget.window)}
	}
	if w.count >= budget.limit {
		w.allowed = false
		return w
	}
	w.count++
	w.allowed = true
	rl.windows[key] = w
	return w
}

func (rl *memoryRateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sweepLocked(now)
}

func (rl *memoryRateLimiter) sweepLocked(now time.Time) {
	for key, w := range rl.windows {
		if now.After(w.windowEnd) {
			delete(rl.windows, key)
		}
	}
	rl.lastSweep = now
}

func (rl *memoryRateLimiter) Close() {}

// withRateLimit charges each request against the client's budget for route.
// Budgets are separate per route so a busy dashboard tab polling one view
// does not starve the others.
func (r *Router) withRateLimit(route string, budget rateBudget, next http.HandlerFunc) http.HandlerFunc {
	if !budget.enabled() || r.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, req *http.Request) {
		decision := r.limiter.Allow(route+"|"+remoteHost(req), budget)
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(budget.limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.remaining(budget)))
		if !decision.windowEnd.IsZero() {
			headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
		}
		if !decision.allowed {
			r.recordRateLimitHit(route)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, req)
	}
}

// remoteHost keys budgets on the connection address. X-Forwarded-For is
// only used for logging since any client can set it.
func remoteHost(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	return host
}
