// Limits on brief regeneration. A refresh makes the simulation service build a
// new brief, so each client gets a budget per run and perspective. Reading the
// brief already held by the session is never limited.
package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/control-room/internal/session"
)

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int           // requests allowed per window
	period    time.Duration // window length
	lastPrune time.Time
	now       func() time.Time
}

type window struct {
	used  int
	start time.Time
}

// NewRateLimiter allows limit requests per key in each period.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow records a request for key and reports whether it fits the budget.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.pruneLocked(now)

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.period {
		w = &window{start: now}
		rl.windows[key] = w
	}
	if w.used >= rl.limit {
		return false
	}
	w.used++
	return true
}

// RetryAfter returns the seconds until key's window resets.
func (rl *RateLimiter) RetryAfter(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok {
		return 0
	}
	remaining := rl.period - rl.now().Sub(w.start)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// pruneLocked drops expired windows, at most once per period.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	if now.Sub(rl.lastPrune) < rl.period {
		return
	}
	rl.lastPrune = now
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.period {
			delete(rl.windows, key)
		}
	}
}

// clientIP returns the first X-Forwarded-For address, else the remote host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// refreshKey scopes a client's budget to the run and lens being briefed.
func refreshKey(r *http.Request, v session.View) string {
	return clientIP(r) + "|" + v.SimulationID + "|" + string(v.Perspective)
}

// limitRefresh rejects brief refreshes over budget with 429. Plain reads pass.
func (s *Server) limitRefresh(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("refresh") != "true" {
			next(w, r)
			return
		}
		key := refreshKey(r, s.Session.View())
		if !rl.Allow(key) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(key)))
			http.Error(w, "brief refresh limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
