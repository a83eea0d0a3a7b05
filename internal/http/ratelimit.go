package http

import (
	"net/http"
	"sync"
	"time"

	"financas/internal/middleware/trace"
)

// rateLimiter is a fixed-window limiter per client, applied to writes.
type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientInfo
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type clientInfo struct {
	windowStart time.Time
	requests    int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string]*clientInfo),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// allow counts a request from key and reports whether it fits the window.
func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	client, ok := rl.clients[key]
	if !ok || now.Sub(client.windowStart) >= rl.window {
		rl.clients[key] = &clientInfo{windowStart: now, requests: 1}
		return true
	}
	client.requests++
	return client.requests <= rl.limit
}

// sweep drops clients idle for ten windows. Caller holds mu.
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < 5*rl.window {
		return
	}
	rl.lastSweep = now
	cutoff := now.Add(-10 * rl.window)
	for key, c := range rl.clients {
		if c.windowStart.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// middleware limits state-changing requests; reads pass through.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get(HeaderPerson)
		if key == "" {
			key = trace.ClientIP(r)
		}
		if !rl.allow(key) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
