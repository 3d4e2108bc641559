package middleware

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"gigmarket/pkg/response"
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window limiter keyed by client IP.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*window
	now     func() time.Time
}

func NewRateLimiter(limit int, win time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  win,
		clients: make(map[string]*window),
		now:     time.Now,
	}
}

func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.clients[key]
	if !ok || !now.Before(w.resetAt) {
		r.clients[key] = &window{count: 1, resetAt: now.Add(r.window)}
		return true
	}

	if w.count >= r.limit {
		return false
	}
	w.count++
	return true
}

// Cleanup drops expired windows. Call it periodically.
func (r *RateLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for key, w := range r.clients {
		if !now.Before(w.resetAt) {
			delete(r.clients, key)
		}
	}
}

func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip := clientIP(req)
		if !r.Allow(ip) {
			log.Printf("Rate limit exceeded for IP: %s", ip)
			response.Error(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, req)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
