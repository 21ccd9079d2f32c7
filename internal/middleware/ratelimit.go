// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// cleanupInterval is how often idle clients are dropped.
const cleanupInterval = 5 * time.Minute

// attempts holds the request times of one client inside the window.
type attempts struct {
	mu    sync.Mutex
	times []time.Time
}

// RateLimiter throttles sign-in attempts per client IP over a sliding
// window.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*attempts
	limit   int
	window  time.Duration
	stopCh  chan struct{}
	now     func() time.Time
}

// NewRateLimiter allows limit POSTs per window and client. It starts a
// goroutine that drops idle clients until Stop is called.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*attempts),
		limit:   limit,
		window:  window,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// Stop terminates the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *RateLimiter) client(key string) *attempts {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	a, ok := rl.clients[key]
	if !ok {
		a = &attempts{}
		rl.clients[key] = a
	}
	return a
}

// allow records an attempt for key if it is under the limit. When it is
// not, wait is how long until the oldest attempt leaves the window.
func (rl *RateLimiter) allow(key string) (ok bool, wait time.Duration) {
	a := rl.client(key)
	now := rl.now()
	cutoff := now.Add(-rl.window)

	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.times[:0]
	for _, ts := range a.times {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	a.times = kept

	if len(a.times) >= rl.limit {
		if len(a.times) == 0 {
			return false, rl.window
		}
		return false, a.times[0].Sub(cutoff)
	}

	a.times = append(a.times, now)
	return true, 0
}

// cleanup removes clients with no attempt inside the window.
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, a := range rl.clients {
		a.mu.Lock()
		idle := len(a.times) == 0 || !a.times[len(a.times)-1].After(cutoff)
		a.mu.Unlock()
		if idle {
			delete(rl.clients, key)
		}
	}
}

// Middleware rate-limits POSTs by client IP. Other methods pass untouched,
// so the login form itself always loads.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r)
		ok, wait := rl.allow(ip)
		if !ok {
			log.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(wait)))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// retrySeconds rounds wait up to whole seconds, at least one.
func retrySeconds(wait time.Duration) int {
	s := int((wait + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

// clientIP is the host part of RemoteAddr. Forwarding headers are ignored
// here; behind a trusted proxy chi's RealIP rewrites RemoteAddr first.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
