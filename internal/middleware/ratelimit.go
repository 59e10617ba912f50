package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterRegistry keeps one token bucket per client key.
type RateLimiterRegistry struct {
	rps   rate.Limit
	burst int

	mu       sync.RWMutex
	limiters map[string]*limiterEntry
	now      func() time.Time
}

func NewRateLimiterRegistry(rps float64, burst int) *RateLimiterRegistry {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiterRegistry{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
}

// Allow reports whether key may make another request now.
func (r *RateLimiterRegistry) Allow(key string) bool {
	return r.getOrCreate(key).Allow()
}

func (r *RateLimiterRegistry) getOrCreate(key string) *rate.Limiter {
	now := r.now()

	r.mu.RLock()
	e, ok := r.limiters[key]
	r.mu.RUnlock()
	if ok {
		r.mu.Lock()
		e.lastSeen = now
		r.mu.Unlock()
		return e.limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.limiters[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	e = &limiterEntry{limiter: rate.NewLimiter(r.rps, r.burst), lastSeen: now}
	r.limiters[key] = e
	return e.limiter
}

// Sweep drops limiters not used for idle and returns how many were removed.
func (r *RateLimiterRegistry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(r.limiters, k)
			n++
		}
	}
	return n
}

func (r *RateLimiterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}

// Run sweeps idle limiters every interval until ctx is done.
func (r *RateLimiterRegistry) Run(ctx context.Context, interval, idle time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			r.Sweep(idle)
		}
	}
}

// RateLimit rejects clients over their budget with 429. Clients are keyed
// by remote IP, so chi's RealIP should run first when behind a proxy.
func RateLimit(reg *RateLimiterRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !reg.Allow(clientIP(r)) {
				retry := 1
				if reg.rps > 0 {
					retry = max(1, int(1/float64(reg.rps)))
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeJSONError(w, http.StatusTooManyRequests, "Too many requests", "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
