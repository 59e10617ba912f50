package middleware

import (
	"net/http"
	"time"

	"github.com/parisxmas/OxiDB/OxiForms/internal/metrics"
)

// Metrics records request counts and latency by route pattern.
func Metrics(reg *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			reg.ObserveRequest(r.Method, routePattern(r), sw.status, time.Since(start))
		})
	}
}
