package middleware

import (
	"net/http"
	"time"

	"github.com/ayo6706/custody-ledger/internal/observability"
	"github.com/go-chi/chi/v5"
)

const metricsPath = "/metrics"

// MetricsMiddleware times requests by route pattern. Scrapes are not timed.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == metricsPath {
			next.ServeHTTP(w, r)
			return
		}
		done := observability.TrackInFlight()
		defer done()

		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		observability.ObserveHTTP(r.Method, routePattern(r), rw.status, time.Since(start))
	})
}

// routePattern keeps label cardinality bounded: principals and asset ids in
// the path collapse to their chi placeholders.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
