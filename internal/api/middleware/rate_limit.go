package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayo6706/custody-ledger/internal/api/problem"
	"github.com/go-chi/httprate"
)

// PublicRateLimiter limits unauthenticated routes per client IP.
func PublicRateLimiter(rps int) func(http.Handler) http.Handler {
	return perSecond(rps, "IP", httprate.KeyByIP)
}

// AuthRateLimiter limits authenticated routes per principal, so callers
// sharing an egress IP do not starve each other.
func AuthRateLimiter(rps int) func(http.Handler) http.Handler {
	return perSecond(rps, "principal", func(r *http.Request) (string, error) {
		if p := PrincipalFromContext(r.Context()); p != "" {
			return "principal:" + p.String(), nil
		}
		return httprate.KeyByIP(r)
	})
}

func perSecond(rps int, scope string, key httprate.KeyFunc) func(http.Handler) http.Handler {
	detail := fmt.Sprintf("rate limit of %d req/s exceeded for this %s", rps, scope)
	return httprate.Limit(rps, time.Second,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			problem.New(http.StatusTooManyRequests, "rate-limit-exceeded", detail).
				WithKind("rate_limited").
				Send(w, r)
		}),
	)
}
