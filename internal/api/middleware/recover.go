package middleware

import (
	"net/http"

	"github.com/ayo6706/custody-ledger/internal/api/problem"
	"github.com/ayo6706/custody-ledger/internal/observability"
	"go.uber.org/zap"
)

// RecoverMiddleware turns handler panics into a 500 problem. A panic inside a
// ledger operation happens before commit, so no state change survives it.
func RecoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				observability.IncrementPanic()
				fields := []zap.Field{
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("route", routePattern(r)),
					zap.String("trace_id", TraceIDFromContext(r.Context())),
					zap.Stack("stack"),
				}
				if m := metaFromContext(r.Context()); m != nil && m.principal != "" {
					fields = append(fields, zap.String("principal", m.principal.String()))
				}
				logger.Error("panic recovered", fields...)

				problem.New(http.StatusInternalServerError, "internal-server-error", "unexpected server error").
					WithKind("internal").
					Send(w, r)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
