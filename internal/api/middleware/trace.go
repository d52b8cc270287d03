package middleware

import (
	"context"
	"net/http"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/google/uuid"
)

const (
	traceHeader     = "X-Trace-ID"
	maxTraceIDBytes = 64
)

// requestMeta is shared by every middleware layer of one request. Outer
// layers read what inner layers learned, such as the authenticated caller.
type requestMeta struct {
	traceID   string
	principal domain.Principal
}

// TraceMiddleware accepts a well-formed caller trace id or mints one, and
// echoes it in the response.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if !validTraceID(traceID) {
			traceID = uuid.NewString()
			r.Header.Set(traceHeader, traceID)
		}
		w.Header().Set(traceHeader, traceID)
		ctx := context.WithValue(r.Context(), metaContextKey, &requestMeta{traceID: traceID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validTraceID(id string) bool {
	if id == "" || len(id) > maxTraceIDBytes {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

func metaFromContext(ctx context.Context) *requestMeta {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(metaContextKey).(*requestMeta)
	return m
}
