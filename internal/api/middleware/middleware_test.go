package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTraceMiddlewareKeepsOrReplacesTraceID(t *testing.T) {
	var seen string
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	testCases := []struct {
		name    string
		header  string
		keepsID bool
	}{
		{name: "well formed", header: "req-123_abc.def", keepsID: true},
		{name: "missing", header: ""},
		{name: "too long", header: strings.Repeat("a", maxTraceIDBytes+1)},
		{name: "unsafe characters", header: "abc\r\nX-Evil: 1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(traceHeader, tc.header)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(traceHeader))
			assert.Equal(t, tc.keepsID, seen == tc.header)
		})
	}
}

func TestLoggingMiddlewareRecordsPrincipalAndRoute(t *testing.T) {
	SetJWTSecret("test-secret-0123456789-test-secret")
	SetJWTValidation("", "")
	core, logs := observer.New(zapcore.DebugLevel)

	r := chi.NewRouter()
	r.Use(TraceMiddleware, LoggingMiddleware(zap.New(core)))
	r.With(AuthMiddleware).Get("/v1/balances/{principal}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	tok, _, err := IssueToken(domain.NewPrincipal("0xABC"), time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/balances/0xabc", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "/v1/balances/{principal}", fields["route"])
	assert.Equal(t, "0xabc", fields["principal"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
}

func TestRecoverMiddlewareWritesProblem(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := TraceMiddleware(RecoverMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/deposits/native", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"kind":"internal"`)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
