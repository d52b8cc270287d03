package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ayo6706/custody-ledger/internal/api/problem"
	"github.com/ayo6706/custody-ledger/internal/idempotency"
	"github.com/ayo6706/custody-ledger/internal/observability"
	"go.uber.org/zap"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "X-Idempotent-Replay"
	maxKeyBytes       = 128
	releaseTimeout    = 2 * time.Second
)

// IdempotencyMiddleware makes mutating ledger calls safe to retry. Keys are
// scoped to the calling principal and bound to a hash of the request.
// Responses with status 5xx are not stored: oracle outages and custody
// failures leave no state behind, so a retry with the same key runs again.
func IdempotencyMiddleware(store *idempotency.Store, logger *zap.Logger) func(http.Handler) http.Handler {
	g := &idempotencyGuard{store: store, logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || (r.Method != http.MethodPost && r.Method != http.MethodDelete) {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, next)
		})
	}
}

type idempotencyGuard struct {
	store  *idempotency.Store
	logger *zap.Logger
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	rawKey := r.Header.Get(idempotencyHeader)
	if rawKey == "" || len(rawKey) > maxKeyBytes {
		observability.IncrementIdempotencyEvent("missing_key")
		problem.New(http.StatusBadRequest, "idempotency/missing-key", "Idempotency-Key header is required (max 128 bytes)").Send(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		problem.New(http.StatusBadRequest, "request/invalid-body", "failed to read request body").Send(w, r)
		return
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	principal := PrincipalFromContext(r.Context()).String()
	key := principal + ":" + rawKey
	hash := requestHash(r.Method, r.URL.Path, principal, body)

	if g.replayExisting(w, r, key, hash) {
		return
	}

	reserved, err := g.store.Reserve(r.Context(), key, hash, r.Method, r.URL.Path)
	if err != nil {
		observability.IncrementIdempotencyEvent("reserve_error")
		g.logger.Error("idempotency reserve failed", zap.Error(err))
		problem.New(http.StatusServiceUnavailable, "idempotency/unavailable", "idempotency store unavailable").Send(w, r)
		return
	}
	if !reserved {
		// Lost the race to a concurrent request carrying the same key.
		g.waitAndReplay(w, r, key, hash, "replay_after_reserve")
		return
	}
	observability.IncrementIdempotencyEvent("reserved")

	rec := &bodyRecorder{ResponseWriter: w}
	next.ServeHTTP(rec, r)
	if rec.status == 0 {
		rec.status = http.StatusOK
	}

	if rec.status >= http.StatusInternalServerError {
		g.release(r.Context(), key, hash)
		return
	}
	contentType := rec.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	if _, err := g.store.Finalize(r.Context(), key, hash, rec.status, rec.body.Bytes(), contentType); err != nil {
		observability.IncrementIdempotencyEvent("finalize_error")
		g.logger.Warn("idempotency finalize failed", zap.Error(err), zap.String("key", rawKey))
		return
	}
	observability.IncrementIdempotencyEvent("finalized")
}

// replayExisting answers from a stored outcome and reports whether it wrote
// a response.
func (g *idempotencyGuard) replayExisting(w http.ResponseWriter, r *http.Request, key, hash string) bool {
	rec, err := g.store.Lookup(r.Context(), key, hash)
	switch {
	case err == nil:
		observability.IncrementIdempotencyEvent("replay")
		writeRecord(w, rec)
		return true
	case errors.Is(err, idempotency.ErrHashMismatch):
		observability.IncrementIdempotencyEvent("hash_mismatch")
		problem.New(http.StatusConflict, "idempotency/key-conflict", "idempotency key was used with a different request").Send(w, r)
		return true
	case errors.Is(err, idempotency.ErrInProgress):
		g.waitAndReplay(w, r, key, hash, "replay_after_wait")
		return true
	case errors.Is(err, idempotency.ErrNotFound):
		return false
	default:
		observability.IncrementIdempotencyEvent("lookup_error")
		g.logger.Warn("idempotency lookup failed", zap.Error(err))
		return false
	}
}

func (g *idempotencyGuard) waitAndReplay(w http.ResponseWriter, r *http.Request, key, hash, outcome string) {
	rec, err := g.store.WaitForCompletion(r.Context(), key, hash)
	if err == nil {
		observability.IncrementIdempotencyEvent(outcome)
		writeRecord(w, rec)
		return
	}
	observability.IncrementIdempotencyEvent("in_progress_conflict")
	g.logger.Warn("idempotency wait failed", zap.Error(err))
	problem.New(http.StatusConflict, "idempotency/in-progress", "a request with this idempotency key is still processing").Send(w, r)
}

func (g *idempotencyGuard) release(ctx context.Context, key, hash string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := g.store.Release(ctx, key, hash); err != nil {
		observability.IncrementIdempotencyEvent("release_error")
		g.logger.Warn("idempotency release failed", zap.Error(err))
		return
	}
	observability.IncrementIdempotencyEvent("released")
}

func requestHash(method, path, principal string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{method, path, principal} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (br *bodyRecorder) WriteHeader(code int) {
	br.status = code
	br.ResponseWriter.WriteHeader(code)
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	if br.status == 0 {
		br.status = http.StatusOK
	}
	br.body.Write(b)
	return br.ResponseWriter.Write(b)
}

func writeRecord(w http.ResponseWriter, rec *idempotency.Record) {
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set(replayHeader, rec.ServedBy)
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}
