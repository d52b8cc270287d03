package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QuoteSource is satisfied by *service.Normalizer.
type QuoteSource interface {
	Quote(ctx context.Context) (domain.PriceQuote, error)
}

// HealthHandler exposes liveness and readiness endpoints.
type HealthHandler struct {
	db     Pinger
	redis  redis.Cmdable
	prices QuoteSource
}

// NewHealthHandler accepts nil dependencies; a nil dependency is reported as
// disabled.
func NewHealthHandler(db Pinger, redis redis.Cmdable, prices QuoteSource) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, prices: prices}
}

// Live always reports OK while the process is up.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready fails when storage or the cache is down. An unusable price feed only
// degrades the service: asset operations and reads keep working, native
// deposits and withdrawals fail with oracle_unavailable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	components := map[string]string{
		"database": "disabled",
		"redis":    "disabled",
		"oracle":   "disabled",
	}
	status := "ready"
	code := http.StatusOK

	if h.db != nil {
		components["database"] = "ok"
		if err := h.db.Ping(ctx); err != nil {
			components["database"] = "unavailable"
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	if h.redis != nil {
		components["redis"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			components["redis"] = "unavailable"
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	if h.prices != nil {
		components["oracle"] = "ok"
		if _, err := h.prices.Quote(ctx); err != nil {
			components["oracle"] = domain.ErrorKind(err)
			if code == http.StatusOK {
				status = "degraded"
			}
		}
	}

	RespondJSON(w, code, map[string]interface{}{"status": status, "components": components})
}
