package api

import (
	"net/http"

	"github.com/ayo6706/custody-ledger/internal/api/handler"
	"github.com/ayo6706/custody-ledger/internal/api/middleware"
	"github.com/ayo6706/custody-ledger/internal/api/spec"
	"github.com/ayo6706/custody-ledger/internal/config"
	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/idempotency"
	"github.com/ayo6706/custody-ledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services are the domain components the HTTP surface exposes.
type Services struct {
	Access  *service.AccessControl
	Assets  *service.AssetRegistry
	Ledger  *service.Ledger
	Reports handler.ReportSource
	// Prices backs the oracle readiness check; nil disables it.
	Prices handler.QuoteSource
}

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        handler.Pinger
	redis     redis.Cmdable
	idem      *idempotency.Store
	svc       Services
	validator *validator.Validate
}

// NewRouter wires handlers. db, redis and idem may be nil for the in-memory deployment.
func NewRouter(cfg *config.Config, logger *zap.Logger, db handler.Pinger, rdb redis.Cmdable, idem *idempotency.Store, svc Services) (*Router, error) {
	v, err := handler.NewValidator()
	if err != nil {
		return nil, err
	}
	return &Router{cfg: cfg, logger: logger, db: db, redis: rdb, idem: idem, svc: svc, validator: v}, nil
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(api.db, api.redis, api.svc.Prices)
	authHandler := handler.NewAuthHandler(api.validator, api.cfg.TokenTTL)
	assetHandler := handler.NewAssetHandler(api.svc.Assets, api.validator)
	roleHandler := handler.NewRoleHandler(api.svc.Access, api.validator)
	ledgerHandler := handler.NewLedgerHandler(api.svc.Ledger, api.validator)

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		if api.cfg.DevTokens {
			r.Post("/v1/auth/token", authHandler.Token)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/assets", assetHandler.List)
		r.Get("/v1/assets/{id}", assetHandler.Get)
		r.Get("/v1/roles/{role}/grants/{principal}", roleHandler.Check)
		r.Get("/v1/balances/{principal}", ledgerHandler.Balances)
		r.Get("/v1/cap", ledgerHandler.Cap)

		r.Post("/v1/roles/{role}/grants", roleHandler.Grant)
		r.Delete("/v1/roles/{role}/grants/{principal}", roleHandler.Revoke)
		r.Delete("/v1/roles/{role}/self", roleHandler.Renounce)

		r.Group(func(r chi.Router) {
			r.Use(middleware.IdempotencyMiddleware(api.idem, api.logger))

			r.Post("/v1/assets", assetHandler.Register)
			r.Post("/v1/deposits/native", ledgerHandler.DepositNative)
			r.Post("/v1/deposits/asset", ledgerHandler.DepositAsset)
			r.Post("/v1/withdrawals/native", ledgerHandler.WithdrawNative)
			r.Post("/v1/withdrawals/asset", ledgerHandler.WithdrawAsset)
			r.Post("/v1/receive", ledgerHandler.Receive)
		})

		if api.svc.Reports != nil {
			reconciliationHandler := handler.NewReconciliationHandler(api.svc.Reports)
			r.With(middleware.RequireRole(api.svc.Access, domain.RoleAdministrator)).
				Get("/v1/reconciliation", reconciliationHandler.Latest)
		}
	})

	return r
}
