package handler

import (
	"net/http"
	"time"

	"github.com/ayo6706/custody-ledger/internal/api/middleware"
	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// AuthHandler issues development tokens. It is only routed when dev tokens
// are enabled; production principals bring tokens from the custody operator.
type AuthHandler struct {
	validate *validator.Validate
	ttl      time.Duration
}

func NewAuthHandler(v *validator.Validate, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthHandler{validate: v, ttl: ttl}
}

func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	token, exp, err := middleware.IssueToken(domain.NewPrincipal(req.Principal), h.ttl)
	if err != nil {
		zap.L().Error("issue token failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "auth/token-issue-failed", "Failed to sign token")
		return
	}
	RespondJSON(w, http.StatusOK, models.TokenResponse{Token: token, ExpiresAt: exp})
}
