package handler

import (
	"context"
	"net/http"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/models"
	"github.com/ayo6706/custody-ledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerHandler serves deposits, withdrawals and balance reads. Movements
// always act on the authenticated principal's own balances.
type LedgerHandler struct {
	svc      *service.Ledger
	validate *validator.Validate
}

func NewLedgerHandler(svc *service.Ledger, v *validator.Validate) *LedgerHandler {
	return &LedgerHandler{svc: svc, validate: v}
}

func (h *LedgerHandler) DepositNative(w http.ResponseWriter, r *http.Request) {
	h.native(w, r, h.svc.DepositNative)
}

func (h *LedgerHandler) WithdrawNative(w http.ResponseWriter, r *http.Request) {
	h.native(w, r, h.svc.WithdrawNative)
}

func (h *LedgerHandler) DepositAsset(w http.ResponseWriter, r *http.Request) {
	h.asset(w, r, h.svc.DepositAsset)
}

func (h *LedgerHandler) WithdrawAsset(w http.ResponseWriter, r *http.Request) {
	h.asset(w, r, h.svc.WithdrawAsset)
}

func (h *LedgerHandler) Receive(w http.ResponseWriter, r *http.Request) {
	caller, err := requestPrincipal(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	var req models.ReceiveRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	receipt, err := h.svc.ReceiveBare(r.Context(), caller, amount, domain.ReceivePath(req.Path))
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, models.NewReceipt(receipt))
}

func (h *LedgerHandler) Balances(w http.ResponseWriter, r *http.Request) {
	p := domain.NewPrincipal(chi.URLParam(r, "principal"))
	if p == "" {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-principal", "principal is required")
		return
	}
	bals, err := h.svc.Balances(r.Context(), p)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	out := models.NewBalances(p, bals)

	// Valuation is best effort; balances are served even when the oracle is down.
	value, err := h.svc.NativeValueOf(r.Context(), p)
	if err != nil {
		zap.L().Warn("native valuation failed", zap.Error(err), zap.String("principal", p.String()))
		out.ValuationWarning = domain.ErrorKind(err)
	} else {
		out.NativeValueUSD6 = value.String()
	}
	RespondJSON(w, http.StatusOK, out)
}

func (h *LedgerHandler) Cap(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.CapState(r.Context())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, models.NewCapState(st))
}

type nativeOp func(ctx context.Context, p domain.Principal, amount decimal.Decimal) (service.Receipt, error)

type assetOp func(ctx context.Context, p domain.Principal, asset domain.AssetID, amount decimal.Decimal) (service.Receipt, error)

func (h *LedgerHandler) native(w http.ResponseWriter, r *http.Request, op nativeOp) {
	caller, err := requestPrincipal(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	var req models.NativeAmountRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	receipt, err := op(r.Context(), caller, amount)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, models.NewReceipt(receipt))
}

func (h *LedgerHandler) asset(w http.ResponseWriter, r *http.Request, op assetOp) {
	caller, err := requestPrincipal(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	var req models.AssetAmountRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	receipt, err := op(r.Context(), caller, domain.NewAssetID(req.AssetID), amount)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, models.NewReceipt(receipt))
}
