package handler

import (
	"net/http"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/models"
	"github.com/ayo6706/custody-ledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type AssetHandler struct {
	svc      *service.AssetRegistry
	validate *validator.Validate
}

func NewAssetHandler(svc *service.AssetRegistry, v *validator.Validate) *AssetHandler {
	return &AssetHandler{svc: svc, validate: v}
}

func (h *AssetHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller, err := requestPrincipal(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req models.RegisterAssetRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	rec, err := h.svc.Register(r.Context(), caller, domain.NewAssetID(req.AssetID), *req.Decimals)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, models.NewAsset(rec))
}

func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(r.Context())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	out := make([]models.Asset, 0, len(recs))
	for _, rec := range recs {
		out = append(out, models.NewAsset(rec))
	}
	RespondJSON(w, http.StatusOK, out)
}

func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), domain.NewAssetID(chi.URLParam(r, "id")))
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, models.NewAsset(rec))
}
