package handler

import (
	"net/http"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/models"
	"github.com/ayo6706/custody-ledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type RoleHandler struct {
	svc      *service.AccessControl
	validate *validator.Validate
}

func NewRoleHandler(svc *service.AccessControl, v *validator.Validate) *RoleHandler {
	return &RoleHandler{svc: svc, validate: v}
}

func (h *RoleHandler) Grant(w http.ResponseWriter, r *http.Request) {
	caller, role, ok := h.callerAndRole(w, r)
	if !ok {
		return
	}
	var req models.GrantRoleRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	p := domain.NewPrincipal(req.Principal)
	if err := h.svc.GrantRole(r.Context(), caller, role, p); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, models.RoleGrant{Role: string(role), Principal: p.String(), Granted: true})
}

func (h *RoleHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	caller, role, ok := h.callerAndRole(w, r)
	if !ok {
		return
	}
	p := domain.NewPrincipal(chi.URLParam(r, "principal"))
	if err := h.svc.RevokeRole(r.Context(), caller, role, p); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, models.RoleGrant{Role: string(role), Principal: p.String(), Granted: false})
}

func (h *RoleHandler) Renounce(w http.ResponseWriter, r *http.Request) {
	caller, role, ok := h.callerAndRole(w, r)
	if !ok {
		return
	}
	if err := h.svc.RenounceRole(r.Context(), caller, role); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, models.RoleGrant{Role: string(role), Principal: caller.String(), Granted: false})
}

func (h *RoleHandler) Check(w http.ResponseWriter, r *http.Request) {
	_, role, ok := h.callerAndRole(w, r)
	if !ok {
		return
	}
	p := domain.NewPrincipal(chi.URLParam(r, "principal"))
	has, err := h.svc.HasRole(r.Context(), p, role)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, models.RoleGrant{Role: string(role), Principal: p.String(), Granted: has})
}

func (h *RoleHandler) callerAndRole(w http.ResponseWriter, r *http.Request) (domain.Principal, domain.Role, bool) {
	caller, err := requestPrincipal(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return "", "", false
	}
	role, ok := domain.ParseRole(chi.URLParam(r, "role"))
	if !ok {
		RespondError(w, r, http.StatusNotFound, "roles/unknown-role", "unknown role")
		return "", "", false
	}
	return caller, role, true
}
