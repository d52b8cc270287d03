package handler

import (
	"net/http"

	"github.com/ayo6706/custody-ledger/internal/models"
	"github.com/ayo6706/custody-ledger/internal/service"
)

// ReportSource exposes the last reconciliation outcome.
type ReportSource interface {
	LastReport() (service.ReconciliationReport, bool)
}

type ReconciliationHandler struct {
	reports ReportSource
}

func NewReconciliationHandler(reports ReportSource) *ReconciliationHandler {
	return &ReconciliationHandler{reports: reports}
}

func (h *ReconciliationHandler) Latest(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.reports.LastReport()
	if !ok {
		RespondError(w, r, http.StatusNotFound, "reconciliation/not-run", "no reconciliation has completed yet")
		return
	}
	RespondJSON(w, http.StatusOK, models.NewReconciliation(rep))
}
