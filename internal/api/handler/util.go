package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayo6706/custody-ledger/internal/api/middleware"
	"github.com/ayo6706/custody-ledger/internal/api/problem"
	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// RespondServiceError maps ledger error kinds onto problem responses.
func RespondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.ErrorKind(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err), zap.String("path", r.URL.Path))
		problem.New(status, "internal-server-error", "unexpected server error").Send(w, r)
		return
	}

	p := problem.New(status, "ledger/"+strings.ReplaceAll(kind, "_", "-"), err.Error()).WithKind(kind)
	var capErr *domain.CapExceededError
	if errors.As(err, &capErr) {
		w.Header().Set("X-Cap-Attempted", capErr.Attempted.String())
		w.Header().Set("X-Cap-Limit", capErr.Cap.String())
		p.WithCap(capErr.Attempted.String(), capErr.Cap.String())
	}
	p.Send(w, r)
}

func statusForKind(kind string) int {
	switch kind {
	case "zero_amount", "invalid_amount", "invalid_configuration":
		return http.StatusBadRequest
	case "asset_not_registered":
		return http.StatusNotFound
	case "insufficient_balance":
		return http.StatusConflict
	case "cap_exceeded":
		return http.StatusUnprocessableEntity
	case "transfer_failed":
		return http.StatusBadGateway
	case "oracle_unavailable":
		return http.StatusServiceUnavailable
	case "unauthorized":
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// requestPrincipal returns the authenticated caller.
func requestPrincipal(r *http.Request) (domain.Principal, error) {
	p := middleware.PrincipalFromContext(r.Context())
	if p == "" {
		return "", errors.New("missing principal in auth context")
	}
	return p, nil
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the problem response itself and reports whether decoding succeeded.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/validation-failed", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
