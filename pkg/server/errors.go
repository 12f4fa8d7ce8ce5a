package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/plebnames/go-plebnames/pkg/history"
	"github.com/plebnames/go-plebnames/pkg/resolver"
	"github.com/plebnames/go-plebnames/pkg/storage"
)

// Error codes returned in the code field of error bodies.
const (
	CodeInvalidRequest = "invalid_request"
	CodeInvalidName    = "invalid_name"
	CodeBudgetExceeded = "resolution_budget_exceeded"
	CodeLedgerFailure  = "ledger_unavailable"
	CodeNotFound       = "not_found"
	CodeTimeout        = "timeout"
	CodeInternal       = "internal"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify maps a resolution error to its HTTP status and body.
func classify(err error) (int, errorResponse) {
	switch {
	case resolver.IsClientError(err):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: CodeInvalidName}
	case errors.Is(err, history.ErrResolutionBudgetExceeded):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: CodeBudgetExceeded}
	case errors.Is(err, history.ErrLedgerQuery):
		return http.StatusBadGateway, errorResponse{Error: err.Error(), Code: CodeLedgerFailure}
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Code: CodeNotFound}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorResponse{Error: err.Error(), Code: CodeTimeout}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error", Code: CodeInternal}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, name string, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed",
			"path", r.URL.Path,
			"name", name,
			"status", status,
			"error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
