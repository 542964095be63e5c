package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lessonwire/core/internal/policy"
	"github.com/lessonwire/core/internal/service"
	"github.com/lessonwire/core/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP statuses. Policy
// violations surface their reason verbatim; anything unexpected is a generic
// 500 so internals do not leak.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, service.ErrNotAllowed):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case isPolicyViolation(err):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrInsufficientBalance):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func isPolicyViolation(err error) bool {
	violations := []error{
		policy.ErrAlreadyCancelled,
		policy.ErrAlreadyCompleted,
		policy.ErrDisputed,
		policy.ErrRescheduleInProgress,
		policy.ErrSessionStarted,
		policy.ErrSessionPassed,
		policy.ErrFundsReleased,
		service.ErrNotAwaitingApproval,
		service.ErrNotConfirmed,
		service.ErrNotHeld,
		service.ErrLeadTimeTooShort,
		service.ErrSlotUnavailable,
		service.ErrReschedulePending,
		service.ErrRequestNotPending,
		service.ErrDisputeWindowClosed,
		service.ErrDisputeAlreadyRaised,
		service.ErrDisputeNotOpen,
	}
	for _, v := range violations {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
