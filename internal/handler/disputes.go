package handler

import (
	"net/http"

	"github.com/lessonwire/core/internal/service"
)

type raiseDisputeRequest struct {
	ActorID int64  `json:"actor_id"`
	Reason  string `json:"reason"`
}

func (h *Handler) RaiseDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req raiseDisputeRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	if err := h.disputes.Raise(r.Context(), id, req.ActorID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disputed"})
}

type resolveDisputeRequest struct {
	ResolverID        int64   `json:"resolver_id"`
	Resolution        string  `json:"resolution"`
	Outcome           string  `json:"outcome"` // released, refunded or split
	TeacherPercentage float64 `json:"teacher_percentage"`
}

func (h *Handler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req resolveDisputeRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	outcome := service.DisputeOutcome{
		Kind:              service.DisputeOutcomeKind(req.Outcome),
		TeacherPercentage: req.TeacherPercentage,
	}
	switch outcome.Kind {
	case service.DisputeOutcomeReleased, service.DisputeOutcomeRefunded, service.DisputeOutcomeSplit:
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid outcome"})
		return
	}
	if outcome.Kind == service.DisputeOutcomeSplit && (req.TeacherPercentage < 0 || req.TeacherPercentage > 100) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "teacher_percentage must be within 0..100"})
		return
	}

	if err := h.disputes.Resolve(r.Context(), id, req.ResolverID, req.Resolution, outcome); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
