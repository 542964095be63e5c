package handler

import (
	"context"
	"net/http"
	"time"
)

type rescheduleRequest struct {
	ActorID  int64     `json:"actor_id"`
	NewStart time.Time `json:"new_start_time"`
	NewEnd   time.Time `json:"new_end_time"`
	Reason   string    `json:"reason"`
}

func (h *Handler) RequestReschedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req rescheduleRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	created, err := h.reschedules.Request(r.Context(), id, req.ActorID, req.NewStart, req.NewEnd, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) AcceptReschedule(w http.ResponseWriter, r *http.Request) {
	h.resolveReschedule(w, r, h.reschedules.Accept, "accepted")
}

func (h *Handler) RejectReschedule(w http.ResponseWriter, r *http.Request) {
	h.resolveReschedule(w, r, h.reschedules.Reject, "rejected")
}

func (h *Handler) CancelReschedule(w http.ResponseWriter, r *http.Request) {
	h.resolveReschedule(w, r, h.reschedules.CancelRequest, "cancelled")
}

func (h *Handler) resolveReschedule(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, requestID, actorID int64) error, status string) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req actorRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	if err := fn(r.Context(), id, req.ActorID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}
