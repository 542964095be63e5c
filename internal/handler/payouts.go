package handler

import (
	"net/http"
	"strconv"

	"github.com/lessonwire/core/internal/model"
)

type requestPayoutRequest struct {
	TeacherID int64 `json:"teacher_id"`
	Amount    int64 `json:"amount"` // cents
}

func (h *Handler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	var req requestPayoutRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be positive"})
		return
	}

	p, err := h.payouts.RequestPayout(r.Context(), req.TeacherID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	teacherID, err := strconv.ParseInt(r.URL.Query().Get("teacher_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid teacher_id"})
		return
	}

	payouts, err := h.payouts.ListPayouts(r.Context(), teacherID)
	if err != nil {
		writeError(w, err)
		return
	}
	if payouts == nil {
		payouts = []*model.Payout{}
	}
	writeJSON(w, http.StatusOK, payouts)
}

func (h *Handler) MarkPayoutPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}

	if err := h.payouts.MarkPaid(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

func (h *Handler) RejectPayout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}

	if err := h.payouts.Reject(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}
