package handler

import "net/http"

type paymentCallbackRequest struct {
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"` // "captured" or "failed"
}

// PaymentCallback is the gateway webhook: a captured payment moves the
// booking's funds into escrow, a failed one is acknowledged and logged.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	if err := h.bookings.HandlePaymentCaptured(r.Context(), req.BookingID, req.Status == "captured"); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}
