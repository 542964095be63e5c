package handler

import (
	"net/http"
	"time"

	"github.com/lessonwire/core/internal/service"
	"go.uber.org/zap"
)

type createBookingRequest struct {
	TeacherID      int64     `json:"teacher_id"`
	PayerID        int64     `json:"payer_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	TotalPrice     int64     `json:"total_price"`
	Currency       string    `json:"currency"`
	CommissionRate float64   `json:"commission_rate"`
	Weeks          int       `json:"weeks"`
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	b, err := h.bookings.CreateBooking(r.Context(), service.CreateBookingInput{
		TeacherID:      req.TeacherID,
		PayerID:        req.PayerID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		TotalPrice:     req.TotalPrice,
		Currency:       req.Currency,
		CommissionRate: req.CommissionRate,
		Weeks:          req.Weeks,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}

	b, err := h.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type actorRequest struct {
	ActorID int64  `json:"actor_id"`
	Reason  string `json:"reason"`
}

func (h *Handler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
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

	if err := h.bookings.Approve(r.Context(), id, req.ActorID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (h *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
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

	if err := h.bookings.Reject(r.Context(), id, req.ActorID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

type cancelBookingRequest struct {
	ActorID      int64  `json:"actor_id"`
	Reason       string `json:"reason"`
	CancelSeries bool   `json:"cancel_series"`
}

type cancelBookingResponse struct {
	BookingID       int64                 `json:"booking_id"`
	Tier            string                `json:"tier"`
	RefundAmount    int64                 `json:"refund_amount"`
	CancellationFee int64                 `json:"cancellation_fee"`
	Siblings        []siblingCancellation `json:"siblings,omitempty"`
}

type siblingCancellation struct {
	BookingID    int64  `json:"booking_id"`
	Tier         string `json:"tier"`
	RefundAmount int64  `json:"refund_amount"`
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	var req cancelBookingRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	res, err := h.bookings.Cancel(r.Context(), id, req.ActorID, req.Reason, req.CancelSeries)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := cancelBookingResponse{
		BookingID:       res.Booking.ID,
		Tier:            string(res.Quote.Tier),
		RefundAmount:    res.Quote.Amount,
		CancellationFee: res.Quote.Fee,
	}
	for _, sib := range res.Siblings {
		resp.Siblings = append(resp.Siblings, siblingCancellation{
			BookingID:    sib.BookingID,
			Tier:         string(sib.Quote.Tier),
			RefundAmount: sib.Quote.Amount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}

	if err := h.bookings.StartSession(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}

	if err := h.bookings.CompleteSession(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Debug("session completed over http", zap.Int64("booking_id", id))
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
