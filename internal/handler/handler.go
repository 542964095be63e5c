// Package handler exposes the engine's inbound triggers over HTTP. Handlers
// are thin JSON adapters: parse, call the service, map the error.
package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/lessonwire/core/internal/service"
	"go.uber.org/zap"
)

type Handler struct {
	bookings    *service.BookingService
	disputes    *service.DisputeService
	reschedules *service.RescheduleService
	payouts     *service.PayoutService
	wallets     WalletReader
	logger      *zap.Logger
}

func New(
	bookings *service.BookingService,
	disputes *service.DisputeService,
	reschedules *service.RescheduleService,
	payouts *service.PayoutService,
	wallets WalletReader,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bookings:    bookings,
		disputes:    disputes,
		reschedules: reschedules,
		payouts:     payouts,
		wallets:     wallets,
		logger:      logger,
	}
}

// Routes mounts every inbound trigger.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Get("/{id}", h.GetBooking)
		r.Post("/{id}/approve", h.ApproveBooking)
		r.Post("/{id}/reject", h.RejectBooking)
		r.Post("/{id}/cancel", h.CancelBooking)
		r.Post("/{id}/start", h.StartSession)
		r.Post("/{id}/complete", h.CompleteSession)
		r.Post("/{id}/dispute", h.RaiseDispute)
		r.Post("/{id}/dispute/resolve", h.ResolveDispute)
		r.Post("/{id}/reschedule", h.RequestReschedule)
	})

	r.Route("/reschedule-requests", func(r chi.Router) {
		r.Post("/{id}/accept", h.AcceptReschedule)
		r.Post("/{id}/reject", h.RejectReschedule)
		r.Post("/{id}/cancel", h.CancelReschedule)
	})

	r.Post("/payments/callback", h.PaymentCallback)

	r.Route("/payouts", func(r chi.Router) {
		r.Post("/", h.RequestPayout)
		r.Get("/", h.ListPayouts)
		r.Post("/{id}/paid", h.MarkPayoutPaid)
		r.Post("/{id}/reject", h.RejectPayout)
	})
	r.Get("/wallets/{userID}", h.GetWallet)
	r.Get("/wallets/{userID}/transactions", h.ListWalletTransactions)

	return r
}
