package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lessonwire/core/internal/clock"
	"github.com/lessonwire/core/internal/event"
	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/notify"
	"github.com/lessonwire/core/internal/policy"
	"github.com/lessonwire/core/internal/storage"
	"go.uber.org/zap"
)

// BookingService drives the session lifecycle: creation, teacher approval,
// cancellation with its refund settlement, and session attendance marks.
type BookingService struct {
	store    storage.Store
	escrow   *EscrowService
	events   event.Publisher
	notifier notify.Notifier
	clock    clock.Clock
	logger   *zap.Logger
}

func NewBookingService(
	store storage.Store,
	escrow *EscrowService,
	events event.Publisher,
	notifier notify.Notifier,
	clk clock.Clock,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		store:    store,
		escrow:   escrow,
		events:   events,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// CreateBookingInput describes a new session request from a payer.
type CreateBookingInput struct {
	TeacherID      int64
	PayerID        int64
	StartTime      time.Time
	EndTime        time.Time
	TotalPrice     int64 // cents
	Currency       string
	CommissionRate float64

	// Weeks > 1 books a weekly series: the first booking is the parent, the
	// rest are its children, all sharing one series group id.
	Weeks int
}

// CreateBooking books a session (or a weekly series) awaiting the teacher's
// approval. The whole series is created atomically.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	if !in.StartTime.After(s.clock.Now()) {
		return nil, policy.ErrSessionPassed
	}

	weeks := in.Weeks
	if weeks < 1 {
		weeks = 1
	}

	parent := &model.Booking{
		TeacherID:      in.TeacherID,
		PayerID:        in.PayerID,
		Status:         model.BookingStatusAwaitingApproval,
		PaymentStatus:  model.PaymentStatusPending,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		TotalPrice:     in.TotalPrice,
		Currency:       in.Currency,
		CommissionRate: in.CommissionRate,
	}
	if weeks > 1 {
		groupID := uuid.New()
		parent.SeriesGroupID = &groupID
	}

	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		if err := st.CreateBooking(ctx, parent); err != nil {
			return err
		}

		for week := 1; week < weeks; week++ {
			child := &model.Booking{
				TeacherID:       in.TeacherID,
				PayerID:         in.PayerID,
				Status:          model.BookingStatusAwaitingApproval,
				PaymentStatus:   model.PaymentStatusPending,
				StartTime:       in.StartTime.AddDate(0, 0, 7*week),
				EndTime:         in.EndTime.AddDate(0, 0, 7*week),
				TotalPrice:      in.TotalPrice,
				Currency:        in.Currency,
				CommissionRate:  in.CommissionRate,
				ParentBookingID: &parent.ID,
				SeriesGroupID:   parent.SeriesGroupID,
			}
			if err := st.CreateBooking(ctx, child); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.Int64("booking_id", parent.ID),
		zap.Int64("teacher_id", in.TeacherID),
		zap.Int64("payer_id", in.PayerID),
		zap.Int("weeks", weeks),
	)

	return parent, nil
}

// Approve confirms a booking awaiting the teacher's acceptance.
func (s *BookingService) Approve(ctx context.Context, bookingID, teacherID int64) error {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.TeacherID != teacherID {
		return ErrNotAllowed
	}
	if b.Status != model.BookingStatusAwaitingApproval {
		return ErrNotAwaitingApproval
	}

	if err := s.store.UpdateBookingStatus(ctx, bookingID, model.BookingStatusConfirmed); err != nil {
		return err
	}

	s.logger.Info("booking approved", zap.Int64("booking_id", bookingID))
	s.notifyUser(ctx, b.PayerID, fmt.Sprintf("Your booking #%d was confirmed by the teacher.", bookingID))
	return nil
}

// Reject declines a booking awaiting approval and refunds the payer in full
// if funds were already captured. Rejection is forced to the
// awaiting-approval tier regardless of time to session.
func (s *BookingService) Reject(ctx context.Context, bookingID, teacherID int64, reason string) error {
	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		b, err := st.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.TeacherID != teacherID {
			return ErrNotAllowed
		}
		if b.Status != model.BookingStatusAwaitingApproval {
			return ErrNotAwaitingApproval
		}

		if b.PaymentStatus == model.PaymentStatusHeld {
			if err := s.escrow.refundLocked(ctx, st, b, b.TotalPrice, "booking rejected by teacher"); err != nil {
				return err
			}
		}
		return st.MarkBookingCancelled(ctx, bookingID, reason, s.clock.Now())
	})
	if err != nil {
		return err
	}

	s.logger.Info("booking rejected", zap.Int64("booking_id", bookingID), zap.Int64("teacher_id", teacherID))
	return nil
}

// SiblingCancellation reports one series member cancelled by a cascade.
type SiblingCancellation struct {
	BookingID int64
	Quote     policy.Quote
}

// CancellationResult summarizes a cancellation and its settlement.
type CancellationResult struct {
	Booking  *model.Booking
	Quote    policy.Quote
	Siblings []SiblingCancellation
}

// Cancel cancels a booking, settling the escrow per the refund policy. With
// cancelSeries, every future non-terminal sibling of the weekly series is
// cancelled through the same path in the same transaction, each with its own
// quote for its own time-to-session.
func (s *BookingService) Cancel(ctx context.Context, bookingID, cancelledBy int64, reason string, cancelSeries bool) (*CancellationResult, error) {
	now := s.clock.Now()
	result := &CancellationResult{}

	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		b, err := st.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.PayerID != cancelledBy && b.TeacherID != cancelledBy {
			return ErrNotAllowed
		}
		if err := policy.CanCancel(b, now); err != nil {
			return err
		}

		quote, err := s.cancelOne(ctx, st, b, now, reason)
		if err != nil {
			return err
		}
		result.Booking = b
		result.Quote = quote

		if !cancelSeries || b.SeriesGroupID == nil {
			return nil
		}

		siblings, err := st.ListSeriesSiblings(ctx, *b.SeriesGroupID, b.ID, now)
		if err != nil {
			return err
		}
		for _, sib := range siblings {
			locked, err := st.LockBooking(ctx, sib.ID)
			if err != nil {
				return err
			}
			if err := policy.CanCancel(locked, now); err != nil {
				// A disputed or already-started sibling stays untouched; the
				// cascade only covers members the single-booking path accepts.
				s.logger.Warn("series sibling not cancellable",
					zap.Int64("booking_id", locked.ID),
					zap.Error(err),
				)
				continue
			}
			quote, err := s.cancelOne(ctx, st, locked, now, reason)
			if err != nil {
				return err
			}
			result.Siblings = append(result.Siblings, SiblingCancellation{BookingID: locked.ID, Quote: quote})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("cancelled_by", cancelledBy),
		zap.String("tier", string(result.Quote.Tier)),
		zap.Int64("refund", result.Quote.Amount),
		zap.Int("siblings", len(result.Siblings)),
	)

	s.publishCancelled(ctx, bookingID, cancelledBy, reason, result.Quote, cancelSeries)
	for _, sib := range result.Siblings {
		s.publishCancelled(ctx, sib.BookingID, cancelledBy, reason, sib.Quote, true)
	}
	s.notifyCancellation(ctx, result.Booking, result.Quote)

	return result, nil
}

// cancelOne settles and cancels a single already-locked, already-gated
// booking inside the caller's transaction.
func (s *BookingService) cancelOne(ctx context.Context, st storage.Store, b *model.Booking, now time.Time, reason string) (policy.Quote, error) {
	quote := policy.ComputeQuote(b, now)

	if b.PaymentStatus == model.PaymentStatusHeld {
		var err error
		switch {
		case quote.Amount == b.TotalPrice:
			err = s.escrow.refundLocked(ctx, st, b, b.TotalPrice, reason)
		case quote.Amount == 0:
			// The full price stays with the teacher as late-cancellation
			// earnings, commission deducted as on a normal release.
			err = s.escrow.releaseLocked(ctx, st, b, "late cancellation: "+reason)
		default:
			// The teacher's share is derived from the quoted refund, not
			// re-rounded from a percentage, so the payer receives exactly
			// quote.Amount.
			err = s.escrow.splitLocked(ctx, st, b, b.TotalPrice-quote.Amount, reason)
		}
		if err != nil {
			return policy.Quote{}, err
		}
	}

	if err := st.MarkBookingCancelled(ctx, b.ID, reason, now); err != nil {
		return policy.Quote{}, err
	}
	return quote, nil
}

// HandlePaymentCaptured is the gateway callback contract: on a successful
// capture the funds enter escrow; a failed capture leaves the booking
// pending and is only logged.
func (s *BookingService) HandlePaymentCaptured(ctx context.Context, bookingID int64, success bool) error {
	if !success {
		s.logger.Warn("payment capture failed", zap.Int64("booking_id", bookingID))
		return nil
	}
	return s.escrow.Hold(ctx, bookingID)
}

// StartSession records actual attendance start; a started session can no
// longer be cancelled or rescheduled.
func (s *BookingService) StartSession(ctx context.Context, bookingID int64) error {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != model.BookingStatusConfirmed {
		return ErrNotConfirmed
	}
	return s.store.MarkSessionStarted(ctx, bookingID, s.clock.Now())
}

// CompleteSession marks the session over, which makes the booking a
// candidate for automatic release once the dispute window passes.
func (s *BookingService) CompleteSession(ctx context.Context, bookingID int64) error {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != model.BookingStatusConfirmed {
		return ErrNotConfirmed
	}
	if err := s.store.MarkBookingCompleted(ctx, bookingID, s.clock.Now()); err != nil {
		return err
	}

	s.logger.Info("session completed", zap.Int64("booking_id", bookingID))
	return nil
}

// GetBooking fetches a booking by id.
func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*model.Booking, error) {
	return s.store.GetBooking(ctx, bookingID)
}

func (s *BookingService) publishCancelled(ctx context.Context, bookingID, cancelledBy int64, reason string, q policy.Quote, series bool) {
	s.events.Publish(ctx, event.BookingCancelled, event.BookingCancelledPayload{
		BookingID:       bookingID,
		CancelledBy:     cancelledBy,
		Reason:          reason,
		Tier:            string(q.Tier),
		RefundAmount:    q.Amount,
		CancellationFee: q.Fee,
		Series:          series,
	})
}

func (s *BookingService) notifyCancellation(ctx context.Context, b *model.Booking, q policy.Quote) {
	s.notifyUser(ctx, b.TeacherID, fmt.Sprintf("Booking #%d was cancelled.", b.ID))
	if q.Amount > 0 {
		s.notifyUser(ctx, b.PayerID, fmt.Sprintf("Booking #%d cancelled, %d.%02d %s refunded to your wallet.",
			b.ID, q.Amount/100, q.Amount%100, b.Currency))
	}
}

// notifyUser resolves the user's notification channel and sends best-effort.
func (s *BookingService) notifyUser(ctx context.Context, userID int64, text string) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil || u.TelegramChatID == nil {
		return
	}
	s.notifier.Send(ctx, *u.TelegramChatID, text)
}
