package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lessonwire/core/internal/clock"
	"github.com/lessonwire/core/internal/event"
	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/notify"
	"github.com/lessonwire/core/internal/policy"
	"github.com/lessonwire/core/internal/storage"
	"go.uber.org/zap"
)

// MinRescheduleLead is the minimum time before the session start at which a
// reschedule may still be proposed.
const MinRescheduleLead = 6 * time.Hour

// expireBatch caps how many stale requests one sweep run resolves.
const expireBatch = 100

// RescheduleService runs the time-boxed proposal flow: while a request is
// pending the booking is parked in the rescheduling status and cannot be
// cancelled or double-booked through the normal path.
type RescheduleService struct {
	store    storage.Store
	events   event.Publisher
	notifier notify.Notifier
	clock    clock.Clock
	logger   *zap.Logger
}

func NewRescheduleService(
	store storage.Store,
	events event.Publisher,
	notifier notify.Notifier,
	clk clock.Clock,
	logger *zap.Logger,
) *RescheduleService {
	return &RescheduleService{
		store:    store,
		events:   events,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// Request proposes a new time window for a booking. Only the payer may
// propose; the booking must be reschedulable, the session at least six hours
// out, the new window free on the teacher's calendar, and no other request
// pending.
func (s *RescheduleService) Request(ctx context.Context, bookingID, requestedBy int64, newStart, newEnd time.Time, reason string) (*model.RescheduleRequest, error) {
	now := s.clock.Now()
	var req *model.RescheduleRequest

	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		b, err := st.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.PayerID != requestedBy {
			return ErrNotAllowed
		}

		switch b.Status {
		case model.BookingStatusCancelled:
			return policy.ErrAlreadyCancelled
		case model.BookingStatusCompleted:
			return policy.ErrAlreadyCompleted
		case model.BookingStatusDisputed:
			return policy.ErrDisputed
		case model.BookingStatusRescheduling:
			return ErrReschedulePending
		}
		if b.PaymentStatus == model.PaymentStatusDisputed {
			return policy.ErrDisputed
		}
		if b.SessionStartedAt != nil {
			return policy.ErrSessionStarted
		}
		if !b.StartTime.After(now) {
			return policy.ErrSessionPassed
		}
		if b.StartTime.Sub(now) < MinRescheduleLead {
			return ErrLeadTimeTooShort
		}
		if !newStart.After(now) || !newEnd.After(newStart) {
			return fmt.Errorf("invalid proposed window")
		}

		overlaps, err := st.CountTeacherOverlaps(ctx, b.TeacherID, newStart, newEnd, b.ID)
		if err != nil {
			return err
		}
		if overlaps > 0 {
			return ErrSlotUnavailable
		}

		req = &model.RescheduleRequest{
			BookingID:         bookingID,
			RequestedBy:       requestedBy,
			OriginalStartTime: b.StartTime,
			NewStartTime:      newStart,
			NewEndTime:        newEnd,
			Reason:            reason,
			Status:            model.RescheduleStatusPending,
			ExpiresAt:         now.Add(model.RescheduleExpiry),
		}
		if err := st.CreateRescheduleRequest(ctx, req); err != nil {
			if errors.Is(err, storage.ErrDuplicatePending) {
				return ErrReschedulePending
			}
			return err
		}

		return st.UpdateBookingStatus(ctx, bookingID, model.BookingStatusRescheduling)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reschedule requested",
		zap.Int64("booking_id", bookingID),
		zap.Int64("request_id", req.ID),
		zap.Time("new_start", newStart),
	)

	s.publish(ctx, event.RescheduleRequested, req)
	s.notifyCounterparty(ctx, req, fmt.Sprintf("A new time was proposed for booking #%d.", bookingID))

	return req, nil
}

// Accept applies the proposed window and restores the booking to confirmed.
// Only the counterparty of the requester may accept.
func (s *RescheduleService) Accept(ctx context.Context, requestID, actorID int64) error {
	var req *model.RescheduleRequest

	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		r, err := st.GetRescheduleRequest(ctx, requestID)
		if err != nil {
			return err
		}
		b, err := st.LockBooking(ctx, r.BookingID)
		if err != nil {
			return err
		}
		if err := s.checkCounterparty(b, r, actorID); err != nil {
			return err
		}

		ok, err := st.TransitionReschedule(ctx, requestID, model.RescheduleStatusPending, model.RescheduleStatusAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRequestNotPending
		}

		if err := st.UpdateBookingTimes(ctx, r.BookingID, r.NewStartTime, r.NewEndTime); err != nil {
			return err
		}
		if err := st.UpdateBookingStatus(ctx, r.BookingID, model.BookingStatusConfirmed); err != nil {
			return err
		}
		req = r
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("reschedule accepted",
		zap.Int64("request_id", requestID),
		zap.Int64("booking_id", req.BookingID),
	)

	s.publish(ctx, event.RescheduleAccepted, req)
	s.notifyRequester(ctx, req, fmt.Sprintf("Your reschedule for booking #%d was accepted.", req.BookingID))

	return nil
}

// Reject declines the proposal; the booking keeps its original window.
func (s *RescheduleService) Reject(ctx context.Context, requestID, actorID int64) error {
	req, err := s.resolve(ctx, requestID, model.RescheduleStatusRejected, func(b *model.Booking, r *model.RescheduleRequest) error {
		return s.checkCounterparty(b, r, actorID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("reschedule rejected", zap.Int64("request_id", requestID))
	s.publish(ctx, event.RescheduleRejected, req)
	s.notifyRequester(ctx, req, fmt.Sprintf("Your reschedule for booking #%d was rejected.", req.BookingID))
	return nil
}

// CancelRequest withdraws the requester's own pending proposal.
func (s *RescheduleService) CancelRequest(ctx context.Context, requestID, actorID int64) error {
	req, err := s.resolve(ctx, requestID, model.RescheduleStatusCancelled, func(b *model.Booking, r *model.RescheduleRequest) error {
		if r.RequestedBy != actorID {
			return ErrNotAllowed
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("reschedule request cancelled", zap.Int64("request_id", requestID))
	s.notifyCounterparty(ctx, req, fmt.Sprintf("The proposed time change for booking #%d was withdrawn.", req.BookingID))
	return nil
}

// resolve terminates a pending request without changing the booking's window
// and restores the booking to confirmed.
func (s *RescheduleService) resolve(ctx context.Context, requestID int64, to model.RescheduleStatus, authorize func(*model.Booking, *model.RescheduleRequest) error) (*model.RescheduleRequest, error) {
	var req *model.RescheduleRequest

	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		r, err := st.GetRescheduleRequest(ctx, requestID)
		if err != nil {
			return err
		}
		b, err := st.LockBooking(ctx, r.BookingID)
		if err != nil {
			return err
		}
		if err := authorize(b, r); err != nil {
			return err
		}

		ok, err := st.TransitionReschedule(ctx, requestID, model.RescheduleStatusPending, to)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRequestNotPending
		}

		// Only un-park the booking if it is still parked; a booking that left
		// the rescheduling status by other means keeps whatever it became.
		if b.Status == model.BookingStatusRescheduling {
			if err := st.UpdateBookingStatus(ctx, r.BookingID, model.BookingStatusConfirmed); err != nil {
				return err
			}
		}
		req = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ExpireSweep resolves pending requests past their 48-hour horizon: the
// request becomes expired and the booking reverts to confirmed, unresolved.
// Reprocessing an already-expired request is a no-op. Returns the number of
// requests expired.
func (s *RescheduleService) ExpireSweep(ctx context.Context) (int, error) {
	now := s.clock.Now()

	stale, err := s.store.ListExpiredPending(ctx, now, expireBatch)
	if err != nil {
		return 0, fmt.Errorf("list expired requests: %w", err)
	}

	expired := 0
	for _, r := range stale {
		err := s.store.RunInTx(ctx, func(st storage.Store) error {
			b, err := st.LockBooking(ctx, r.BookingID)
			if err != nil {
				return err
			}
			ok, err := st.TransitionReschedule(ctx, r.ID, model.RescheduleStatusPending, model.RescheduleStatusExpired)
			if err != nil {
				return err
			}
			if !ok {
				// Resolved between the listing and the lock.
				return nil
			}
			expired++
			if b.Status != model.BookingStatusRescheduling {
				return nil
			}
			return st.UpdateBookingStatus(ctx, r.BookingID, model.BookingStatusConfirmed)
		})
		if err != nil {
			s.logger.Error("expire reschedule request",
				zap.Int64("request_id", r.ID),
				zap.Error(err),
			)
			continue
		}
		s.publish(ctx, event.RescheduleExpired, r)
	}

	return expired, nil
}

func (s *RescheduleService) checkCounterparty(b *model.Booking, r *model.RescheduleRequest, actorID int64) error {
	if actorID == r.RequestedBy {
		return ErrNotAllowed
	}
	if actorID != b.TeacherID && actorID != b.PayerID {
		return ErrNotAllowed
	}
	return nil
}

func (s *RescheduleService) publish(ctx context.Context, name string, r *model.RescheduleRequest) {
	s.events.Publish(ctx, name, event.ReschedulePayload{
		RequestID:    r.ID,
		BookingID:    r.BookingID,
		NewStartTime: r.NewStartTime,
		NewEndTime:   r.NewEndTime,
	})
}

func (s *RescheduleService) notifyRequester(ctx context.Context, r *model.RescheduleRequest, text string) {
	s.send(ctx, r.RequestedBy, text)
}

func (s *RescheduleService) notifyCounterparty(ctx context.Context, r *model.RescheduleRequest, text string) {
	b, err := s.store.GetBooking(ctx, r.BookingID)
	if err != nil {
		return
	}
	other := b.TeacherID
	if r.RequestedBy == b.TeacherID {
		other = b.PayerID
	}
	s.send(ctx, other, text)
}

func (s *RescheduleService) send(ctx context.Context, userID int64, text string) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil || u.TelegramChatID == nil {
		return
	}
	s.notifier.Send(ctx, *u.TelegramChatID, text)
}
