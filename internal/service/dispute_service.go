package service

import (
	"context"
	"fmt"

	"github.com/lessonwire/core/internal/clock"
	"github.com/lessonwire/core/internal/event"
	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/notify"
	"github.com/lessonwire/core/internal/policy"
	"github.com/lessonwire/core/internal/storage"
	"go.uber.org/zap"
)

// DisputeOutcomeKind is the resolver's verdict on the escrowed funds.
type DisputeOutcomeKind string

const (
	DisputeOutcomeReleased DisputeOutcomeKind = "released"
	DisputeOutcomeRefunded DisputeOutcomeKind = "refunded"
	DisputeOutcomeSplit    DisputeOutcomeKind = "split"
)

// DisputeOutcome carries the verdict; TeacherPercentage applies to split only.
type DisputeOutcome struct {
	Kind              DisputeOutcomeKind
	TeacherPercentage float64
}

// DisputeService freezes settlement while a payer contests a session and
// performs the resolver's verdict. Raising a dispute removes the booking
// from the automatic release sweep; a resolved dispute cannot be reopened.
type DisputeService struct {
	store    storage.Store
	escrow   *EscrowService
	events   event.Publisher
	notifier notify.Notifier
	clock    clock.Clock
	logger   *zap.Logger
}

func NewDisputeService(
	store storage.Store,
	escrow *EscrowService,
	events event.Publisher,
	notifier notify.Notifier,
	clk clock.Clock,
	logger *zap.Logger,
) *DisputeService {
	return &DisputeService{
		store:    store,
		escrow:   escrow,
		events:   events,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// Raise opens a dispute. Permitted only to the payer, while the funds are
// held, the session is confirmed or completed, the dispute window is still
// open, and no dispute was raised before.
func (s *DisputeService) Raise(ctx context.Context, bookingID, raisedBy int64, reason string) error {
	now := s.clock.Now()

	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		b, err := st.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.PayerID != raisedBy {
			return ErrNotAllowed
		}
		if b.DisputeRaisedAt != nil {
			return ErrDisputeAlreadyRaised
		}
		if b.PaymentStatus != model.PaymentStatusHeld {
			return ErrNotHeld
		}
		switch b.Status {
		case model.BookingStatusConfirmed, model.BookingStatusCompleted:
		case model.BookingStatusCancelled:
			return policy.ErrAlreadyCancelled
		default:
			return ErrNotConfirmed
		}
		if !now.Before(b.EndTime.Add(DisputeWindow)) {
			return ErrDisputeWindowClosed
		}

		return st.RaiseDispute(ctx, bookingID, now, reason)
	})
	if err != nil {
		return err
	}

	s.logger.Info("dispute raised",
		zap.Int64("booking_id", bookingID),
		zap.Int64("raised_by", raisedBy),
	)

	s.events.Publish(ctx, event.DisputeRaised, event.DisputePayload{
		BookingID: bookingID,
		Reason:    reason,
	})
	s.notifyParticipant(ctx, bookingID, true, fmt.Sprintf("A dispute was raised on booking #%d.", bookingID))

	return nil
}

// Resolve performs an authorized resolver's verdict: the escrow is released,
// refunded, or split, and the resolution is stamped on the booking. The
// settlement and the stamp commit together.
func (s *DisputeService) Resolve(ctx context.Context, bookingID, resolverID int64, resolution string, outcome DisputeOutcome) error {
	now := s.clock.Now()

	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		b, err := st.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.PaymentStatus != model.PaymentStatusDisputed || b.DisputeRaisedAt == nil {
			return ErrDisputeNotOpen
		}
		if b.DisputeResolvedAt != nil {
			return ErrDisputeNotOpen
		}

		if err := st.ResolveDispute(ctx, bookingID, now, resolution, resolverID); err != nil {
			return err
		}

		switch outcome.Kind {
		case DisputeOutcomeReleased:
			err = s.escrow.releaseLocked(ctx, st, b, "dispute resolved: "+resolution)
		case DisputeOutcomeRefunded:
			err = s.escrow.refundLocked(ctx, st, b, b.TotalPrice, "dispute resolved: "+resolution)
		case DisputeOutcomeSplit:
			err = s.escrow.splitLocked(ctx, st, b, model.PercentOf(b.TotalPrice, outcome.TeacherPercentage), "dispute resolved: "+resolution)
		default:
			return fmt.Errorf("unknown dispute outcome %q", outcome.Kind)
		}
		if err != nil {
			return err
		}

		// The session axis was frozen at disputed; adjudication closes it.
		if b.Status == model.BookingStatusDisputed {
			return st.UpdateBookingStatus(ctx, bookingID, model.BookingStatusCompleted)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("dispute resolved",
		zap.Int64("booking_id", bookingID),
		zap.Int64("resolved_by", resolverID),
		zap.String("outcome", string(outcome.Kind)),
	)

	s.events.Publish(ctx, event.DisputeResolved, event.DisputePayload{
		BookingID:  bookingID,
		Resolution: resolution,
		Outcome:    string(outcome.Kind),
		ResolvedBy: resolverID,
	})
	s.notifyParticipant(ctx, bookingID, true, fmt.Sprintf("The dispute on booking #%d was resolved.", bookingID))
	s.notifyParticipant(ctx, bookingID, false, fmt.Sprintf("The dispute on booking #%d was resolved.", bookingID))

	return nil
}

func (s *DisputeService) notifyParticipant(ctx context.Context, bookingID int64, teacher bool, text string) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return
	}
	userID := b.PayerID
	if teacher {
		userID = b.TeacherID
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil || u.TelegramChatID == nil {
		return
	}
	s.notifier.Send(ctx, *u.TelegramChatID, text)
}
