package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lessonwire/core/internal/clock"
	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/storage"
	"go.uber.org/zap"
)

// DisputeWindow is how long after a session's end the payer may contest
// completion before the sweep releases the escrow to the teacher.
const DisputeWindow = 24 * time.Hour

// autoReleaseBatch caps how many bookings one sweep run settles.
const autoReleaseBatch = 100

// EscrowService moves money between the escrow-held state and its terminal
// destinations, exactly once per booking. Every public operation runs inside
// one transaction with the booking row locked, re-checking the payment state
// after the lock, so two concurrent settlements of the same booking cannot
// both succeed.
type EscrowService struct {
	store  storage.Store
	clock  clock.Clock
	logger *zap.Logger
}

func NewEscrowService(store storage.Store, clk clock.Clock, logger *zap.Logger) *EscrowService {
	return &EscrowService{
		store:  store,
		clock:  clk,
		logger: logger,
	}
}

// Hold marks the booking's funds as collected into escrow. Invoked by the
// payment-capture callback. Calling it again once held is a no-op.
func (s *EscrowService) Hold(ctx context.Context, bookingID int64) error {
	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		b, err := st.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.PaymentStatus == model.PaymentStatusHeld {
			return nil
		}

		ok, err := st.TransitionPayment(ctx, bookingID, model.PaymentStatusPending, model.PaymentStatusHeld)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotHeld
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("escrow hold placed", zap.Int64("booking_id", bookingID))
	return nil
}

// Release moves the full escrowed amount to the teacher's wallet, minus the
// platform commission. No-op error if the funds are not held.
func (s *EscrowService) Release(ctx context.Context, bookingID int64, description string) error {
	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		b, err := st.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.PaymentStatus != model.PaymentStatusHeld {
			return ErrNotHeld
		}
		return s.releaseLocked(ctx, st, b, description)
	})
	if err != nil {
		return err
	}

	s.logger.Info("escrow released", zap.Int64("booking_id", bookingID))
	return nil
}

// Refund credits the payer's wallet. A nil amount refunds the full price.
// No-op error if the funds are not held.
func (s *EscrowService) Refund(ctx context.Context, bookingID int64, amount *int64, reason string) error {
	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		b, err := st.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.PaymentStatus != model.PaymentStatusHeld {
			return ErrNotHeld
		}

		amt := b.TotalPrice
		if amount != nil {
			amt = *amount
		}
		return s.refundLocked(ctx, st, b, amt, reason)
	})
	if err != nil {
		return err
	}

	s.logger.Info("escrow refunded", zap.Int64("booking_id", bookingID), zap.String("reason", reason))
	return nil
}

// PartialSplit settles a late cancellation: teacherPercentage of the price is
// released to the teacher as earnings (commission still deducted), the
// remainder is refunded to the payer. Both legs commit together or not at all.
func (s *EscrowService) PartialSplit(ctx context.Context, bookingID int64, teacherPercentage float64, reason string) error {
	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		b, err := st.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.PaymentStatus != model.PaymentStatusHeld {
			return ErrNotHeld
		}
		return s.splitLocked(ctx, st, b, model.PercentOf(b.TotalPrice, teacherPercentage), reason)
	})
	if err != nil {
		return err
	}

	s.logger.Info("escrow split settled",
		zap.Int64("booking_id", bookingID),
		zap.Float64("teacher_percentage", teacherPercentage),
		zap.String("reason", reason),
	)
	return nil
}

// AutoReleaseSweep settles every booking past the dispute window. Each
// booking is settled in its own transaction; one failure is logged and does
// not stop the rest. Returns how many bookings were released.
func (s *EscrowService) AutoReleaseSweep(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-DisputeWindow)

	ids, err := s.store.ListAutoReleasable(ctx, cutoff, autoReleaseBatch)
	if err != nil {
		return 0, fmt.Errorf("list releasable bookings: %w", err)
	}

	released := 0
	for _, id := range ids {
		err := s.Release(ctx, id, "automatic release after dispute window")
		if err != nil {
			if errors.Is(err, ErrNotHeld) {
				// Lost the race to a concurrent settlement; nothing to do.
				continue
			}
			s.logger.Error("auto-release failed", zap.Int64("booking_id", id), zap.Error(err))
			continue
		}
		released++
	}

	return released, nil
}

// releaseLocked performs the teacher-credit leg and stamps the terminal
// state. The caller holds the row lock and has verified the funds are held
// (or is resolving a dispute).
func (s *EscrowService) releaseLocked(ctx context.Context, st storage.Store, b *model.Booking, description string) error {
	commission := b.CommissionAmount(b.TotalPrice)
	net := b.TotalPrice - commission

	ref := &model.Reference{Kind: model.ReferenceKindBooking, ID: b.ID}
	if err := s.creditLeg(ctx, st, b.TeacherID, net, b.Currency, description, ref); err != nil {
		return err
	}

	// amount_released records the gross teacher-side allocation, so the
	// released and refunded legs always reconcile to the total price.
	return st.RecordSettlement(ctx, b.ID, model.PaymentStatusReleased, b.TotalPrice, b.AmountRefunded)
}

// refundLocked performs the payer-credit leg and stamps the terminal state.
func (s *EscrowService) refundLocked(ctx context.Context, st storage.Store, b *model.Booking, amount int64, reason string) error {
	ref := &model.Reference{Kind: model.ReferenceKindBooking, ID: b.ID}
	desc := "refund: " + reason
	if err := s.creditLeg(ctx, st, b.PayerID, amount, b.Currency, desc, ref); err != nil {
		return err
	}

	return st.RecordSettlement(ctx, b.ID, model.PaymentStatusRefunded, b.AmountReleased, amount)
}

// splitLocked settles both legs of a partial split inside the caller's
// transaction. It takes the teacher's gross share in cents, not a percentage:
// the caller rounds once, so the refund leg equals exactly what the caller
// quoted.
func (s *EscrowService) splitLocked(ctx context.Context, st storage.Store, b *model.Booking, teacherGross int64, reason string) error {
	refund := b.TotalPrice - teacherGross

	ref := &model.Reference{Kind: model.ReferenceKindBooking, ID: b.ID}

	if teacherGross > 0 {
		commission := b.CommissionAmount(teacherGross)
		desc := "late cancellation earnings: " + reason
		if err := s.creditLeg(ctx, st, b.TeacherID, teacherGross-commission, b.Currency, desc, ref); err != nil {
			return err
		}
	}
	if refund > 0 {
		desc := "partial refund: " + reason
		if err := s.creditLeg(ctx, st, b.PayerID, refund, b.Currency, desc, ref); err != nil {
			return err
		}
	}

	// Terminal status follows the payer-facing outcome: any refund leg makes
	// the booking refunded, a pure teacher release makes it released.
	status := model.PaymentStatusReleased
	if refund > 0 {
		status = model.PaymentStatusRefunded
	}
	return st.RecordSettlement(ctx, b.ID, status, teacherGross, refund)
}

// creditLeg appends a pending ledger entry, completes it, and applies the
// single wallet mutation that completion permits. All inside the caller's
// transaction.
func (s *EscrowService) creditLeg(ctx context.Context, st storage.Store, userID, amount int64, currency, description string, ref *model.Reference) error {
	t := &model.Transaction{
		UserID:      userID,
		Type:        model.TransactionTypeCredit,
		Status:      model.TransactionStatusPending,
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Reference:   ref,
	}
	if err := st.CreateTransaction(ctx, t); err != nil {
		return err
	}

	ok, err := st.CompleteTransaction(ctx, t.ID, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("transaction %d is not pending", t.ID)
	}

	return st.CreditWallet(ctx, userID, amount, currency)
}
