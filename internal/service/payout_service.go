package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lessonwire/core/internal/clock"
	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/storage"
	"go.uber.org/zap"
)

// PayoutService turns a teacher's settled wallet balance into withdrawal
// requests. The wallet is debited when the payout is requested; rejecting a
// payout re-credits it with an offsetting transaction.
type PayoutService struct {
	store  storage.Store
	clock  clock.Clock
	logger *zap.Logger
}

func NewPayoutService(store storage.Store, clk clock.Clock, logger *zap.Logger) *PayoutService {
	return &PayoutService{
		store:  store,
		clock:  clk,
		logger: logger,
	}
}

// RequestPayout debits the teacher's wallet and records the withdrawal.
// Returns storage.ErrInsufficientBalance when the balance does not cover the
// amount; nothing is mutated in that case.
func (s *PayoutService) RequestPayout(ctx context.Context, teacherID, amount int64) (*model.Payout, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payout amount must be positive")
	}

	var payout *model.Payout
	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		w, err := st.GetWallet(ctx, teacherID)
		if err != nil {
			return err
		}

		payout = &model.Payout{
			TeacherID: teacherID,
			Amount:    amount,
			Currency:  w.Currency,
			Status:    model.PayoutStatusRequested,
			Reference: uuid.New(),
		}
		if err := st.CreatePayout(ctx, payout); err != nil {
			return err
		}

		t := &model.Transaction{
			UserID:      teacherID,
			Type:        model.TransactionTypeDebit,
			Status:      model.TransactionStatusPending,
			Amount:      amount,
			Currency:    w.Currency,
			Description: "payout " + payout.Reference.String(),
			Reference:   &model.Reference{Kind: model.ReferenceKindPayout, ID: payout.ID},
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

		return st.DebitWallet(ctx, teacherID, amount)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payout requested",
		zap.Int64("teacher_id", teacherID),
		zap.Int64("payout_id", payout.ID),
		zap.Int64("amount", amount),
	)

	return payout, nil
}

// MarkPaid records that the withdrawal left the platform.
func (s *PayoutService) MarkPaid(ctx context.Context, payoutID int64) error {
	ok, err := s.store.TransitionPayout(ctx, payoutID, model.PayoutStatusRequested, model.PayoutStatusPaid, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}

	s.logger.Info("payout paid", zap.Int64("payout_id", payoutID))
	return nil
}

// Reject refuses the withdrawal and returns the funds to the wallet with an
// offsetting credit; the original debit is never edited.
func (s *PayoutService) Reject(ctx context.Context, payoutID int64) error {
	err := s.store.RunInTx(ctx, func(st storage.Store) error {
		p, err := st.GetPayout(ctx, payoutID)
		if err != nil {
			return err
		}

		ok, err := st.TransitionPayout(ctx, payoutID, model.PayoutStatusRequested, model.PayoutStatusRejected, s.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrNotFound
		}

		t := &model.Transaction{
			UserID:      p.TeacherID,
			Type:        model.TransactionTypeCredit,
			Status:      model.TransactionStatusPending,
			Amount:      p.Amount,
			Currency:    p.Currency,
			Description: "payout rejected " + p.Reference.String(),
			Reference:   &model.Reference{Kind: model.ReferenceKindPayout, ID: p.ID},
		}
		if err := st.CreateTransaction(ctx, t); err != nil {
			return err
		}
		ok, err = st.CompleteTransaction(ctx, t.ID, s.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("transaction %d is not pending", t.ID)
		}

		return st.CreditWallet(ctx, p.TeacherID, p.Amount, p.Currency)
	})
	if err != nil {
		return err
	}

	s.logger.Info("payout rejected", zap.Int64("payout_id", payoutID))
	return nil
}

// ListPayouts returns a teacher's payout history.
func (s *PayoutService) ListPayouts(ctx context.Context, teacherID int64) ([]*model.Payout, error) {
	return s.store.ListPayoutsByTeacher(ctx, teacherID)
}
