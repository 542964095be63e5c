package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/storage"
)

// GetWallet fetches a user's wallet.
func (s *Store) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	query := `
		SELECT user_id, balance, currency, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`

	var w model.Wallet
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&w.UserID,
		&w.Balance,
		&w.Currency,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	return &w, nil
}

// CreditWallet adds funds, creating the wallet on first credit.
func (s *Store) CreditWallet(ctx context.Context, userID int64, amount int64, currency string) error {
	query := `
		INSERT INTO wallets (user_id, balance, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET balance = wallets.balance + EXCLUDED.balance, updated_at = now()
	`

	if _, err := s.db.Exec(ctx, query, userID, amount, currency); err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	return nil
}

// DebitWallet subtracts funds. The sufficiency check and the mutation are one
// statement, so concurrent debits cannot both pass against a stale balance.
func (s *Store) DebitWallet(ctx context.Context, userID int64, amount int64) error {
	query := `
		UPDATE wallets
		SET balance = balance - $1, updated_at = now()
		WHERE user_id = $2 AND balance >= $1
	`

	tag, err := s.db.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either no wallet or not enough in it; both refuse the debit.
		return storage.ErrInsufficientBalance
	}
	return nil
}
