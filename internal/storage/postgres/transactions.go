package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lessonwire/core/internal/model"
)

// CreateTransaction appends a pending ledger entry.
func (s *Store) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, type, status, amount, currency, description, reference_kind, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	var refKind *model.ReferenceKind
	var refID *int64
	if t.Reference != nil {
		refKind = &t.Reference.Kind
		refID = &t.Reference.ID
	}

	err := s.db.QueryRow(
		ctx, query,
		t.UserID,
		t.Type,
		t.Status,
		t.Amount,
		t.Currency,
		t.Description,
		refKind,
		refID,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	return nil
}

// CompleteTransaction moves a transaction pending -> completed. The status
// guard makes re-entry idempotent: a transaction that already completed
// reports false and the caller must leave the wallet alone.
func (s *Store) CompleteTransaction(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET status = 'completed', completed_at = $1
		WHERE id = $2 AND status = 'pending'
	`

	tag, err := s.db.Exec(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("complete transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListTransactions returns a user's ledger entries, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	query := `
		SELECT id, user_id, type, status, amount, currency, description, reference_kind, reference_id, created_at, completed_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*model.Transaction
	for rows.Next() {
		var t model.Transaction
		var refKind *model.ReferenceKind
		var refID *int64
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Type,
			&t.Status,
			&t.Amount,
			&t.Currency,
			&t.Description,
			&refKind,
			&refID,
			&t.CreatedAt,
			&t.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if refKind != nil && refID != nil {
			t.Reference = &model.Reference{Kind: *refKind, ID: *refID}
		}
		txs = append(txs, &t)
	}

	return txs, rows.Err()
}
