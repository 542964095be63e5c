package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/storage"
)

// CreatePayout inserts a withdrawal request.
func (s *Store) CreatePayout(ctx context.Context, p *model.Payout) error {
	query := `
		INSERT INTO payouts (teacher_id, amount, currency, status, reference)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := s.db.QueryRow(
		ctx, query,
		p.TeacherID,
		p.Amount,
		p.Currency,
		p.Status,
		p.Reference,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		return fmt.Errorf("create payout: %w", err)
	}

	return nil
}

// GetPayout fetches a payout by id.
func (s *Store) GetPayout(ctx context.Context, id int64) (*model.Payout, error) {
	query := `
		SELECT id, teacher_id, amount, currency, status, reference, created_at, processed_at
		FROM payouts
		WHERE id = $1
	`

	var p model.Payout
	err := s.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.TeacherID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.Reference,
		&p.CreatedAt,
		&p.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get payout: %w", err)
	}

	return &p, nil
}

// TransitionPayout flips status only when the current value matches.
func (s *Store) TransitionPayout(ctx context.Context, id int64, from, to model.PayoutStatus, at time.Time) (bool, error) {
	query := `
		UPDATE payouts
		SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4
	`

	tag, err := s.db.Exec(ctx, query, to, at, id, from)
	if err != nil {
		return false, fmt.Errorf("transition payout status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListPayoutsByTeacher returns a teacher's payouts, newest first.
func (s *Store) ListPayoutsByTeacher(ctx context.Context, teacherID int64) ([]*model.Payout, error) {
	query := `
		SELECT id, teacher_id, amount, currency, status, reference, created_at, processed_at
		FROM payouts
		WHERE teacher_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list payouts by teacher: %w", err)
	}
	defer rows.Close()

	var payouts []*model.Payout
	for rows.Next() {
		var p model.Payout
		err := rows.Scan(
			&p.ID,
			&p.TeacherID,
			&p.Amount,
			&p.Currency,
			&p.Status,
			&p.Reference,
			&p.CreatedAt,
			&p.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		payouts = append(payouts, &p)
	}

	return payouts, rows.Err()
}
