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

const rescheduleColumns = `
	id, booking_id, requested_by, original_start_time, new_start_time, new_end_time,
	reason, status, expires_at, created_at, updated_at`

func scanReschedule(row pgx.Row) (*model.RescheduleRequest, error) {
	var r model.RescheduleRequest
	err := row.Scan(
		&r.ID,
		&r.BookingID,
		&r.RequestedBy,
		&r.OriginalStartTime,
		&r.NewStartTime,
		&r.NewEndTime,
		&r.Reason,
		&r.Status,
		&r.ExpiresAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan reschedule request: %w", err)
	}
	return &r, nil
}

// CreateRescheduleRequest inserts a pending request. A partial unique index on
// (booking_id) WHERE status = 'pending' enforces one pending request per
// booking; a violation surfaces as ErrDuplicatePending.
func (s *Store) CreateRescheduleRequest(ctx context.Context, r *model.RescheduleRequest) error {
	query := `
		INSERT INTO reschedule_requests (
			booking_id, requested_by, original_start_time, new_start_time, new_end_time,
			reason, status, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRow(
		ctx, query,
		r.BookingID,
		r.RequestedBy,
		r.OriginalStartTime,
		r.NewStartTime,
		r.NewEndTime,
		r.Reason,
		r.Status,
		r.ExpiresAt,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicatePending
		}
		return fmt.Errorf("create reschedule request: %w", err)
	}

	return nil
}

// GetRescheduleRequest fetches a request by id.
func (s *Store) GetRescheduleRequest(ctx context.Context, id int64) (*model.RescheduleRequest, error) {
	query := `SELECT ` + rescheduleColumns + ` FROM reschedule_requests WHERE id = $1`
	return scanReschedule(s.db.QueryRow(ctx, query, id))
}

// TransitionReschedule flips status only when the current value matches, so
// a request resolved twice (accept vs. expiry sweep) settles exactly once.
func (s *Store) TransitionReschedule(ctx context.Context, id int64, from, to model.RescheduleStatus) (bool, error) {
	query := `
		UPDATE reschedule_requests
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`

	tag, err := s.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("transition reschedule status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpiredPending returns pending requests past their expiry.
func (s *Store) ListExpiredPending(ctx context.Context, asOf time.Time, limit int) ([]*model.RescheduleRequest, error) {
	query := `
		SELECT ` + rescheduleColumns + `
		FROM reschedule_requests
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reschedule requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.RescheduleRequest
	for rows.Next() {
		r, err := scanReschedule(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}

	return requests, rows.Err()
}
