package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/storage"
)

const bookingColumns = `
	id, teacher_id, payer_id, status, payment_status,
	start_time, end_time, session_started_at, session_ended_at,
	total_price, currency, commission_rate, amount_released, amount_refunded,
	cancellation_reason, cancelled_at,
	dispute_raised_at, dispute_reason, dispute_resolved_at, dispute_resolution, dispute_resolved_by,
	parent_booking_id, series_group_id,
	created_at, updated_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.TeacherID,
		&b.PayerID,
		&b.Status,
		&b.PaymentStatus,
		&b.StartTime,
		&b.EndTime,
		&b.SessionStartedAt,
		&b.SessionEndedAt,
		&b.TotalPrice,
		&b.Currency,
		&b.CommissionRate,
		&b.AmountReleased,
		&b.AmountRefunded,
		&b.CancellationReason,
		&b.CancelledAt,
		&b.DisputeRaisedAt,
		&b.DisputeReason,
		&b.DisputeResolvedAt,
		&b.DisputeResolution,
		&b.DisputeResolvedBy,
		&b.ParentBookingID,
		&b.SeriesGroupID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	return &b, nil
}

// CreateBooking inserts a new booking.
func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	query := `
		INSERT INTO bookings (
			teacher_id, payer_id, status, payment_status,
			start_time, end_time, total_price, currency, commission_rate,
			parent_booking_id, series_group_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRow(
		ctx, query,
		b.TeacherID,
		b.PayerID,
		b.Status,
		b.PaymentStatus,
		b.StartTime,
		b.EndTime,
		b.TotalPrice,
		b.Currency,
		b.CommissionRate,
		b.ParentBookingID,
		b.SeriesGroupID,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetBooking fetches a booking by id.
func (s *Store) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(s.db.QueryRow(ctx, query, id))
}

// LockBooking fetches a booking with FOR UPDATE. Inside a transaction this
// serializes every settlement touching the same row.
func (s *Store) LockBooking(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return scanBooking(s.db.QueryRow(ctx, query, id))
}

// UpdateBookingStatus sets the session status.
func (s *Store) UpdateBookingStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	query := `UPDATE bookings SET status = $1, updated_at = now() WHERE id = $2`

	tag, err := s.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateBookingTimes moves the session window, used when a reschedule is accepted.
func (s *Store) UpdateBookingTimes(ctx context.Context, id int64, start, end time.Time) error {
	query := `UPDATE bookings SET start_time = $1, end_time = $2, updated_at = now() WHERE id = $3`

	tag, err := s.db.Exec(ctx, query, start, end, id)
	if err != nil {
		return fmt.Errorf("update booking times: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkBookingCancelled stamps the terminal cancelled status with its reason.
func (s *Store) MarkBookingCancelled(ctx context.Context, id int64, reason string, at time.Time) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancellation_reason = $1, cancelled_at = $2, updated_at = now()
		WHERE id = $3
	`

	tag, err := s.db.Exec(ctx, query, reason, at, id)
	if err != nil {
		return fmt.Errorf("mark booking cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkSessionStarted records actual attendance start.
func (s *Store) MarkSessionStarted(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE bookings SET session_started_at = $1, updated_at = now() WHERE id = $2`

	tag, err := s.db.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("mark session started: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkBookingCompleted records attendance end and the completed status.
func (s *Store) MarkBookingCompleted(ctx context.Context, id int64, endedAt time.Time) error {
	query := `
		UPDATE bookings
		SET status = 'completed', session_ended_at = $1, updated_at = now()
		WHERE id = $2
	`

	tag, err := s.db.Exec(ctx, query, endedAt, id)
	if err != nil {
		return fmt.Errorf("mark booking completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TransitionPayment flips payment_status only when the current value matches.
// The guard makes retried settlements a no-op instead of a double movement.
func (s *Store) TransitionPayment(ctx context.Context, id int64, from, to model.PaymentStatus) (bool, error) {
	query := `
		UPDATE bookings
		SET payment_status = $1, updated_at = now()
		WHERE id = $2 AND payment_status = $3
	`

	tag, err := s.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("transition payment status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordSettlement stamps the terminal payment outcome and the final split.
func (s *Store) RecordSettlement(ctx context.Context, id int64, status model.PaymentStatus, released, refunded int64) error {
	query := `
		UPDATE bookings
		SET payment_status = $1, amount_released = $2, amount_refunded = $3, updated_at = now()
		WHERE id = $4
	`

	tag, err := s.db.Exec(ctx, query, status, released, refunded, id)
	if err != nil {
		return fmt.Errorf("record settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RaiseDispute freezes the booking's funds pending resolution.
func (s *Store) RaiseDispute(ctx context.Context, id int64, at time.Time, reason string) error {
	query := `
		UPDATE bookings
		SET payment_status = 'disputed',
		    status = CASE WHEN status = 'completed' THEN status ELSE 'disputed' END,
		    dispute_raised_at = $1,
		    dispute_reason = $2,
		    updated_at = now()
		WHERE id = $3
	`

	tag, err := s.db.Exec(ctx, query, at, reason, id)
	if err != nil {
		return fmt.Errorf("raise dispute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ResolveDispute stamps the resolution narrative and resolver.
func (s *Store) ResolveDispute(ctx context.Context, id int64, at time.Time, resolution string, resolvedBy int64) error {
	query := `
		UPDATE bookings
		SET dispute_resolved_at = $1, dispute_resolution = $2, dispute_resolved_by = $3, updated_at = now()
		WHERE id = $4
	`

	tag, err := s.db.Exec(ctx, query, at, resolution, resolvedBy, id)
	if err != nil {
		return fmt.Errorf("resolve dispute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListSeriesSiblings returns future, non-terminal members of a weekly series,
// excluding the booking that triggered the cascade.
func (s *Store) ListSeriesSiblings(ctx context.Context, groupID uuid.UUID, exceptID int64, after time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE series_group_id = $1
		  AND id != $2
		  AND start_time > $3
		  AND status NOT IN ('completed', 'cancelled')
		ORDER BY start_time
	`

	rows, err := s.db.Query(ctx, query, groupID, exceptID, after)
	if err != nil {
		return nil, fmt.Errorf("list series siblings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

// ListAutoReleasable returns bookings the release sweep may settle: escrow
// held, session completed, no unresolved dispute, and past the dispute window.
func (s *Store) ListAutoReleasable(ctx context.Context, endedBefore time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id
		FROM bookings
		WHERE payment_status = 'held'
		  AND status = 'completed'
		  AND (dispute_raised_at IS NULL OR dispute_resolved_at IS NOT NULL)
		  AND end_time < $1
		ORDER BY end_time
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, endedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list auto-releasable bookings: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan booking id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CountTeacherOverlaps counts the teacher's active bookings overlapping the
// proposed window, excluding the booking being rescheduled.
func (s *Store) CountTeacherOverlaps(ctx context.Context, teacherID int64, start, end time.Time, excludeID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE teacher_id = $1
		  AND id != $2
		  AND status IN ('awaiting_approval', 'confirmed', 'rescheduling')
		  AND start_time < $3
		  AND end_time > $4
	`

	var count int
	err := s.db.QueryRow(ctx, query, teacherID, excludeID, end, start).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count teacher overlaps: %w", err)
	}

	return count, nil
}
