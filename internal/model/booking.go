package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusAwaitingApproval BookingStatus = "awaiting_approval" // waiting for the teacher to accept
	BookingStatusConfirmed        BookingStatus = "confirmed"
	BookingStatusRescheduling     BookingStatus = "rescheduling" // a reschedule request is pending
	BookingStatusCompleted        BookingStatus = "completed"
	BookingStatusCancelled        BookingStatus = "cancelled"
	BookingStatusDisputed         BookingStatus = "disputed"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending" // funds not collected yet
	PaymentStatusHeld     PaymentStatus = "held"    // collected, in escrow
	PaymentStatusReleased PaymentStatus = "released"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusDisputed PaymentStatus = "disputed"
)

// Booking is the central entity: one scheduled session between a teacher and
// a paying user. Status and PaymentStatus are independent axes; money fields
// are integer cents.
type Booking struct {
	ID               int64         `json:"id"`
	TeacherID        int64         `json:"teacher_id"`
	PayerID          int64         `json:"payer_id"` // student or guardian
	Status           BookingStatus `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	SessionStartedAt *time.Time    `json:"session_started_at,omitempty"`
	SessionEndedAt   *time.Time    `json:"session_ended_at,omitempty"`

	TotalPrice     int64   `json:"total_price"` // cents
	Currency       string  `json:"currency"`
	CommissionRate float64 `json:"commission_rate"` // platform cut, percent
	AmountReleased int64   `json:"amount_released"`
	AmountRefunded int64   `json:"amount_refunded"`

	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	DisputeRaisedAt   *time.Time `json:"dispute_raised_at,omitempty"`
	DisputeReason     *string    `json:"dispute_reason,omitempty"`
	DisputeResolvedAt *time.Time `json:"dispute_resolved_at,omitempty"`
	DisputeResolution *string    `json:"dispute_resolution,omitempty"`
	DisputeResolvedBy *int64     `json:"dispute_resolved_by,omitempty"`

	// Weekly series: children point at the parent booking, the whole series
	// shares one group id.
	ParentBookingID *int64     `json:"parent_booking_id,omitempty"`
	SeriesGroupID   *uuid.UUID `json:"series_group_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentTerminal reports whether funds for this booking have reached their
// final destination. No further fund movement is permitted once terminal.
func (b *Booking) PaymentTerminal() bool {
	return b.PaymentStatus == PaymentStatusReleased || b.PaymentStatus == PaymentStatusRefunded
}

// StatusTerminal reports whether the session lifecycle is over.
func (b *Booking) StatusTerminal() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}

// HasUnresolvedDispute reports whether a dispute was raised and not yet resolved.
func (b *Booking) HasUnresolvedDispute() bool {
	return b.DisputeRaisedAt != nil && b.DisputeResolvedAt == nil
}

// CommissionAmount is the platform cut on the given amount in cents.
func (b *Booking) CommissionAmount(amount int64) int64 {
	return RoundCents(float64(amount) * b.CommissionRate / 100)
}
