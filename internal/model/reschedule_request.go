package model

import "time"

type RescheduleStatus string

const (
	RescheduleStatusPending   RescheduleStatus = "pending"
	RescheduleStatusAccepted  RescheduleStatus = "accepted"
	RescheduleStatusRejected  RescheduleStatus = "rejected"
	RescheduleStatusCancelled RescheduleStatus = "cancelled"
	RescheduleStatusExpired   RescheduleStatus = "expired"
)

// RescheduleExpiry is how long a pending request stays open before the sweep
// expires it and the booking reverts to confirmed.
const RescheduleExpiry = 48 * time.Hour

// RescheduleRequest proposes a new time window for a booking. At most one
// pending request may exist per booking; while it is pending the booking is
// held in the rescheduling status.
type RescheduleRequest struct {
	ID                int64            `json:"id"`
	BookingID         int64            `json:"booking_id"`
	RequestedBy       int64            `json:"requested_by"`
	OriginalStartTime time.Time        `json:"original_start_time"`
	NewStartTime      time.Time        `json:"new_start_time"`
	NewEndTime        time.Time        `json:"new_end_time"`
	Reason            string           `json:"reason"`
	Status            RescheduleStatus `json:"status"`
	ExpiresAt         time.Time        `json:"expires_at"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}
