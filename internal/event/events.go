// Package event publishes domain events for the notification and admin
// collaborators. Delivery is best effort: a failed publish is logged and
// never rolls back the settlement that produced it.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event names double as queue names on the broker.
const (
	BookingCancelled    = "booking.cancelled"
	DisputeRaised       = "dispute.raised"
	DisputeResolved     = "dispute.resolved"
	RescheduleRequested = "reschedule.requested"
	RescheduleAccepted  = "reschedule.accepted"
	RescheduleRejected  = "reschedule.rejected"
	RescheduleExpired   = "reschedule.expired"
)

// Envelope wraps every published payload.
type Envelope struct {
	EventID    uuid.UUID `json:"event_id"`
	Name       string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// BookingCancelledPayload summarizes the settlement outcome of a cancellation.
type BookingCancelledPayload struct {
	BookingID       int64  `json:"booking_id"`
	CancelledBy     int64  `json:"cancelled_by"`
	Reason          string `json:"reason"`
	Tier            string `json:"tier"`
	RefundAmount    int64  `json:"refund_amount"`
	CancellationFee int64  `json:"cancellation_fee"`
	Series          bool   `json:"series"`
}

// DisputePayload describes a raised or resolved dispute.
type DisputePayload struct {
	BookingID  int64  `json:"booking_id"`
	Reason     string `json:"reason,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Outcome    string `json:"outcome,omitempty"` // released, refunded or split on resolve
	ResolvedBy int64  `json:"resolved_by,omitempty"`
}

// ReschedulePayload describes a reschedule request transition.
type ReschedulePayload struct {
	RequestID    int64     `json:"request_id"`
	BookingID    int64     `json:"booking_id"`
	NewStartTime time.Time `json:"new_start_time"`
	NewEndTime   time.Time `json:"new_end_time"`
}
