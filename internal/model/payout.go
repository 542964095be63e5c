package model

import (
	"time"

	"github.com/google/uuid"
)

type PayoutStatus string

const (
	PayoutStatusRequested PayoutStatus = "requested"
	PayoutStatusPaid      PayoutStatus = "paid"
	PayoutStatusRejected  PayoutStatus = "rejected"
)

// Payout is a teacher's withdrawal request against their settled wallet
// balance. The wallet debit happens when the payout is requested; a rejected
// payout is re-credited with an offsetting transaction.
type Payout struct {
	ID          int64        `json:"id"`
	TeacherID   int64        `json:"teacher_id"`
	Amount      int64        `json:"amount"` // cents
	Currency    string       `json:"currency"`
	Status      PayoutStatus `json:"status"`
	Reference   uuid.UUID    `json:"reference"`
	CreatedAt   time.Time    `json:"created_at"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
}
