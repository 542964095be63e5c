package model

import "time"

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// ReferenceKind tags what a transaction settles against.
type ReferenceKind string

const (
	ReferenceKindBooking ReferenceKind = "booking"
	ReferenceKindPayout  ReferenceKind = "payout"
)

// Reference links a transaction to the booking or payout that produced it.
type Reference struct {
	Kind ReferenceKind `json:"kind"`
	ID   int64         `json:"id"`
}

// Transaction is one append-only entry in the ledger. The owning wallet's
// balance is mutated exactly once, at the pending -> completed transition.
// Completed transactions are immutable; corrections are new offsetting
// transactions, never edits.
type Transaction struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"` // wallet owner
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Amount      int64             `json:"amount"` // cents, always positive
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Reference   *Reference        `json:"reference,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}
