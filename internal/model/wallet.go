package model

import "time"

// Wallet holds one user's settled funds. Balance is mutated only by completed
// transactions and never goes below zero.
type Wallet struct {
	UserID    int64     `json:"user_id"`
	Balance   int64     `json:"balance"` // cents
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
