// Package policy implements the tiered cancellation-refund policy. It is a
// pure computation over a booking and "now"; all side effects live in the
// services that consult it.
package policy

import (
	"errors"
	"time"

	"github.com/lessonwire/core/internal/model"
)

// Tier names the bracket of the cancellation policy that applied.
type Tier string

const (
	TierAwaitingApproval Tier = "awaiting_approval" // teacher never accepted, full refund
	TierNotPaid          Tier = "not_paid"          // funds never collected, nothing to move
	TierFullRefund       Tier = "full_refund"       // more than 24h out
	TierLate1            Tier = "late_tier1"        // 12-24h out, 75%
	TierLate2            Tier = "late_tier2"        // 6-12h out, 50%
	TierNoRefund         Tier = "no_refund"         // 6h or less
)

// Quote is the outcome of the policy for one cancellation.
// Fee is defined as TotalPrice - Amount, so the two always sum exactly.
type Quote struct {
	Percentage int   `json:"percentage"`
	Amount     int64 `json:"amount"` // cents refunded to the payer
	Fee        int64 `json:"fee"`    // cents withheld
	Tier       Tier  `json:"tier"`
}

// Cancellation eligibility failures. Each carries the single-sentence reason
// surfaced to the caller.
var (
	ErrAlreadyCancelled     = errors.New("booking is already cancelled")
	ErrAlreadyCompleted     = errors.New("booking is already completed")
	ErrDisputed             = errors.New("booking is under dispute")
	ErrRescheduleInProgress = errors.New("booking has a pending reschedule request")
	ErrSessionStarted       = errors.New("session has already started")
	ErrSessionPassed        = errors.New("session start time has already passed")
	ErrFundsReleased        = errors.New("funds have already been released to the teacher")
)

// CanCancel is the eligibility gate evaluated before any refund is computed.
// It returns nil when the booking may be cancelled, or the specific reason
// it may not.
func CanCancel(b *model.Booking, now time.Time) error {
	switch b.Status {
	case model.BookingStatusCancelled:
		return ErrAlreadyCancelled
	case model.BookingStatusCompleted:
		return ErrAlreadyCompleted
	case model.BookingStatusDisputed:
		return ErrDisputed
	case model.BookingStatusRescheduling:
		// The pending request must be resolved or withdrawn first; otherwise
		// its resolution would revive a booking cancelled underneath it.
		return ErrRescheduleInProgress
	}
	if b.PaymentStatus == model.PaymentStatusDisputed {
		return ErrDisputed
	}
	if b.SessionStartedAt != nil {
		return ErrSessionStarted
	}
	if !b.StartTime.After(now) {
		return ErrSessionPassed
	}
	if b.PaymentStatus == model.PaymentStatusReleased {
		return ErrFundsReleased
	}
	return nil
}

// ComputeQuote applies the refund tiers in priority order, first match wins:
//
//  1. Teacher never accepted: full refund regardless of time to session.
//  2. Funds never collected: nothing to move.
//  3. Time-to-session brackets: >24h full, 12-24h 75%, 6-12h 50%, <=6h nothing.
//
// Hours-to-session is elapsed duration, so the brackets are immune to DST
// wall-clock jumps.
func ComputeQuote(b *model.Booking, now time.Time) Quote {
	if b.Status == model.BookingStatusAwaitingApproval {
		return quote(b.TotalPrice, 100, TierAwaitingApproval)
	}
	if b.PaymentStatus == model.PaymentStatusPending {
		// 100% of nothing: there are no held funds to return.
		return Quote{Percentage: 100, Amount: 0, Fee: 0, Tier: TierNotPaid}
	}

	hours := b.StartTime.Sub(now).Hours()
	switch {
	case hours > 24:
		return quote(b.TotalPrice, 100, TierFullRefund)
	case hours > 12:
		return quote(b.TotalPrice, 75, TierLate1)
	case hours > 6:
		return quote(b.TotalPrice, 50, TierLate2)
	default:
		return quote(b.TotalPrice, 0, TierNoRefund)
	}
}

func quote(total int64, pct int, tier Tier) Quote {
	amount := model.PercentOf(total, float64(pct))
	return Quote{
		Percentage: pct,
		Amount:     amount,
		Fee:        total - amount,
		Tier:       tier,
	}
}
