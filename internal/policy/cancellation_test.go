package policy_test

import (
	"testing"
	"time"

	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func heldBooking(startsIn time.Duration, price int64) *model.Booking {
	start := now.Add(startsIn)
	return &model.Booking{
		ID:            1,
		Status:        model.BookingStatusConfirmed,
		PaymentStatus: model.PaymentStatusHeld,
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		TotalPrice:    price,
		Currency:      "USD",
	}
}

func TestComputeQuoteTiers(t *testing.T) {
	cases := []struct {
		name     string
		startsIn time.Duration
		pct      int
		amount   int64
		fee      int64
		tier     policy.Tier
	}{
		{"30h out is a full refund", 30 * time.Hour, 100, 10000, 0, policy.TierFullRefund},
		{"just over 24h is still full", 24*time.Hour + time.Minute, 100, 10000, 0, policy.TierFullRefund},
		{"exactly 24h drops to tier1", 24 * time.Hour, 75, 7500, 2500, policy.TierLate1},
		{"18h out keeps 75 percent", 18 * time.Hour, 75, 7500, 2500, policy.TierLate1},
		{"10h out keeps half", 10 * time.Hour, 50, 5000, 5000, policy.TierLate2},
		{"exactly 12h drops to tier2", 12 * time.Hour, 50, 5000, 5000, policy.TierLate2},
		{"3h out refunds nothing", 3 * time.Hour, 0, 0, 10000, policy.TierNoRefund},
		{"exactly 6h refunds nothing", 6 * time.Hour, 0, 0, 10000, policy.TierNoRefund},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := policy.ComputeQuote(heldBooking(tc.startsIn, 10000), now)
			assert.Equal(t, tc.pct, q.Percentage)
			assert.Equal(t, tc.amount, q.Amount)
			assert.Equal(t, tc.fee, q.Fee)
			assert.Equal(t, tc.tier, q.Tier)
		})
	}
}

func TestQuoteLegsAlwaysSumToTotal(t *testing.T) {
	// Odd totals must not leak a cent between refund and fee.
	for _, price := range []int64{1, 99, 101, 3333, 9999, 1234567} {
		for _, startsIn := range []time.Duration{30 * time.Hour, 18 * time.Hour, 10 * time.Hour, time.Hour} {
			q := policy.ComputeQuote(heldBooking(startsIn, price), now)
			assert.Equal(t, price, q.Amount+q.Fee,
				"price %d at %s out", price, startsIn)
		}
	}
}

func TestAwaitingApprovalAlwaysFullRefund(t *testing.T) {
	b := heldBooking(time.Hour, 10000)
	b.Status = model.BookingStatusAwaitingApproval

	q := policy.ComputeQuote(b, now)
	assert.Equal(t, policy.TierAwaitingApproval, q.Tier)
	assert.Equal(t, 100, q.Percentage)
	assert.Equal(t, int64(10000), q.Amount)
	assert.Equal(t, int64(0), q.Fee)
}

func TestUnpaidBookingMovesNothing(t *testing.T) {
	b := heldBooking(3*time.Hour, 10000)
	b.PaymentStatus = model.PaymentStatusPending

	q := policy.ComputeQuote(b, now)
	assert.Equal(t, policy.TierNotPaid, q.Tier)
	assert.Equal(t, int64(0), q.Amount)
	assert.Equal(t, int64(0), q.Fee)
}

func TestCanCancelGate(t *testing.T) {
	sessionStart := now.Add(-30 * time.Minute)

	cases := []struct {
		name    string
		mutate  func(b *model.Booking)
		wantErr error
	}{
		{"eligible booking passes", func(b *model.Booking) {}, nil},
		{"cancelled", func(b *model.Booking) { b.Status = model.BookingStatusCancelled }, policy.ErrAlreadyCancelled},
		{"completed", func(b *model.Booking) { b.Status = model.BookingStatusCompleted }, policy.ErrAlreadyCompleted},
		{"disputed status", func(b *model.Booking) { b.Status = model.BookingStatusDisputed }, policy.ErrDisputed},
		{"disputed payment", func(b *model.Booking) { b.PaymentStatus = model.PaymentStatusDisputed }, policy.ErrDisputed},
		{"reschedule pending", func(b *model.Booking) { b.Status = model.BookingStatusRescheduling }, policy.ErrRescheduleInProgress},
		{"session started", func(b *model.Booking) { b.SessionStartedAt = &sessionStart }, policy.ErrSessionStarted},
		{"session in the past", func(b *model.Booking) { b.StartTime = now.Add(-time.Hour) }, policy.ErrSessionPassed},
		{"funds released", func(b *model.Booking) { b.PaymentStatus = model.PaymentStatusReleased }, policy.ErrFundsReleased},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := heldBooking(10*time.Hour, 10000)
			tc.mutate(b)
			err := policy.CanCancel(b, now)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCanonicalQuotes(t *testing.T) {
	// The three canonical quotes for a 10000-cent booking.
	q := policy.ComputeQuote(heldBooking(30*time.Hour, 10000), now)
	assert.Equal(t, policy.Quote{Percentage: 100, Amount: 10000, Fee: 0, Tier: policy.TierFullRefund}, q)

	q = policy.ComputeQuote(heldBooking(10*time.Hour, 10000), now)
	assert.Equal(t, policy.Quote{Percentage: 50, Amount: 5000, Fee: 5000, Tier: policy.TierLate2}, q)

	q = policy.ComputeQuote(heldBooking(3*time.Hour, 10000), now)
	assert.Equal(t, policy.Quote{Percentage: 0, Amount: 0, Fee: 10000, Tier: policy.TierNoRefund}, q)
}
