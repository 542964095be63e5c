package service

import (
	"context"
	"testing"
	"time"

	"github.com/lessonwire/core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldMovesPendingToHeld(t *testing.T) {
	e := newEnv(testNow)
	b := e.seedBooking(48*time.Hour, 10000)
	e.store.bookings[b.ID].PaymentStatus = model.PaymentStatusPending

	require.NoError(t, e.escrow.Hold(context.Background(), b.ID))

	got, err := e.store.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusHeld, got.PaymentStatus)
}

func TestHoldIsIdempotent(t *testing.T) {
	e := newEnv(testNow)
	b := e.seedBooking(48*time.Hour, 10000)

	require.NoError(t, e.escrow.Hold(context.Background(), b.ID))
	require.NoError(t, e.escrow.Hold(context.Background(), b.ID))

	got, err := e.store.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusHeld, got.PaymentStatus)
}

func TestReleaseCreditsTeacherNetOfCommission(t *testing.T) {
	e := newEnv(testNow)
	b := e.seedBooking(48*time.Hour, 10000)

	require.NoError(t, e.escrow.Release(context.Background(), b.ID, "session completed"))

	// 20 percent commission on 10000 leaves 8000 for the teacher.
	assert.Equal(t, int64(8000), e.store.balance(teacherID))
	assert.Equal(t, int64(0), e.store.balance(payerID))

	got, err := e.store.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusReleased, got.PaymentStatus)
	assert.Equal(t, b.TotalPrice, got.AmountReleased+got.AmountRefunded)
}

func TestReleaseTwiceMovesFundsOnce(t *testing.T) {
	e := newEnv(testNow)
	b := e.seedBooking(48*time.Hour, 10000)

	require.NoError(t, e.escrow.Release(context.Background(), b.ID, "first"))
	err := e.escrow.Release(context.Background(), b.ID, "second")
	require.ErrorIs(t, err, ErrNotHeld)

	assert.Equal(t, int64(8000), e.store.balance(teacherID))
	assert.Len(t, e.store.transactionsFor(teacherID), 1)
}

func TestRefundCreditsPayerInFull(t *testing.T) {
	e := newEnv(testNow)
	b := e.seedBooking(48*time.Hour, 10000)

	require.NoError(t, e.escrow.Refund(context.Background(), b.ID, nil, "teacher unavailable"))

	assert.Equal(t, int64(10000), e.store.balance(payerID))
	assert.Equal(t, int64(0), e.store.balance(teacherID))

	got, err := e.store.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, got.PaymentStatus)
}

func TestRefundAfterReleaseRejected(t *testing.T) {
	e := newEnv(testNow)
	b := e.seedBooking(48*time.Hour, 10000)

	require.NoError(t, e.escrow.Release(context.Background(), b.ID, "session completed"))
	err := e.escrow.Refund(context.Background(), b.ID, nil, "too late")
	require.ErrorIs(t, err, ErrNotHeld)

	assert.Equal(t, int64(0), e.store.balance(payerID))
}

func TestPartialSplitLegsSumToTotal(t *testing.T) {
	e := newEnv(testNow)
	b := e.seedBooking(48*time.Hour, 9999)

	require.NoError(t, e.escrow.PartialSplit(context.Background(), b.ID, 25, "late cancellation"))

	got, err := e.store.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.TotalPrice, got.AmountReleased+got.AmountRefunded)

	// 25 percent of 9999 rounds to 2500 gross; teacher keeps it minus the 20
	// percent commission, the payer gets the remaining 7499.
	assert.Equal(t, int64(2500), got.AmountReleased)
	assert.Equal(t, int64(7499), got.AmountRefunded)
	assert.Equal(t, int64(2000), e.store.balance(teacherID))
	assert.Equal(t, int64(7499), e.store.balance(payerID))
	assert.Equal(t, model.PaymentStatusRefunded, got.PaymentStatus)
}

func TestAutoReleaseSweepReleasesEligibleOnly(t *testing.T) {
	e := newEnv(testNow)

	// Ended two days ago, completed: eligible.
	eligible := e.seedBooking(-49*time.Hour, 10000)
	require.NoError(t, e.store.MarkBookingCompleted(context.Background(), eligible.ID, testNow.Add(-48*time.Hour)))

	// Ended recently, still inside the dispute window: not eligible.
	recent := e.seedBooking(-2*time.Hour, 10000)
	require.NoError(t, e.store.MarkBookingCompleted(context.Background(), recent.ID, testNow.Add(-time.Hour)))

	// Ended long ago but disputed: the sweep must skip it.
	disputed := e.seedBooking(-49*time.Hour, 10000)
	require.NoError(t, e.store.MarkBookingCompleted(context.Background(), disputed.ID, testNow.Add(-48*time.Hour)))
	require.NoError(t, e.store.RaiseDispute(context.Background(), disputed.ID, testNow.Add(-40*time.Hour), "no show"))

	n, err := e.escrow.AutoReleaseSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.store.GetBooking(context.Background(), eligible.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusReleased, got.PaymentStatus)

	got, err = e.store.GetBooking(context.Background(), recent.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusHeld, got.PaymentStatus)

	got, err = e.store.GetBooking(context.Background(), disputed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusDisputed, got.PaymentStatus)
}

func TestAutoReleaseSweepIsRepeatable(t *testing.T) {
	e := newEnv(testNow)
	b := e.seedBooking(-49*time.Hour, 10000)
	require.NoError(t, e.store.MarkBookingCompleted(context.Background(), b.ID, testNow.Add(-48*time.Hour)))

	n, err := e.escrow.AutoReleaseSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.escrow.AutoReleaseSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, int64(8000), e.store.balance(teacherID))
}
