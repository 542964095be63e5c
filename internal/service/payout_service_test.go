package service

import (
	"context"
	"testing"
	"time"

	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSettledEarnings(t *testing.T, e *env, price int64) {
	t.Helper()
	b := e.seedBooking(48*time.Hour, price)
	require.NoError(t, e.escrow.Release(context.Background(), b.ID, "session completed"))
}

func TestRequestPayoutDebitsWallet(t *testing.T) {
	e := newEnv(testNow)
	seedSettledEarnings(t, e, 10000) // teacher nets 8000

	p, err := e.payouts.RequestPayout(context.Background(), teacherID, 5000)
	require.NoError(t, err)

	assert.Equal(t, model.PayoutStatusRequested, p.Status)
	assert.Equal(t, "USD", p.Currency)
	assert.NotEqual(t, p.Reference.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, int64(3000), e.store.balance(teacherID))
}

func TestRequestPayoutInsufficientBalance(t *testing.T) {
	e := newEnv(testNow)
	seedSettledEarnings(t, e, 10000)

	_, err := e.payouts.RequestPayout(context.Background(), teacherID, 9000)
	require.ErrorIs(t, err, storage.ErrInsufficientBalance)
	assert.Equal(t, int64(8000), e.store.balance(teacherID))
}

func TestRequestPayoutWithoutWallet(t *testing.T) {
	e := newEnv(testNow)

	_, err := e.payouts.RequestPayout(context.Background(), teacherID, 1000)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMarkPaid(t *testing.T) {
	e := newEnv(testNow)
	seedSettledEarnings(t, e, 10000)

	p, err := e.payouts.RequestPayout(context.Background(), teacherID, 5000)
	require.NoError(t, err)

	require.NoError(t, e.payouts.MarkPaid(context.Background(), p.ID))

	got, err := e.store.GetPayout(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusPaid, got.Status)
	assert.NotNil(t, got.ProcessedAt)

	// Paying out again is a guard failure, not a second state change.
	err = e.payouts.MarkPaid(context.Background(), p.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRejectPayoutRestoresBalance(t *testing.T) {
	e := newEnv(testNow)
	seedSettledEarnings(t, e, 10000)

	p, err := e.payouts.RequestPayout(context.Background(), teacherID, 5000)
	require.NoError(t, err)
	require.Equal(t, int64(3000), e.store.balance(teacherID))

	require.NoError(t, e.payouts.Reject(context.Background(), p.ID))

	assert.Equal(t, int64(8000), e.store.balance(teacherID))

	got, err := e.store.GetPayout(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusRejected, got.Status)

	// The original debit stays; the restore is an offsetting credit.
	entries := e.store.transactionsFor(teacherID)
	assert.Len(t, entries, 3)
}

func TestListPayouts(t *testing.T) {
	e := newEnv(testNow)
	seedSettledEarnings(t, e, 10000)

	_, err := e.payouts.RequestPayout(context.Background(), teacherID, 2000)
	require.NoError(t, err)
	_, err = e.payouts.RequestPayout(context.Background(), teacherID, 3000)
	require.NoError(t, err)

	payouts, err := e.payouts.ListPayouts(context.Background(), teacherID)
	require.NoError(t, err)
	assert.Len(t, payouts, 2)
}
