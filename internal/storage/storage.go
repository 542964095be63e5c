// Package storage defines the data-layer seam between the services and the
// database. Services depend on these interfaces; internal/storage/postgres
// implements them on pgx. Components should depend on the granular
// interfaces, not on Store.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lessonwire/core/internal/model"
)

// Store composes the whole data layer plus the unit-of-work runner.
type Store interface {
	Bookings
	Reschedules
	Wallets
	Transactions
	Payouts
	Users

	// RunInTx executes fn atomically. The Store handed to fn reads and writes
	// inside the transaction; returning an error rolls everything back.
	// Nested calls reuse the surrounding transaction.
	RunInTx(ctx context.Context, fn func(Store) error) error
}

type Bookings interface {
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)

	// LockBooking fetches the booking with a row lock. Only meaningful inside
	// RunInTx; every settlement path goes through it so two settlements on the
	// same booking serialize.
	LockBooking(ctx context.Context, id int64) (*model.Booking, error)

	UpdateBookingStatus(ctx context.Context, id int64, status model.BookingStatus) error
	UpdateBookingTimes(ctx context.Context, id int64, start, end time.Time) error
	MarkBookingCancelled(ctx context.Context, id int64, reason string, at time.Time) error
	MarkSessionStarted(ctx context.Context, id int64, at time.Time) error
	MarkBookingCompleted(ctx context.Context, id int64, endedAt time.Time) error

	// TransitionPayment flips payment_status from -> to only if the current
	// value is from. Returns false, without error, when the guard fails.
	TransitionPayment(ctx context.Context, id int64, from, to model.PaymentStatus) (bool, error)

	// RecordSettlement stamps the terminal payment state and the final
	// released/refunded split. Caller holds the row lock.
	RecordSettlement(ctx context.Context, id int64, status model.PaymentStatus, released, refunded int64) error

	RaiseDispute(ctx context.Context, id int64, at time.Time, reason string) error
	ResolveDispute(ctx context.Context, id int64, at time.Time, resolution string, resolvedBy int64) error

	// ListSeriesSiblings returns the other members of a weekly series whose
	// start time is after the given instant and whose status is not terminal.
	ListSeriesSiblings(ctx context.Context, groupID uuid.UUID, exceptID int64, after time.Time) ([]*model.Booking, error)

	// ListAutoReleasable returns ids of bookings eligible for the automatic
	// release sweep: held, completed, no unresolved dispute, ended before the
	// given cutoff.
	ListAutoReleasable(ctx context.Context, endedBefore time.Time, limit int) ([]int64, error)

	// CountTeacherOverlaps counts the teacher's active bookings overlapping
	// [start, end), excluding one booking id. Used for double-booking checks.
	CountTeacherOverlaps(ctx context.Context, teacherID int64, start, end time.Time, excludeID int64) (int, error)
}

type Reschedules interface {
	// CreateRescheduleRequest inserts a pending request. Returns
	// ErrDuplicatePending if the booking already has one pending.
	CreateRescheduleRequest(ctx context.Context, r *model.RescheduleRequest) error
	GetRescheduleRequest(ctx context.Context, id int64) (*model.RescheduleRequest, error)

	// TransitionReschedule flips status from -> to; false when the guard fails.
	TransitionReschedule(ctx context.Context, id int64, from, to model.RescheduleStatus) (bool, error)

	// ListExpiredPending returns pending requests whose expiry has passed.
	ListExpiredPending(ctx context.Context, asOf time.Time, limit int) ([]*model.RescheduleRequest, error)
}

type Wallets interface {
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)

	// CreditWallet adds amount to the user's balance, creating the wallet on
	// first credit.
	CreditWallet(ctx context.Context, userID int64, amount int64, currency string) error

	// DebitWallet subtracts amount, checking sufficiency in the same
	// statement. Returns ErrInsufficientBalance when the check fails.
	DebitWallet(ctx context.Context, userID int64, amount int64) error
}

type Transactions interface {
	CreateTransaction(ctx context.Context, t *model.Transaction) error

	// CompleteTransaction moves pending -> completed. Returns false when the
	// transaction is not pending (already completed or failed); callers must
	// not touch the wallet in that case.
	CompleteTransaction(ctx context.Context, id int64, at time.Time) (bool, error)

	ListTransactions(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error)
}

type Payouts interface {
	CreatePayout(ctx context.Context, p *model.Payout) error
	GetPayout(ctx context.Context, id int64) (*model.Payout, error)

	// TransitionPayout flips status from -> to; false when the guard fails.
	TransitionPayout(ctx context.Context, id int64, from, to model.PayoutStatus, at time.Time) (bool, error)

	ListPayoutsByTeacher(ctx context.Context, teacherID int64) ([]*model.Payout, error)
}

type Users interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
}
