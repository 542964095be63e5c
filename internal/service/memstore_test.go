package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/storage"
)

// memStore is an in-memory storage.Store for exercising the services without
// a database. Locking and transactions collapse to a single mutex; the
// conditional-transition guards behave like their SQL counterparts.
type memStore struct {
	mu sync.Mutex

	bookings     map[int64]*model.Booking
	reschedules  map[int64]*model.RescheduleRequest
	wallets      map[int64]*model.Wallet
	transactions map[int64]*model.Transaction
	payouts      map[int64]*model.Payout
	users        map[int64]*model.User

	nextBookingID     int64
	nextRescheduleID  int64
	nextTransactionID int64
	nextPayoutID      int64
}

func newMemStore() *memStore {
	return &memStore{
		bookings:     make(map[int64]*model.Booking),
		reschedules:  make(map[int64]*model.RescheduleRequest),
		wallets:      make(map[int64]*model.Wallet),
		transactions: make(map[int64]*model.Transaction),
		payouts:      make(map[int64]*model.Payout),
		users:        make(map[int64]*model.User),
	}
}

func (m *memStore) RunInTx(_ context.Context, fn func(storage.Store) error) error {
	return fn(m)
}

func cloneBooking(b *model.Booking) *model.Booking {
	c := *b
	return &c
}

func (m *memStore) CreateBooking(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextBookingID++
	b.ID = m.nextBookingID
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (m *memStore) GetBooking(_ context.Context, id int64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (m *memStore) LockBooking(ctx context.Context, id int64) (*model.Booking, error) {
	return m.GetBooking(ctx, id)
}

func (m *memStore) UpdateBookingStatus(_ context.Context, id int64, status model.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return storage.ErrNotFound
	}
	b.Status = status
	return nil
}

func (m *memStore) UpdateBookingTimes(_ context.Context, id int64, start, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return storage.ErrNotFound
	}
	b.StartTime = start
	b.EndTime = end
	return nil
}

func (m *memStore) MarkBookingCancelled(_ context.Context, id int64, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return storage.ErrNotFound
	}
	b.Status = model.BookingStatusCancelled
	b.CancellationReason = &reason
	b.CancelledAt = &at
	return nil
}

func (m *memStore) MarkSessionStarted(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return storage.ErrNotFound
	}
	b.SessionStartedAt = &at
	return nil
}

func (m *memStore) MarkBookingCompleted(_ context.Context, id int64, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return storage.ErrNotFound
	}
	b.Status = model.BookingStatusCompleted
	b.SessionEndedAt = &endedAt
	return nil
}

func (m *memStore) TransitionPayment(_ context.Context, id int64, from, to model.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok || b.PaymentStatus != from {
		return false, nil
	}
	b.PaymentStatus = to
	return true, nil
}

func (m *memStore) RecordSettlement(_ context.Context, id int64, status model.PaymentStatus, released, refunded int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return storage.ErrNotFound
	}
	b.PaymentStatus = status
	b.AmountReleased = released
	b.AmountRefunded = refunded
	return nil
}

func (m *memStore) RaiseDispute(_ context.Context, id int64, at time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return storage.ErrNotFound
	}
	b.PaymentStatus = model.PaymentStatusDisputed
	if b.Status != model.BookingStatusCompleted {
		b.Status = model.BookingStatusDisputed
	}
	b.DisputeRaisedAt = &at
	b.DisputeReason = &reason
	return nil
}

func (m *memStore) ResolveDispute(_ context.Context, id int64, at time.Time, resolution string, resolvedBy int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return storage.ErrNotFound
	}
	b.DisputeResolvedAt = &at
	b.DisputeResolution = &resolution
	b.DisputeResolvedBy = &resolvedBy
	return nil
}

func (m *memStore) ListSeriesSiblings(_ context.Context, groupID uuid.UUID, exceptID int64, after time.Time) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Booking
	for _, b := range m.bookings {
		if b.SeriesGroupID == nil || *b.SeriesGroupID != groupID || b.ID == exceptID {
			continue
		}
		if !b.StartTime.After(after) || b.StatusTerminal() {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	return out, nil
}

func (m *memStore) ListAutoReleasable(_ context.Context, endedBefore time.Time, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for _, b := range m.bookings {
		if len(ids) >= limit {
			break
		}
		if b.PaymentStatus != model.PaymentStatusHeld || b.Status != model.BookingStatusCompleted {
			continue
		}
		if b.HasUnresolvedDispute() {
			continue
		}
		if !b.EndTime.Before(endedBefore) {
			continue
		}
		ids = append(ids, b.ID)
	}
	return ids, nil
}

func (m *memStore) CountTeacherOverlaps(_ context.Context, teacherID int64, start, end time.Time, excludeID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := map[model.BookingStatus]bool{
		model.BookingStatusAwaitingApproval: true,
		model.BookingStatusConfirmed:        true,
		model.BookingStatusRescheduling:     true,
	}

	count := 0
	for _, b := range m.bookings {
		if b.TeacherID != teacherID || b.ID == excludeID || !active[b.Status] {
			continue
		}
		if b.StartTime.Before(end) && b.EndTime.After(start) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) CreateRescheduleRequest(_ context.Context, r *model.RescheduleRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.reschedules {
		if existing.BookingID == r.BookingID && existing.Status == model.RescheduleStatusPending {
			return storage.ErrDuplicatePending
		}
	}

	m.nextRescheduleID++
	r.ID = m.nextRescheduleID
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	clone := *r
	m.reschedules[r.ID] = &clone
	return nil
}

func (m *memStore) GetRescheduleRequest(_ context.Context, id int64) (*model.RescheduleRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reschedules[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *memStore) TransitionReschedule(_ context.Context, id int64, from, to model.RescheduleStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reschedules[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

func (m *memStore) ListExpiredPending(_ context.Context, asOf time.Time, limit int) ([]*model.RescheduleRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.RescheduleRequest
	for _, r := range m.reschedules {
		if len(out) >= limit {
			break
		}
		if r.Status == model.RescheduleStatusPending && r.ExpiresAt.Before(asOf) {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memStore) GetWallet(_ context.Context, userID int64) (*model.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wallets[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *w
	return &clone, nil
}

func (m *memStore) CreditWallet(_ context.Context, userID int64, amount int64, currency string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wallets[userID]
	if !ok {
		m.wallets[userID] = &model.Wallet{
			UserID:    userID,
			Balance:   amount,
			Currency:  currency,
			CreatedAt: time.Now(),
		}
		return nil
	}
	w.Balance += amount
	return nil
}

func (m *memStore) DebitWallet(_ context.Context, userID int64, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wallets[userID]
	if !ok || w.Balance < amount {
		return storage.ErrInsufficientBalance
	}
	w.Balance -= amount
	return nil
}

func (m *memStore) CreateTransaction(_ context.Context, t *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTransactionID++
	t.ID = m.nextTransactionID
	t.CreatedAt = time.Now()
	clone := *t
	m.transactions[t.ID] = &clone
	return nil
}

func (m *memStore) CompleteTransaction(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transactions[id]
	if !ok || t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Status = model.TransactionStatusCompleted
	t.CompletedAt = &at
	return true, nil
}

func (m *memStore) ListTransactions(_ context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Transaction
	for id := int64(1); id <= m.nextTransactionID; id++ {
		t, ok := m.transactions[id]
		if !ok || t.UserID != userID {
			continue
		}
		clone := *t
		out = append(out, &clone)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) CreatePayout(_ context.Context, p *model.Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextPayoutID++
	p.ID = m.nextPayoutID
	p.CreatedAt = time.Now()
	clone := *p
	m.payouts[p.ID] = &clone
	return nil
}

func (m *memStore) GetPayout(_ context.Context, id int64) (*model.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payouts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memStore) TransitionPayout(_ context.Context, id int64, from, to model.PayoutStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payouts[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.ProcessedAt = &at
	return true, nil
}

func (m *memStore) ListPayoutsByTeacher(_ context.Context, teacherID int64) ([]*model.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Payout
	for id := int64(1); id <= m.nextPayoutID; id++ {
		p, ok := m.payouts[id]
		if !ok || p.TeacherID != teacherID {
			continue
		}
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memStore) balance(userID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wallets[userID]
	if !ok {
		return 0
	}
	return w.Balance
}

func (m *memStore) transactionsFor(userID int64) []*model.Transaction {
	out, _ := m.ListTransactions(context.Background(), userID, 100)
	return out
}
