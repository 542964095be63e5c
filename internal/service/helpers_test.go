package service

import (
	"context"
	"time"

	"github.com/lessonwire/core/internal/clock"
	"github.com/lessonwire/core/internal/event"
	"github.com/lessonwire/core/internal/model"
	"github.com/lessonwire/core/internal/notify"
	"go.uber.org/zap"
)

const (
	teacherID = int64(1)
	payerID   = int64(2)
)

// testNow is the pinned instant every test clock starts from.
var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

type env struct {
	store       *memStore
	clock       clock.Fixed
	escrow      *EscrowService
	bookings    *BookingService
	disputes    *DisputeService
	reschedules *RescheduleService
	payouts     *PayoutService
}

func newEnv(now time.Time) *env {
	store := newMemStore()
	store.users[teacherID] = &model.User{ID: teacherID, FullName: "Teacher", IsTeacher: true}
	store.users[payerID] = &model.User{ID: payerID, FullName: "Payer"}

	clk := clock.Fixed{T: now}
	logger := zap.NewNop()
	escrow := NewEscrowService(store, clk, logger)

	return &env{
		store:       store,
		clock:       clk,
		escrow:      escrow,
		bookings:    NewBookingService(store, escrow, event.Nop{}, notify.Nop{}, clk, logger),
		disputes:    NewDisputeService(store, escrow, event.Nop{}, notify.Nop{}, clk, logger),
		reschedules: NewRescheduleService(store, event.Nop{}, notify.Nop{}, clk, logger),
		payouts:     NewPayoutService(store, clk, logger),
	}
}

// reclock swaps the pinned instant on every service, simulating time passing.
func (e *env) reclock(now time.Time) {
	clk := clock.Fixed{T: now}
	e.clock = clk
	e.escrow.clock = clk
	e.bookings.clock = clk
	e.disputes.clock = clk
	e.reschedules.clock = clk
	e.payouts.clock = clk
}

// seedBooking inserts a confirmed, escrow-held booking starting at the given
// offset from now, priced in cents with a 20 percent commission.
func (e *env) seedBooking(startIn time.Duration, price int64) *model.Booking {
	b := &model.Booking{
		TeacherID:      teacherID,
		PayerID:        payerID,
		Status:         model.BookingStatusConfirmed,
		PaymentStatus:  model.PaymentStatusHeld,
		StartTime:      e.clock.T.Add(startIn),
		EndTime:        e.clock.T.Add(startIn + time.Hour),
		TotalPrice:     price,
		Currency:       "USD",
		CommissionRate: 20,
	}
	if err := e.store.CreateBooking(context.Background(), b); err != nil {
		panic(err)
	}
	return b
}
