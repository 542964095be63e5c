package storage

import "errors"

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInsufficientBalance is returned when a wallet debit would take the
// balance below zero. The debit is not applied.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// ErrDuplicatePending is returned when a second pending reschedule request is
// created for the same booking.
var ErrDuplicatePending = errors.New("a pending reschedule request already exists for this booking")
