package service

import "errors"

// Policy-violation errors. Each is a user-facing, recoverable rejection with
// a single-sentence reason; no state is mutated when one is returned.
var (
	ErrNotAllowed          = errors.New("user is not a participant of this booking")
	ErrNotAwaitingApproval = errors.New("booking is not awaiting teacher approval")
	ErrNotConfirmed        = errors.New("booking is not confirmed")

	// ErrNotHeld means the booking's funds are not in escrow: either never
	// captured or already settled. Retrying a settlement that lost the race
	// surfaces this; callers treat it as a safe no-op.
	ErrNotHeld = errors.New("booking funds are not held in escrow")

	ErrLeadTimeTooShort  = errors.New("session starts in less than 6 hours")
	ErrSlotUnavailable   = errors.New("the teacher already has a booking at the requested time")
	ErrReschedulePending = errors.New("a reschedule request is already pending for this booking")
	ErrRequestNotPending = errors.New("reschedule request has already been resolved")

	ErrDisputeWindowClosed  = errors.New("the dispute window for this session has closed")
	ErrDisputeAlreadyRaised = errors.New("a dispute has already been raised for this booking")
	ErrDisputeNotOpen       = errors.New("there is no open dispute on this booking")
)
