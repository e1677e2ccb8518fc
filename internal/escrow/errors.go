package escrow

import "errors"

// Error taxonomy for the escrow lifecycle. Every failed transition surfaces
// one of these; callers map them to HTTP codes and never retry inside the core.
var (
	ErrInvalidAmount       = errors.New("escrow: amount must be greater than zero")
	ErrInvalidRate         = errors.New("escrow: commission rate must be between 0 and 1 exclusive")
	ErrDuplicatePaymentRef = errors.New("escrow: payment reference already captured")
	ErrNotFound            = errors.New("escrow: transaction not found")
	ErrForbidden           = errors.New("escrow: actor not authorized for this action")
	ErrAlreadyConfirmed    = errors.New("escrow: buyer confirmation already recorded")
	ErrAlreadyResolved     = errors.New("escrow: transaction already released or cancelled")
	ErrIllegalTransition   = errors.New("escrow: transition not allowed from current status")
)
