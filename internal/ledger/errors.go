package ledger

import "errors"

// Error kinds for ledger operations. Callers branch on these with errors.Is:
// a failed validation is not retryable, an insufficient balance is, and an
// authorization failure needs a different identity entirely.
var (
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientReserve = errors.New("insufficient yield reserve")
	ErrInvalidState        = errors.New("invalid state")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrSelfReferral        = errors.New("self referral")
	ErrDuplicateReferral   = errors.New("duplicate referral")
	ErrCollisionExhausted  = errors.New("referral code collision retries exhausted")
	ErrNotFound            = errors.New("not found")
)
