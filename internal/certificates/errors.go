package certificates

import (
	"errors"
	"fmt"
)

// Caller-facing failures (4xx).
var (
	// ErrNotFound means no certificate matches the exact number. The public
	// verify endpoint does no fuzzy matching.
	ErrNotFound = errors.New("certificate not found")
	// ErrNotEligible means the class has not concluded yet.
	ErrNotEligible = errors.New("class has not concluded")
	// ErrSignatoryMissing means the template resolves to zero signatories; a
	// certificate without a signature block is not valid output.
	ErrSignatoryMissing = errors.New("no signatory configured for template")
	// ErrInvalidTransition means the requested status change is not allowed.
	ErrInvalidTransition = errors.New("status transition not allowed")
)

// Operational failures (5xx).
var (
	// ErrNumberExhausted means number generation kept colliding past the
	// retry cap.
	ErrNumberExhausted = errors.New("certificate number generation exhausted")
)

// Repository arbitration signals, consumed inside the issuance loop.
var (
	// errNumberTaken: the candidate number collided; regenerate.
	errNumberTaken = errors.New("certificate number already taken")
	// errAlreadyIssued: another request won the race for this recipient
	// tuple; re-read instead of failing.
	errAlreadyIssued = errors.New("certificate already issued for recipient")
)

// StorageError wraps a persistence or object-storage failure with the stage
// it occurred in, for server-side logging.
type StorageError struct {
	Stage string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure at %s: %v", e.Stage, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
