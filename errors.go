package payments

import (
	"errors"
	"fmt"

	"github.com/xraph/payments/engine"
)

// Sentinel errors for engine and store failures.
var (
	ErrInvalidShardCount = errors.New("payments: shard count must be positive")
	ErrAlreadyStarted    = errors.New("payments: engine already started")
	ErrNotStarted        = errors.New("payments: engine not started")

	// Store errors
	ErrStoreClosed = errors.New("payments: store is closed")
)

// Business rejection reasons, re-exported from the engine package.
// They appear in Result.Err, never as an error returned from Process.
var (
	ErrUnknownType          = engine.ErrUnknownType
	ErrDuplicateTransaction = engine.ErrDuplicateTransaction
	ErrMissingAmount        = engine.ErrMissingAmount
	ErrNonPositiveAmount    = engine.ErrNonPositiveAmount
	ErrAccountNotFound      = engine.ErrAccountNotFound
	ErrAccountLocked        = engine.ErrAccountLocked
	ErrInsufficientFunds    = engine.ErrInsufficientFunds
	ErrInsufficientHeld     = engine.ErrInsufficientHeld
	ErrTransactionNotFound  = engine.ErrTransactionNotFound
	ErrClientMismatch       = engine.ErrClientMismatch
	ErrAlreadyDisputed      = engine.ErrAlreadyDisputed
	ErrNotDisputed          = engine.ErrNotDisputed
)

// Durability errors, re-exported from the engine package.
var (
	ErrAppendFailed = engine.ErrAppendFailed
	ErrReplayFailed = engine.ErrReplayFailed
)

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "payments: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("payments: %d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsRejection returns true if err is a business rule rejection.
func IsRejection(err error) bool {
	return engine.IsRejection(err)
}

// RejectionCode returns a stable snake_case name for a rejection reason,
// or "other" when err is not one.
func RejectionCode(err error) string {
	return engine.RejectionCode(err)
}

// IsDurabilityFailure returns true if err came from the durability backend.
func IsDurabilityFailure(err error) bool {
	return errors.Is(err, ErrAppendFailed) ||
		errors.Is(err, ErrReplayFailed) ||
		errors.Is(err, ErrStoreClosed)
}
