package engine

import "errors"

// Business rejection reasons. A rejected transaction carries one of these in
// Result.Err; none of them is ever returned as a Go error from Process.
var (
	ErrUnknownType          = errors.New("payments: unknown transaction type")
	ErrDuplicateTransaction = errors.New("payments: duplicate transaction id")
	ErrMissingAmount        = errors.New("payments: amount is required")
	ErrNonPositiveAmount    = errors.New("payments: amount must be positive")
	ErrAccountNotFound      = errors.New("payments: account not found")
	ErrAccountLocked        = errors.New("payments: account is locked")
	ErrInsufficientFunds    = errors.New("payments: insufficient available funds")
	ErrInsufficientHeld     = errors.New("payments: insufficient held funds")
	ErrTransactionNotFound  = errors.New("payments: referenced transaction not found")
	ErrClientMismatch       = errors.New("payments: transaction belongs to another client")
	ErrAlreadyDisputed      = errors.New("payments: transaction already disputed")
	ErrNotDisputed          = errors.New("payments: transaction is not disputed")
)

// System errors. These abort the transaction (or the recovery) and are
// returned to the caller.
var (
	ErrAppendFailed = errors.New("payments: durability append failed")
	ErrReplayFailed = errors.New("payments: durability replay failed")
)

var rejections = []error{
	ErrUnknownType,
	ErrDuplicateTransaction,
	ErrMissingAmount,
	ErrNonPositiveAmount,
	ErrAccountNotFound,
	ErrAccountLocked,
	ErrInsufficientFunds,
	ErrInsufficientHeld,
	ErrTransactionNotFound,
	ErrClientMismatch,
	ErrAlreadyDisputed,
	ErrNotDisputed,
}

// IsRejection reports whether err is a business rejection reason.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

var rejectionCodes = map[error]string{
	ErrUnknownType:          "unknown_type",
	ErrDuplicateTransaction: "duplicate_transaction",
	ErrMissingAmount:        "missing_amount",
	ErrNonPositiveAmount:    "non_positive_amount",
	ErrAccountNotFound:      "account_not_found",
	ErrAccountLocked:        "account_locked",
	ErrInsufficientFunds:    "insufficient_funds",
	ErrInsufficientHeld:     "insufficient_held",
	ErrTransactionNotFound:  "transaction_not_found",
	ErrClientMismatch:       "client_mismatch",
	ErrAlreadyDisputed:      "already_disputed",
	ErrNotDisputed:          "not_disputed",
}

// RejectionCode returns a stable snake_case name for a rejection reason,
// or "other" when err is not one.
func RejectionCode(err error) string {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return rejectionCodes[r]
		}
	}
	return "other"
}
