package payments

import (
	"github.com/xraph/payments/account"
	"github.com/xraph/payments/engine"
	"github.com/xraph/payments/store"
	"github.com/xraph/payments/transaction"
	"github.com/xraph/payments/types"
)

// Re-export common types for convenience so users don't have to import the sub-packages.

// Account is re-exported from the account package.
type Account = account.Account

// Transaction is re-exported from the transaction package.
type Transaction = transaction.Transaction

// TransactionType is re-exported from the transaction package.
type TransactionType = transaction.Type

// Result is re-exported from the engine package.
type Result = engine.Result

// Store is re-exported from the store package.
type Store = store.Store

// StoreFactory is re-exported from the store package.
type StoreFactory = store.Factory

// ValidationError is re-exported from the types package.
type ValidationError = types.ValidationError

// Re-export transaction constructors
var (
	Deposit    = transaction.Deposit
	Withdrawal = transaction.Withdrawal
	Dispute    = transaction.Dispute
	Resolve    = transaction.Resolve
	Chargeback = transaction.Chargeback
	ParseType  = transaction.ParseType
)

// Re-export amount helpers
var (
	ParseAmount = types.ParseAmount
	MustAmount  = types.MustAmount
)
