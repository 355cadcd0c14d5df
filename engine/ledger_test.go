package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/payments/engine"
	"github.com/xraph/payments/transaction"
	"github.com/xraph/payments/types"
)

func amt(s string) decimal.Decimal { return types.MustAmount(s) }

func requireBalance(t *testing.T, l *engine.Ledger, client uint16, available, held string, locked bool) {
	t.Helper()
	a, ok := l.Account(client)
	require.True(t, ok, "account %d missing", client)
	assert.True(t, a.Available.Equal(amt(available)), "available: got %s want %s", a.Available, available)
	assert.True(t, a.Held.Equal(amt(held)), "held: got %s want %s", a.Held, held)
	assert.Equal(t, locked, a.Locked)
}

func TestLedgerRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup []transaction.Transaction
		tx    transaction.Transaction
		want  error
	}{
		{
			name: "unknown type",
			tx:   transaction.Transaction{Type: "refund", Client: 1, TxID: 1},
			want: engine.ErrUnknownType,
		},
		{
			name: "deposit without amount",
			tx:   transaction.Transaction{Type: transaction.TypeDeposit, Client: 1, TxID: 1},
			want: engine.ErrMissingAmount,
		},
		{
			name: "zero deposit",
			tx:   transaction.Deposit(1, 1, decimal.Zero),
			want: engine.ErrNonPositiveAmount,
		},
		{
			name: "negative withdrawal",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
			},
			tx:   transaction.Withdrawal(1, 2, amt("-1")),
			want: engine.ErrNonPositiveAmount,
		},
		{
			name: "duplicate deposit",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
			},
			tx:   transaction.Deposit(1, 1, amt("5")),
			want: engine.ErrDuplicateTransaction,
		},
		{
			name: "withdrawal reusing deposit id",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
			},
			tx:   transaction.Withdrawal(1, 1, amt("1")),
			want: engine.ErrDuplicateTransaction,
		},
		{
			name: "withdrawal without account",
			tx:   transaction.Withdrawal(1, 1, amt("1")),
			want: engine.ErrAccountNotFound,
		},
		{
			name: "overdraw",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
			},
			tx:   transaction.Withdrawal(1, 2, amt("5.0001")),
			want: engine.ErrInsufficientFunds,
		},
		{
			name: "dispute unknown tx",
			tx:   transaction.Dispute(1, 99),
			want: engine.ErrTransactionNotFound,
		},
		{
			name: "dispute a withdrawal",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
				transaction.Withdrawal(1, 2, amt("1")),
			},
			tx:   transaction.Dispute(1, 2),
			want: engine.ErrTransactionNotFound,
		},
		{
			name: "dispute other client's deposit",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
			},
			tx:   transaction.Dispute(2, 1),
			want: engine.ErrClientMismatch,
		},
		{
			name: "dispute twice",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
				transaction.Dispute(1, 1),
			},
			tx:   transaction.Dispute(1, 1),
			want: engine.ErrAlreadyDisputed,
		},
		{
			name: "resolve undisputed",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
			},
			tx:   transaction.Resolve(1, 1),
			want: engine.ErrNotDisputed,
		},
		{
			name: "chargeback undisputed",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
			},
			tx:   transaction.Chargeback(1, 1),
			want: engine.ErrNotDisputed,
		},
		{
			name: "dispute after funds left",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
				transaction.Withdrawal(1, 2, amt("4")),
			},
			tx:   transaction.Dispute(1, 1),
			want: engine.ErrInsufficientFunds,
		},
		{
			name: "deposit on locked account",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
				transaction.Dispute(1, 1),
				transaction.Chargeback(1, 1),
			},
			tx:   transaction.Deposit(1, 2, amt("1")),
			want: engine.ErrAccountLocked,
		},
		{
			name: "withdrawal on locked account",
			setup: []transaction.Transaction{
				transaction.Deposit(1, 1, amt("5")),
				transaction.Deposit(1, 2, amt("5")),
				transaction.Dispute(1, 1),
				transaction.Chargeback(1, 1),
			},
			tx:   transaction.Withdrawal(1, 3, amt("1")),
			want: engine.ErrAccountLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := engine.NewLedger()
			for _, tx := range tt.setup {
				require.True(t, l.Process(tx).Applied, "setup %s", tx)
			}
			before := l.Accounts()

			res := l.Process(tt.tx)
			assert.False(t, res.Applied)
			assert.ErrorIs(t, res.Err, tt.want)
			assert.True(t, engine.IsRejection(res.Err))
			assert.Equal(t, tt.tx, res.Tx)
			assert.ElementsMatch(t, before, l.Accounts())
		})
	}
}

func TestLedgerDepositCreatesAccount(t *testing.T) {
	l := engine.NewLedger()
	res := l.Process(transaction.Deposit(7, 1, amt("1.2345")))

	require.True(t, res.Applied)
	require.NotNil(t, res.Account)
	assert.Equal(t, uint16(7), res.Account.ClientID)
	requireBalance(t, l, 7, "1.2345", "0", false)
	assert.True(t, l.Seen(1))
	assert.Equal(t, 1, l.Len())

	st, ok := l.Stored(1)
	require.True(t, ok)
	assert.Equal(t, uint16(7), st.ClientID)
	assert.False(t, st.Disputed)
}

func TestLedgerFailedMonetaryIDsAreConsumed(t *testing.T) {
	l := engine.NewLedger()

	res := l.Process(transaction.Withdrawal(1, 5, amt("1")))
	require.ErrorIs(t, res.Err, engine.ErrAccountNotFound)
	assert.True(t, l.Seen(5))

	res = l.Process(transaction.Deposit(1, 5, amt("1")))
	assert.ErrorIs(t, res.Err, engine.ErrDuplicateTransaction)
	_, ok := l.Account(1)
	assert.False(t, ok)
}

func TestLedgerInvalidAmountDoesNotConsumeID(t *testing.T) {
	l := engine.NewLedger()

	l.Process(transaction.Deposit(1, 5, decimal.Zero))
	assert.False(t, l.Seen(5))

	assert.True(t, l.Process(transaction.Deposit(1, 5, amt("2"))).Applied)
}

func TestLedgerDisputeLifecycle(t *testing.T) {
	l := engine.NewLedger()
	l.Process(transaction.Deposit(1, 1, amt("10")))
	l.Process(transaction.Deposit(1, 2, amt("2.5")))

	require.True(t, l.Process(transaction.Dispute(1, 1)).Applied)
	requireBalance(t, l, 1, "2.5", "10", false)
	st, _ := l.Stored(1)
	assert.True(t, st.Disputed)

	require.True(t, l.Process(transaction.Resolve(1, 1)).Applied)
	requireBalance(t, l, 1, "12.5", "0", false)

	require.True(t, l.Process(transaction.Dispute(1, 1)).Applied)
	res := l.Process(transaction.Chargeback(1, 1))
	require.True(t, res.Applied)
	assert.True(t, res.Locked())
	requireBalance(t, l, 1, "2.5", "0", true)

	st, _ = l.Stored(1)
	assert.False(t, st.Disputed)

	// an open dispute on a locked account can still be settled
	require.True(t, l.Process(transaction.Dispute(1, 2)).Applied)
	require.True(t, l.Process(transaction.Resolve(1, 2)).Applied)
	requireBalance(t, l, 1, "2.5", "0", true)
}

func TestLedgerAccountsAreCopies(t *testing.T) {
	l := engine.NewLedger()
	l.Process(transaction.Deposit(1, 1, amt("3")))

	accts := l.Accounts()
	require.Len(t, accts, 1)
	accts[0].Available = amt("1000")

	requireBalance(t, l, 1, "3", "0", false)
}

func TestResultLocked(t *testing.T) {
	assert.False(t, engine.Result{Tx: transaction.Chargeback(1, 1)}.Locked())
	assert.False(t, engine.Result{Tx: transaction.Dispute(1, 1), Applied: true}.Locked())
	assert.True(t, engine.Result{Tx: transaction.Chargeback(1, 1), Applied: true}.Locked())
}

func TestRejectionCode(t *testing.T) {
	assert.Equal(t, "insufficient_funds", engine.RejectionCode(engine.ErrInsufficientFunds))
	assert.Equal(t, "client_mismatch", engine.RejectionCode(engine.ErrClientMismatch))
	assert.Equal(t, "other", engine.RejectionCode(engine.ErrAppendFailed))
	assert.Equal(t, "other", engine.RejectionCode(nil))
}
