// Package engine contains the single-threaded ledger state machine and its
// write-ahead durable wrapper.
//
// Neither type is safe for concurrent use. The root payments package puts
// each instance behind a shard lock.
package engine

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/xraph/payments/account"
	"github.com/xraph/payments/transaction"
)

// Result is the outcome of processing one transaction.
type Result struct {
	Tx      transaction.Transaction
	Applied bool

	// Err is the rejection reason when Applied is false.
	Err error

	// Account is the client's account after processing, or nil when the
	// client has no account.
	Account *account.Account
}

// Locked reports whether this result locked the client's account.
func (r Result) Locked() bool {
	return r.Applied && r.Tx.Type == transaction.TypeChargeback
}

// Ledger enforces the business rules over accounts and disputable deposits.
//
// Deposit and withdrawal transaction ids are unique across all clients, not
// per client: an id seen once for any client is rejected for every client.
type Ledger struct {
	accounts  map[uint16]*account.Account
	stored    map[uint32]*transaction.Stored
	processed map[uint32]struct{}
	logger    *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for rejection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// NewLedger returns an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		accounts:  make(map[uint16]*account.Account),
		stored:    make(map[uint32]*transaction.Stored),
		processed: make(map[uint32]struct{}),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Process applies tx. Business rule violations never mutate state; they
// come back as a Result with Applied false and the reason in Err.
func (l *Ledger) Process(tx transaction.Transaction) Result {
	res := l.process(tx)
	res.Tx = tx
	if acct, ok := l.accounts[tx.Client]; ok {
		snap := acct.Snapshot()
		res.Account = &snap
	}

	if !res.Applied {
		l.logger.Debug("transaction rejected",
			"type", tx.Type,
			"client", tx.Client,
			"tx", tx.TxID,
			"reason", res.Err,
		)
	}
	return res
}

func (l *Ledger) process(tx transaction.Transaction) Result {
	if !tx.Type.Valid() {
		return reject(ErrUnknownType)
	}

	if tx.Type.Monetary() {
		if _, seen := l.processed[tx.TxID]; seen {
			return reject(ErrDuplicateTransaction)
		}
		if tx.Amount == nil {
			return reject(ErrMissingAmount)
		}
		if !tx.Amount.IsPositive() {
			return reject(ErrNonPositiveAmount)
		}
	}

	switch tx.Type {
	case transaction.TypeDeposit:
		res := l.deposit(tx.Client, tx.TxID, *tx.Amount)
		l.processed[tx.TxID] = struct{}{}
		return res
	case transaction.TypeWithdrawal:
		res := l.withdraw(tx.Client, *tx.Amount)
		l.processed[tx.TxID] = struct{}{}
		return res
	case transaction.TypeDispute:
		return l.dispute(tx.Client, tx.TxID)
	case transaction.TypeResolve:
		return l.resolve(tx.Client, tx.TxID)
	default:
		return l.chargeback(tx.Client, tx.TxID)
	}
}

func (l *Ledger) deposit(client uint16, txID uint32, amount decimal.Decimal) Result {
	acct, ok := l.accounts[client]
	if !ok {
		acct = account.New(client)
		l.accounts[client] = acct
	}

	if !acct.Deposit(amount) {
		return reject(ErrAccountLocked)
	}

	l.stored[txID] = &transaction.Stored{
		TxID:     txID,
		ClientID: client,
		Amount:   amount,
	}
	return applied()
}

func (l *Ledger) withdraw(client uint16, amount decimal.Decimal) Result {
	acct, ok := l.accounts[client]
	if !ok {
		return reject(ErrAccountNotFound)
	}

	if !acct.Withdraw(amount) {
		if acct.Locked {
			return reject(ErrAccountLocked)
		}
		return reject(ErrInsufficientFunds)
	}
	return applied()
}

func (l *Ledger) dispute(client uint16, txID uint32) Result {
	st, err := l.owned(client, txID)
	if err != nil {
		return reject(err)
	}
	if st.Disputed {
		return reject(ErrAlreadyDisputed)
	}

	acct, ok := l.accounts[client]
	if !ok {
		return reject(ErrAccountNotFound)
	}
	if !acct.Hold(st.Amount) {
		return reject(ErrInsufficientFunds)
	}

	st.Disputed = true
	return applied()
}

func (l *Ledger) resolve(client uint16, txID uint32) Result {
	st, err := l.owned(client, txID)
	if err != nil {
		return reject(err)
	}
	if !st.Disputed {
		return reject(ErrNotDisputed)
	}

	acct, ok := l.accounts[client]
	if !ok {
		return reject(ErrAccountNotFound)
	}
	if !acct.Release(st.Amount) {
		return reject(ErrInsufficientHeld)
	}

	st.Disputed = false
	return applied()
}

// chargeback settles the dispute by removing the held funds. The stored
// record goes back to undisputed and the account is locked.
func (l *Ledger) chargeback(client uint16, txID uint32) Result {
	st, err := l.owned(client, txID)
	if err != nil {
		return reject(err)
	}
	if !st.Disputed {
		return reject(ErrNotDisputed)
	}

	acct, ok := l.accounts[client]
	if !ok {
		return reject(ErrAccountNotFound)
	}
	if !acct.Chargeback(st.Amount) {
		return reject(ErrInsufficientHeld)
	}

	st.Disputed = false
	return applied()
}

// owned looks up a stored deposit and checks it belongs to client.
func (l *Ledger) owned(client uint16, txID uint32) (*transaction.Stored, error) {
	st, ok := l.stored[txID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	if st.ClientID != client {
		return nil, ErrClientMismatch
	}
	return st, nil
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// Account returns a copy of the client's account.
func (l *Ledger) Account(client uint16) (account.Account, bool) {
	acct, ok := l.accounts[client]
	if !ok {
		return account.Account{}, false
	}
	return acct.Snapshot(), true
}

// Accounts returns copies of all accounts in no particular order.
func (l *Ledger) Accounts() []account.Account {
	out := make([]account.Account, 0, len(l.accounts))
	for _, acct := range l.accounts {
		out = append(out, acct.Snapshot())
	}
	return out
}

// Stored returns a copy of the stored deposit with the given id.
func (l *Ledger) Stored(txID uint32) (transaction.Stored, bool) {
	st, ok := l.stored[txID]
	if !ok {
		return transaction.Stored{}, false
	}
	return *st, true
}

// Seen reports whether a deposit or withdrawal with this id was processed.
func (l *Ledger) Seen(txID uint32) bool {
	_, ok := l.processed[txID]
	return ok
}

// Len returns the number of accounts.
func (l *Ledger) Len() int {
	return len(l.accounts)
}

func applied() Result { return Result{Applied: true} }

func reject(err error) Result { return Result{Err: err} }
