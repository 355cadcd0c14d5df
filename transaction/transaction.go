// Package transaction defines the input movement records fed to the ledger
// and the stored form of a disputable deposit.
package transaction

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xraph/payments/types"
)

// Type is the kind of movement a Transaction describes.
type Type string

// Transaction types, rendered with their lowercase input names.
const (
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
	TypeDispute    Type = "dispute"
	TypeResolve    Type = "resolve"
	TypeChargeback Type = "chargeback"
)

// Types lists every transaction type.
var Types = []Type{TypeDeposit, TypeWithdrawal, TypeDispute, TypeResolve, TypeChargeback}

// ParseType parses a lowercase type name. Surrounding whitespace is ignored.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", types.ValidationError{Field: "type", Message: fmt.Sprintf("unknown transaction type %q", s)}
	}
	return t, nil
}

// Valid reports whether t is one of the five known types.
func (t Type) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeDispute, TypeResolve, TypeChargeback:
		return true
	}
	return false
}

// Monetary reports whether the type moves funds and therefore carries an amount
// and a globally unique transaction id.
func (t Type) Monetary() bool {
	return t == TypeDeposit || t == TypeWithdrawal
}

func (t Type) String() string { return string(t) }

// Transaction is a single input record. Amount is nil when absent; it is
// required for deposits and withdrawals and ignored for the other types.
type Transaction struct {
	Type   Type             `json:"type"`
	Client uint16           `json:"client"`
	TxID   uint32           `json:"tx"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// Deposit builds a deposit record.
func Deposit(client uint16, tx uint32, amount decimal.Decimal) Transaction {
	return Transaction{Type: TypeDeposit, Client: client, TxID: tx, Amount: types.Ptr(amount)}
}

// Withdrawal builds a withdrawal record.
func Withdrawal(client uint16, tx uint32, amount decimal.Decimal) Transaction {
	return Transaction{Type: TypeWithdrawal, Client: client, TxID: tx, Amount: types.Ptr(amount)}
}

// Dispute builds a dispute record referencing a prior deposit.
func Dispute(client uint16, tx uint32) Transaction {
	return Transaction{Type: TypeDispute, Client: client, TxID: tx}
}

// Resolve builds a resolve record referencing a disputed deposit.
func Resolve(client uint16, tx uint32) Transaction {
	return Transaction{Type: TypeResolve, Client: client, TxID: tx}
}

// Chargeback builds a chargeback record referencing a disputed deposit.
func Chargeback(client uint16, tx uint32) Transaction {
	return Transaction{Type: TypeChargeback, Client: client, TxID: tx}
}

// Validate checks structural well-formedness only: a known type and, for
// monetary types, an amount within the input scale. Business rules such as
// positivity and duplicates are the ledger's concern.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return types.ValidationError{Field: "type", Message: fmt.Sprintf("unknown transaction type %q", t.Type)}
	}
	if t.Amount != nil && !t.Amount.Equal(t.Amount.Truncate(types.MaxScale)) {
		return types.ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("%s has more than %d fractional digits", t.Amount, types.MaxScale),
		}
	}
	return nil
}

func (t Transaction) String() string {
	if t.Amount == nil {
		return fmt.Sprintf("%s client=%d tx=%d", t.Type, t.Client, t.TxID)
	}
	return fmt.Sprintf("%s client=%d tx=%d amount=%s", t.Type, t.Client, t.TxID, t.Amount)
}

// Stored is a successfully applied deposit kept for later dispute handling.
type Stored struct {
	TxID     uint32
	ClientID uint16
	Amount   decimal.Decimal
	Disputed bool
}
