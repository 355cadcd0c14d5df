package store

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/xraph/payments/transaction"
)

// ErrCorruptRecord is returned by Replay when a persisted record cannot be
// turned back into a transaction.
var ErrCorruptRecord = errors.New("store: corrupt log record")

// EncodeAmount renders an optional amount for a nullable text column.
// The full precision is kept so replay sees exactly what was appended.
func EncodeAmount(amount *decimal.Decimal) *string {
	if amount == nil {
		return nil
	}
	s := amount.String()
	return &s
}

// DecodeTransaction rebuilds a transaction from its persisted columns.
//
// The type is not validated: records are written before the ledger checks
// them, so a log may legitimately hold transactions the ledger rejected.
func DecodeTransaction(typ string, client, txID int64, amount *string) (transaction.Transaction, error) {
	if client < 0 || client > math.MaxUint16 {
		return transaction.Transaction{}, fmt.Errorf("%w: client %d out of range", ErrCorruptRecord, client)
	}
	if txID < 0 || txID > math.MaxUint32 {
		return transaction.Transaction{}, fmt.Errorf("%w: tx %d out of range", ErrCorruptRecord, txID)
	}

	tx := transaction.Transaction{
		Type:   transaction.Type(typ),
		Client: uint16(client),
		TxID:   uint32(txID),
	}
	if amount != nil {
		d, err := decimal.NewFromString(*amount)
		if err != nil {
			return transaction.Transaction{}, fmt.Errorf("%w: amount %q: %w", ErrCorruptRecord, *amount, err)
		}
		tx.Amount = &d
	}
	return tx, nil
}
