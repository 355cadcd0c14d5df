package sqlite

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/payments/id"
	"github.com/xraph/payments/store"
	"github.com/xraph/payments/transaction"
)

type walModel struct {
	grove.BaseModel `grove:"table:payments_wal"`

	ID         id.ID     `grove:"id,pk"`
	Stream     string    `grove:"stream"`
	Seq        int64     `grove:"seq"`
	Type       string    `grove:"type"`
	Client     int64     `grove:"client"`
	TxID       int64     `grove:"tx"`
	Amount     *string   `grove:"amount"`
	RecordedAt time.Time `grove:"recorded_at"`
}

func toWALModel(stream string, seq int64, tx transaction.Transaction) *walModel {
	return &walModel{
		ID:         id.NewEntryID(),
		Stream:     stream,
		Seq:        seq,
		Type:       string(tx.Type),
		Client:     int64(tx.Client),
		TxID:       int64(tx.TxID),
		Amount:     store.EncodeAmount(tx.Amount),
		RecordedAt: now(),
	}
}

func fromWALModel(m *walModel) (transaction.Transaction, error) {
	if m.ID.Prefix() != id.PrefixEntry {
		return transaction.Transaction{}, fmt.Errorf("%w: entry id %q", store.ErrCorruptRecord, m.ID.String())
	}
	return store.DecodeTransaction(m.Type, m.Client, m.TxID, m.Amount)
}
