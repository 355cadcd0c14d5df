package mongo

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

	ID         string    `grove:"id,pk"       bson:"_id"`
	Stream     string    `grove:"stream"      bson:"stream"`
	Seq        int64     `grove:"seq"         bson:"seq"`
	Type       string    `grove:"type"        bson:"type"`
	Client     int64     `grove:"client"      bson:"client"`
	TxID       int64     `grove:"tx"          bson:"tx"`
	Amount     *string   `grove:"amount"      bson:"amount,omitempty"`
	RecordedAt time.Time `grove:"recorded_at" bson:"recorded_at"`
}

func toWALModel(stream string, seq int64, tx transaction.Transaction) *walModel {
	return &walModel{
		ID:         id.NewEntryID().String(),
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
	if _, err := id.ParseEntryID(m.ID); err != nil {
		return transaction.Transaction{}, fmt.Errorf("%w: %w", store.ErrCorruptRecord, err)
	}
	return store.DecodeTransaction(m.Type, m.Client, m.TxID, m.Amount)
}
