package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/payments/id"
	"github.com/xraph/payments/store"
	"github.com/xraph/payments/transaction"
	"github.com/xraph/payments/types"
)

func TestWALModelRoundTrip(t *testing.T) {
	tx := transaction.Withdrawal(3, 17, types.MustAmount("0.0001"))
	m := toWALModel(store.ShardStream(2), 5, tx)

	assert.Equal(t, "shard-0002", m.Stream)
	assert.Equal(t, int64(5), m.Seq)
	assert.Equal(t, "withdrawal", m.Type)
	require.NotNil(t, m.Amount)
	assert.Equal(t, "0.0001", *m.Amount)
	assert.False(t, m.RecordedAt.IsZero())

	assert.Equal(t, id.PrefixEntry, m.ID.Prefix())

	got, err := fromWALModel(m)
	require.NoError(t, err)
	assert.Equal(t, tx.Type, got.Type)
	assert.Equal(t, tx.Client, got.Client)
	assert.Equal(t, tx.TxID, got.TxID)
	assert.True(t, tx.Amount.Equal(*got.Amount))
}

func TestWALModelWithoutAmount(t *testing.T) {
	m := toWALModel(DefaultStream, 1, transaction.Dispute(1, 9))
	assert.Nil(t, m.Amount)

	got, err := fromWALModel(m)
	require.NoError(t, err)
	assert.Equal(t, transaction.Dispute(1, 9), got)
}

func TestWALModelCorruptClient(t *testing.T) {
	m := toWALModel(DefaultStream, 1, transaction.Dispute(1, 9))
	m.Client = -4

	_, err := fromWALModel(m)
	assert.ErrorIs(t, err, store.ErrCorruptRecord)
}

func TestWALModelForeignEntryID(t *testing.T) {
	m := toWALModel(DefaultStream, 1, transaction.Dispute(1, 9))
	m.ID = id.NewEventID()

	_, err := fromWALModel(m)
	assert.ErrorIs(t, err, store.ErrCorruptRecord)

	m.ID = id.Nil
	_, err = fromWALModel(m)
	assert.ErrorIs(t, err, store.ErrCorruptRecord)
}
