package noop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/payments/store/noop"
	"github.com/xraph/payments/transaction"
	"github.com/xraph/payments/types"
)

func TestAppendCountsAndReplaysNothing(t *testing.T) {
	ctx := context.Background()
	s := noop.New()

	require.NoError(t, s.Append(ctx, transaction.Deposit(1, 1, types.MustAmount("1"))))
	require.NoError(t, s.Append(ctx, transaction.Dispute(1, 1)))
	assert.Equal(t, uint64(2), s.Count())

	txs, err := s.Replay(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)

	assert.NoError(t, s.Migrate(ctx))
	assert.NoError(t, s.Ping(ctx))
	assert.NoError(t, s.Close())
}

func TestFactoryGivesIndependentStores(t *testing.T) {
	f := noop.Factory()
	a, err := f(0)
	require.NoError(t, err)
	b, err := f(1)
	require.NoError(t, err)

	require.NoError(t, a.Append(context.Background(), transaction.Dispute(1, 1)))
	assert.Equal(t, uint64(1), a.(*noop.Store).Count())
	assert.Equal(t, uint64(0), b.(*noop.Store).Count())
}
