package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/payments/transaction"
	"github.com/xraph/payments/types"
)

// flakyFile fails Sync on demand.
type flakyFile struct {
	*os.File
	failSync bool
}

func (f *flakyFile) Sync() error {
	if f.failSync {
		return errors.New("disk gone")
	}
	return f.File.Sync()
}

func TestFailedSyncDropsRecord(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shard.wal")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, transaction.Deposit(1, 1, types.MustAmount("1"))))

	info, err := os.Stat(path)
	require.NoError(t, err)
	synced := info.Size()

	flaky := &flakyFile{File: s.f.(*os.File), failSync: true}
	s.f = flaky

	err = s.Append(ctx, transaction.Deposit(1, 2, types.MustAmount("2")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, synced, info.Size())
	assert.Equal(t, uint64(1), s.Len())

	flaky.failSync = false
	err = s.Append(ctx, transaction.Deposit(1, 3, types.MustAmount("3")))
	assert.ErrorContains(t, err, "unusable after earlier failure")
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(1), got[0].TxID)

	require.NoError(t, reopened.Append(ctx, transaction.Deposit(1, 2, types.MustAmount("2"))))
	got, err = reopened.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint32(2), got[1].TxID)
}

func TestOpenTracksCommittedSize(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shard.wal")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, transaction.Dispute(1, 1)))
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, info.Size(), reopened.size)
}
