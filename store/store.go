// Package store defines the durability contract for the payments engine.
//
// A Store is a write-ahead log: the engine appends every transaction before
// applying it, and replays the log in append order to rebuild state after a
// crash. Implementations live in sub-packages (noop, memory, file, sqlite,
// postgres, mongo).
package store

import (
	"context"
	"fmt"

	"github.com/xraph/payments/transaction"
)

// Store is the durability backend behind one shard.
//
// Once Append returns nil the transaction must survive a crash and appear
// in every later Replay, in append order. An Append error means the record
// was not durably written and the caller must not apply it.
type Store interface {
	// Append durably records tx.
	Append(ctx context.Context, tx transaction.Transaction) error

	// Replay returns every successfully appended transaction in append order.
	Replay(ctx context.Context) ([]transaction.Transaction, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Factory builds the store backing the given shard index.
type Factory func(shard int) (Store, error)

// ShardStream returns the log partition name used for a shard by the
// backends that share one database across shards.
func ShardStream(shard int) string {
	return fmt.Sprintf("shard-%04d", shard)
}
