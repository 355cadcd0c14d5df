// Package payments provides a sharded, write-ahead-logged payments ledger
// for Go applications.
//
// The engine consumes a stream of movement records (deposit, withdrawal,
// dispute, resolve, chargeback) keyed by client and transaction id and
// maintains a per-client balance of available funds, held funds and a
// locked flag. It provides:
//
//   - A single-threaded ledger state machine enforcing every business rule
//   - Write-ahead durability through a pluggable store (file, SQLite,
//     PostgreSQL, MongoDB, in-memory or no-op)
//   - Crash recovery by replaying the log
//   - Client-sharded concurrency with one RWMutex per shard
//   - Plugin hooks for metrics and audit trails
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/payments"
//	    "github.com/xraph/payments/store/file"
//	)
//
//	eng, err := payments.New(
//	    payments.WithShards(8),
//	    payments.WithStoreFactory(file.Factory("/var/lib/payments")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Replay the logs and start
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
//	res, err := eng.Process(ctx, payments.Deposit(1, 1, payments.MustAmount("10.5")))
//	if err != nil {
//	    // the store failed; nothing was applied
//	}
//	if !res.Applied {
//	    // business rule rejection, see res.Err
//	}
//
// # Business rules
//
// Deposit and withdrawal ids are unique across all clients sharing a shard;
// each shard keeps its own set of seen ids. Deposits and withdrawals need a
// strictly positive amount. Only deposits can be
// disputed, and only by the client that made them. A dispute moves the
// deposit amount from available to held; a resolve moves it back; a
// chargeback removes it and locks the account. A locked account refuses
// deposits and withdrawals, but disputes already open on it can still be
// resolved or charged back.
//
// Rejections never mutate state and never stop the engine. They are
// reported in Result.Err and to OnTransactionRejected plugins.
//
// # Consistency
//
// All transactions for one client go to the same shard and are applied in
// the order they acquire that shard's lock. Accounts reads each shard
// independently, so its result is not an atomic cross-shard snapshot.
//
// # Durability
//
// Process refuses transactions with ErrNotStarted until Start has returned.
// Every transaction is appended to its shard's store before it is applied.
// If the append fails, the transaction is not applied and Process returns
// an error wrapping ErrAppendFailed. The noop store (the default) keeps
// nothing and provides no crash recovery.
package payments
