// Package plugin provides an extensible plugin system for the payments engine.
// Plugins hook into engine lifecycle and transaction outcome events.
//
// Hooks run after the shard lock has been released, so a slow plugin delays
// the caller of Process but never blocks other writers on the same shard.
package plugin

import (
	"context"

	"github.com/xraph/payments/account"
	"github.com/xraph/payments/transaction"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// EngineInfo describes the engine instance passed to OnInit.
type EngineInfo struct {
	ID     string
	Shards int
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, info EngineInfo) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// OnRecovered is called once per shard after its log has been replayed.
type OnRecovered interface {
	Plugin
	OnRecovered(ctx context.Context, shard, replayed int) error
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnTransactionApplied is called after a transaction changed ledger state.
// acct is the client's account after the change.
type OnTransactionApplied interface {
	Plugin
	OnTransactionApplied(ctx context.Context, tx transaction.Transaction, acct account.Account) error
}

// OnTransactionRejected is called when a transaction violated a business rule.
type OnTransactionRejected interface {
	Plugin
	OnTransactionRejected(ctx context.Context, tx transaction.Transaction, reason error) error
}

// OnAccountLocked is called after a chargeback locked an account.
type OnAccountLocked interface {
	Plugin
	OnAccountLocked(ctx context.Context, acct account.Account) error
}

// OnDurabilityFailure is called when a transaction could not be appended to
// the log and was therefore not applied.
type OnDurabilityFailure interface {
	Plugin
	OnDurabilityFailure(ctx context.Context, tx transaction.Transaction, err error) error
}
