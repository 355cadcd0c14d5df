// Package audithook bridges payments engine events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any audit backend. Callers inject a RecorderFunc adapter at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/xraph/payments/account"
	"github.com/xraph/payments/engine"
	"github.com/xraph/payments/id"
	"github.com/xraph/payments/plugin"
	"github.com/xraph/payments/transaction"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnInit                = (*Extension)(nil)
	_ plugin.OnShutdown            = (*Extension)(nil)
	_ plugin.OnRecovered           = (*Extension)(nil)
	_ plugin.OnTransactionApplied  = (*Extension)(nil)
	_ plugin.OnTransactionRejected = (*Extension)(nil)
	_ plugin.OnAccountLocked       = (*Extension)(nil)
	_ plugin.OnDurabilityFailure   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail entry.
type AuditEvent struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges engine events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
	engineID atomic.Value // string
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Engine lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit implements plugin.OnInit.
func (e *Extension) OnInit(ctx context.Context, info plugin.EngineInfo) error {
	e.engineID.Store(info.ID)
	return e.record(ctx, ActionEngineStarted, SeverityInfo, OutcomeSuccess,
		ResourceEngine, info.ID, CategoryLifecycle, nil,
		"shards", info.Shards,
	)
}

// OnShutdown implements plugin.OnShutdown.
func (e *Extension) OnShutdown(ctx context.Context) error {
	return e.record(ctx, ActionEngineStopped, SeverityInfo, OutcomeSuccess,
		ResourceEngine, e.EngineID(), CategoryLifecycle, nil,
	)
}

// OnRecovered implements plugin.OnRecovered.
func (e *Extension) OnRecovered(ctx context.Context, shard, replayed int) error {
	return e.record(ctx, ActionShardRecovered, SeverityInfo, OutcomeSuccess,
		ResourceShard, strconv.Itoa(shard), CategoryLifecycle, nil,
		"replayed", replayed,
	)
}

// EngineID returns the id of the engine this extension was initialized by.
func (e *Extension) EngineID() string {
	v, _ := e.engineID.Load().(string)
	return v
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnTransactionApplied implements plugin.OnTransactionApplied.
func (e *Extension) OnTransactionApplied(ctx context.Context, tx transaction.Transaction, acct account.Account) error {
	action, category := appliedAction(tx.Type)
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, txResourceID(tx), category, nil,
		txPairs(tx,
			"available", acct.Available.String(),
			"held", acct.Held.String(),
		)...,
	)
}

// OnTransactionRejected implements plugin.OnTransactionRejected.
func (e *Extension) OnTransactionRejected(ctx context.Context, tx transaction.Transaction, reason error) error {
	return e.record(ctx, ActionTransactionRejected, SeverityWarning, OutcomeFailure,
		ResourceTransaction, txResourceID(tx), CategoryFunds, reason,
		txPairs(tx, "code", engine.RejectionCode(reason))...,
	)
}

// OnAccountLocked implements plugin.OnAccountLocked.
func (e *Extension) OnAccountLocked(ctx context.Context, acct account.Account) error {
	return e.record(ctx, ActionAccountLocked, SeverityCritical, OutcomeSuccess,
		ResourceAccount, strconv.Itoa(int(acct.ClientID)), CategorySecurity, nil,
		"client", acct.ClientID,
		"available", acct.Available.String(),
		"held", acct.Held.String(),
	)
}

// OnDurabilityFailure implements plugin.OnDurabilityFailure.
func (e *Extension) OnDurabilityFailure(ctx context.Context, tx transaction.Transaction, err error) error {
	return e.record(ctx, ActionDurabilityFailed, SeverityError, OutcomeFailure,
		ResourceTransaction, txResourceID(tx), CategoryFunds, err,
		txPairs(tx)...,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func appliedAction(t transaction.Type) (action, category string) {
	switch t {
	case transaction.TypeWithdrawal:
		return ActionWithdrawal, CategoryFunds
	case transaction.TypeDispute:
		return ActionDisputeOpened, CategoryDispute
	case transaction.TypeResolve:
		return ActionDisputeResolved, CategoryDispute
	case transaction.TypeChargeback:
		return ActionChargeback, CategoryDispute
	default:
		return ActionDeposit, CategoryFunds
	}
}

func txResourceID(tx transaction.Transaction) string {
	return strconv.FormatUint(uint64(tx.TxID), 10)
}

func txPairs(tx transaction.Transaction, extra ...any) []any {
	pairs := []any{
		"type", string(tx.Type),
		"client", tx.Client,
		"tx", tx.TxID,
	}
	if tx.Amount != nil {
		pairs = append(pairs, "amount", tx.Amount.String())
	}
	return append(pairs, extra...)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewEventID().String(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
