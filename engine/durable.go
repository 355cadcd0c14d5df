package engine

import (
	"context"
	"fmt"

	"github.com/xraph/payments/store"
	"github.com/xraph/payments/transaction"
)

// Durable applies transactions to a Ledger under write-ahead discipline:
// every transaction is appended to the store before it touches memory.
//
// A crash between Append and apply is recovered by replaying the log. Replay
// reapplies through the same business checks, so a record that was already
// applied (or rejected) before the crash ends in the same state.
type Durable struct {
	ledger   *Ledger
	store    store.Store
	replayed int
}

// NewDurable wraps a fresh Ledger around s. Use Recover to start from the
// state already recorded in s.
func NewDurable(s store.Store, opts ...Option) *Durable {
	return &Durable{
		ledger: NewLedger(opts...),
		store:  s,
	}
}

// Recover builds a fresh Ledger and replays every record in s through the
// apply step, in append order. Records are not appended again.
func Recover(ctx context.Context, s store.Store, opts ...Option) (*Durable, error) {
	txs, err := s.Replay(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReplayFailed, err)
	}

	d := NewDurable(s, opts...)
	for _, tx := range txs {
		d.ledger.Process(tx)
	}
	d.replayed = len(txs)

	d.ledger.logger.Debug("ledger recovered",
		"replayed", d.replayed,
		"accounts", d.ledger.Len(),
	)
	return d, nil
}

// Process appends tx and, only if the append succeeded, applies it.
// The returned error is non-nil only for durability failures, in which case
// nothing was applied.
func (d *Durable) Process(ctx context.Context, tx transaction.Transaction) (Result, error) {
	if err := d.store.Append(ctx, tx); err != nil {
		d.ledger.logger.Error("durability append failed",
			"type", tx.Type,
			"client", tx.Client,
			"tx", tx.TxID,
			"error", err,
		)
		return Result{Tx: tx}, fmt.Errorf("%w: %w", ErrAppendFailed, err)
	}
	return d.ledger.Process(tx), nil
}

// Ledger returns the in-memory state.
func (d *Durable) Ledger() *Ledger { return d.ledger }

// Store returns the durability backend.
func (d *Durable) Store() store.Store { return d.store }

// Replayed returns how many records Recover fed through the ledger.
func (d *Durable) Replayed() int { return d.replayed }
