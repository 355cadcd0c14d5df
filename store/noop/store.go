// Package noop provides a store that records nothing.
//
// It satisfies store.Store for environments with no durability requirement.
// It gives NO crash-recovery guarantee: Append always succeeds without
// writing anything and Replay always returns an empty log, so state is lost
// when the process exits.
package noop

import (
	"context"
	"sync/atomic"

	"github.com/xraph/payments/store"
	"github.com/xraph/payments/transaction"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store discards every record and only counts appends.
type Store struct {
	count atomic.Uint64
}

// New returns a no-op store.
func New() *Store {
	return &Store{}
}

// Factory returns a store.Factory that hands each shard its own no-op store.
func Factory() store.Factory {
	return func(int) (store.Store, error) {
		return New(), nil
	}
}

// Append counts tx and discards it.
func (s *Store) Append(_ context.Context, _ transaction.Transaction) error {
	s.count.Add(1)
	return nil
}

// Replay always returns an empty log.
func (s *Store) Replay(_ context.Context) ([]transaction.Transaction, error) {
	return nil, nil
}

// Count returns the number of appends seen.
func (s *Store) Count() uint64 {
	return s.count.Load()
}

func (s *Store) Migrate(_ context.Context) error { return nil }
func (s *Store) Ping(_ context.Context) error    { return nil }
func (s *Store) Close() error                    { return nil }
