// Package memory provides an in-process ordered log.
//
// The log lives as long as the Store value, not as long as the engine that
// writes to it, so it can stand in for a durable medium when exercising
// recovery: drop the engine, keep the store, recover from it.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/payments"
	"github.com/xraph/payments/store"
	"github.com/xraph/payments/transaction"
	"github.com/xraph/payments/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store keeps appended transactions in a slice guarded by a RWMutex.
type Store struct {
	mu     sync.RWMutex
	log    []transaction.Transaction
	closed bool
}

// New returns an empty log.
func New() *Store {
	return &Store{
		log: make([]transaction.Transaction, 0),
	}
}

// Set is a fixed collection of per-shard logs that outlives any engine
// built from it.
type Set struct {
	mu     sync.Mutex
	stores map[int]*Store
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{stores: make(map[int]*Store)}
}

// Factory returns a store.Factory handing out the Set's log for each shard,
// creating it on first use. Calling it again for the same shard returns the
// same log.
func (s *Set) Factory() store.Factory {
	return func(shard int) (store.Store, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		st, ok := s.stores[shard]
		if !ok || st.isClosed() {
			st = New()
			if ok {
				st.log = append(st.log, s.stores[shard].snapshot()...)
			}
			s.stores[shard] = st
		}
		return st, nil
	}
}

// Shard returns the log for a shard, or nil if none was created.
func (s *Set) Shard(shard int) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stores[shard]
}

// Append records a copy of tx.
func (s *Store) Append(_ context.Context, tx transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return payments.ErrStoreClosed
	}
	s.log = append(s.log, clone(tx))
	return nil
}

// Replay returns copies of all records in append order.
func (s *Store) Replay(_ context.Context) ([]transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, payments.ErrStoreClosed
	}
	return s.snapshotLocked(), nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	if s.isClosed() {
		return payments.ErrStoreClosed
	}
	return nil
}

// Close rejects further appends. The records stay readable through a Set.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) snapshot() []transaction.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []transaction.Transaction {
	out := make([]transaction.Transaction, len(s.log))
	for i, tx := range s.log {
		out[i] = clone(tx)
	}
	return out
}

func clone(tx transaction.Transaction) transaction.Transaction {
	if tx.Amount != nil {
		tx.Amount = types.Ptr(*tx.Amount)
	}
	return tx
}
