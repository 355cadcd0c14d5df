// Package postgres provides a write-ahead log on PostgreSQL via Grove ORM.
//
// All shards can share one database: each Store writes to its own stream
// (a partition of the payments_wal table) and numbers its records with a
// per-stream sequence.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/payments"
	"github.com/xraph/payments/store"
	"github.com/xraph/payments/transaction"
)

// DefaultStream is the stream used when WithStream is not given.
const DefaultStream = "default"

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db     *grove.DB
	pg     *pgdriver.PgDB
	stream string
	logger *slog.Logger
	ownsDB bool

	mu     sync.Mutex
	seq    int64
	loaded bool
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithStream sets the log partition this store reads and writes.
func WithStream(stream string) Option {
	return func(s *Store) {
		s.stream = stream
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new PostgreSQL store backed by Grove ORM. Close closes db.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		pg:     pgdriver.Unwrap(db),
		stream: DefaultStream,
		logger: slog.Default(),
		ownsDB: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Factory returns a store.Factory giving each shard its own stream in db.
// The stores never close db; the caller does once the engine has stopped.
func Factory(db *grove.DB, opts ...Option) store.Factory {
	return func(shard int) (store.Store, error) {
		shardOpts := append(slices.Clone(opts), WithStream(store.ShardStream(shard)))
		s := New(db, shardOpts...)
		s.ownsDB = false
		return s, nil
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Stream returns the log partition name.
func (s *Store) Stream() string { return s.stream }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("payments/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("payments/postgres: migration failed: %w", err)
	}
	return nil
}

// Append inserts tx as the next record of the stream.
func (s *Store) Append(ctx context.Context, tx transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return payments.ErrStoreClosed
	}
	if err := s.loadSeq(ctx); err != nil {
		return err
	}

	m := toWALModel(s.stream, s.seq+1, tx)
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("payments/postgres: append to %s: %w", s.stream, err)
	}
	s.seq = m.Seq
	return nil
}

// Replay returns the stream's records ordered by sequence.
func (s *Store) Replay(ctx context.Context) ([]transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, payments.ErrStoreClosed
	}

	var models []walModel
	err := s.pg.NewSelect(&models).
		Where("stream = $1", s.stream).
		OrderExpr("seq ASC").
		Scan(ctx)
	if err != nil && !isNoRows(err) {
		return nil, fmt.Errorf("payments/postgres: replay %s: %w", s.stream, err)
	}

	result := make([]transaction.Transaction, len(models))
	for i := range models {
		tx, err := fromWALModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("payments/postgres: record %s: %w", models[i].ID, err)
		}
		result[i] = tx
	}

	if n := len(models); n > 0 {
		s.seq = models[n-1].Seq
		s.loaded = true
	}
	return result, nil
}

// Count returns the number of records in the stream.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM payments_wal WHERE stream = $1`, s.stream).Scan(ctx, &n)
	if err != nil {
		return 0, fmt.Errorf("payments/postgres: count %s: %w", s.stream, err)
	}
	return n, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close rejects further appends and, for stores built with New, closes the
// database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// loadSeq reads the highest sequence of the stream once.
func (s *Store) loadSeq(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	var last int64
	err := s.pg.NewRaw(`SELECT COALESCE(MAX(seq), 0) FROM payments_wal WHERE stream = $1`, s.stream).Scan(ctx, &last)
	if err != nil {
		return fmt.Errorf("payments/postgres: read sequence of %s: %w", s.stream, err)
	}
	s.seq = last
	s.loaded = true
	s.logger.Debug("payments/postgres: stream opened", "stream", s.stream, "seq", last)
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
