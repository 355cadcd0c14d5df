// Package mongo provides a write-ahead log on MongoDB via Grove ORM.
//
// Records of every shard go to one collection, partitioned by stream and
// ordered by a per-stream sequence with a unique (stream, seq) index.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/payments"
	"github.com/xraph/payments/store"
	"github.com/xraph/payments/transaction"
)

// Collection name constants.
const (
	colWAL = "payments_wal"
)

// DefaultStream is the stream used when WithStream is not given.
const DefaultStream = "default"

// ErrSequenceConflict is returned by Append when another writer already
// used the next sequence number of the stream.
var ErrSequenceConflict = errors.New("payments/mongo: sequence conflict")

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db     *grove.DB
	mdb    *mongodriver.MongoDB
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

// New creates a new MongoDB store backed by Grove ORM. Close closes db.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		mdb:    mongodriver.Unwrap(db),
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

// Migrate creates the log indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("payments/mongo: migrate %s indexes: %w", col, err)
		}
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
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// another writer owns the stream; force a reload next time
			s.loaded = false
			return fmt.Errorf("%w: %s seq %d", ErrSequenceConflict, s.stream, m.Seq)
		}
		return fmt.Errorf("payments/mongo: append to %s: %w", s.stream, err)
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"stream": s.stream}).
		Sort(bson.D{{Key: "seq", Value: 1}}).
		Scan(ctx)
	if err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("payments/mongo: replay %s: %w", s.stream, err)
	}

	result := make([]transaction.Transaction, len(models))
	for i := range models {
		tx, err := fromWALModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("payments/mongo: record %s: %w", models[i].ID, err)
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
	n, err := s.mdb.Collection(colWAL).CountDocuments(ctx, bson.M{"stream": s.stream})
	if err != nil {
		return 0, fmt.Errorf("payments/mongo: count %s: %w", s.stream, err)
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

// loadSeq reads the highest sequence of the stream.
func (s *Store) loadSeq(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	var last walModel
	err := s.mdb.NewFind(&last).
		Filter(bson.M{"stream": s.stream}).
		Sort(bson.D{{Key: "seq", Value: -1}}).
		Limit(1).
		Scan(ctx)
	switch {
	case err == nil:
		s.seq = last.Seq
	case isNoDocuments(err):
		s.seq = 0
	default:
		return fmt.Errorf("payments/mongo: read sequence of %s: %w", s.stream, err)
	}

	s.loaded = true
	s.logger.Debug("payments/mongo: stream opened", "stream", s.stream, "seq", s.seq)
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the log collection.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colWAL: {
			{
				Keys:    bson.D{{Key: "stream", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
