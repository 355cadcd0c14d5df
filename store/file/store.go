// Package file provides an append-only JSON-lines log on the local filesystem.
//
// Each Append writes one newline-terminated record and fsyncs the file
// before returning, so an acknowledged record survives a crash. A crash in
// the middle of a write can leave a torn final line; Open truncates it and
// Replay ignores it. Any other malformed line is reported as corruption.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xraph/payments"
	"github.com/xraph/payments/id"
	"github.com/xraph/payments/store"
	"github.com/xraph/payments/transaction"
)

// ErrCorrupt is returned by Replay when a complete line cannot be decoded.
var ErrCorrupt = errors.New("payments/file: corrupt log record")

// compile-time interface check
var _ store.Store = (*Store)(nil)

// record is one line of the log.
type record struct {
	ID  id.ID  `json:"id"`
	Seq uint64 `json:"seq"`
	transaction.Transaction
	RecordedAt time.Time `json:"recorded_at"`
}

// logFile is the subset of *os.File the store writes through.
type logFile interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
	Close() error
}

// Store is a single log file.
type Store struct {
	mu     sync.Mutex
	path   string
	f      logFile
	seq    uint64
	size   int64 // bytes of complete, synced records
	broken error
	closed bool
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens or creates the log at path, creating parent directories as
// needed, and repairs a torn trailing record.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("payments/file: create directory: %w", err)
	}

	count, size, err := s.repair()
	if err != nil {
		return nil, err
	}
	s.seq = count
	s.size = size

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("payments/file: open %s: %w", path, err)
	}
	s.f = f
	return s, nil
}

// Factory returns a store.Factory opening one log file per shard under dir.
func Factory(dir string, opts ...Option) store.Factory {
	return func(shard int) (store.Store, error) {
		return Open(filepath.Join(dir, store.ShardStream(shard)+".wal"), opts...)
	}
}

// Path returns the log file path.
func (s *Store) Path() string { return s.path }

// Append writes tx as one record and fsyncs. If the write or the sync fails,
// the file is truncated back to its last synced size so the record cannot
// resurface on replay, and the store refuses further appends.
func (s *Store) Append(_ context.Context, tx transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return payments.ErrStoreClosed
	}
	if s.broken != nil {
		return fmt.Errorf("payments/file: log unusable after earlier failure: %w", s.broken)
	}

	line, err := json.Marshal(record{
		ID:          id.NewEntryID(),
		Seq:         s.seq + 1,
		Transaction: tx,
		RecordedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("payments/file: encode record: %w", err)
	}
	line = append(line, '\n')

	if _, err := s.f.Write(line); err != nil {
		return s.rollback(fmt.Errorf("payments/file: write: %w", err))
	}
	if err := s.f.Sync(); err != nil {
		return s.rollback(fmt.Errorf("payments/file: sync: %w", err))
	}

	s.seq++
	s.size += int64(len(line))
	return nil
}

// rollback drops whatever part of a failed record reached the file and
// marks the store broken. Called with s.mu held.
func (s *Store) rollback(cause error) error {
	s.broken = cause
	if err := s.f.Truncate(s.size); err != nil {
		s.logger.Error("payments/file: rollback of failed append",
			"path", s.path,
			"size", s.size,
			"error", err,
		)
		return errors.Join(cause, fmt.Errorf("payments/file: truncate: %w", err))
	}
	if err := s.f.Sync(); err != nil {
		s.logger.Warn("payments/file: sync after rollback",
			"path", s.path,
			"error", err,
		)
	}
	return cause
}

// Replay reads every complete record in file order.
func (s *Store) Replay(_ context.Context) ([]transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, payments.ErrStoreClosed
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("payments/file: open %s: %w", s.path, err)
	}
	defer f.Close()

	var out []transaction.Transaction
	err = scan(f, func(n int, line []byte) error {
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrCorrupt, n, err)
		}
		out = append(out, rec.Transaction)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Len returns the number of records written, including those found on Open.
func (s *Store) Len() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Migrate is a no-op; Open already created the file.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping checks that the log file is still present.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return payments.ErrStoreClosed
	}
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("payments/file: stat %s: %w", s.path, err)
	}
	return nil
}

// Close syncs and closes the file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.f.Sync(); err != nil {
		_ = s.f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("payments/file: sync: %w", err)
	}
	return s.f.Close()
}

// repair counts the complete records in the existing file, truncates a
// torn trailing line left by a crash mid-write and returns the record count
// and the size of the complete records.
func (s *Store) repair() (uint64, int64, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("payments/file: open %s: %w", s.path, err)
	}
	defer f.Close()

	var (
		count uint64
		valid int64
	)
	err = scan(f, func(_ int, line []byte) error {
		count++
		valid += int64(len(line)) + 1
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("payments/file: stat %s: %w", s.path, err)
	}
	if info.Size() > valid {
		s.logger.Warn("payments/file: truncating torn record",
			"path", s.path,
			"bytes", info.Size()-valid,
		)
		if err := os.Truncate(s.path, valid); err != nil {
			return 0, 0, fmt.Errorf("payments/file: truncate %s: %w", s.path, err)
		}
	}
	return count, valid, nil
}

// scan calls fn for every newline-terminated line (without the newline).
// A final line with no newline is a torn write and is skipped.
func scan(r io.Reader, fn func(n int, line []byte) error) error {
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := br.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("payments/file: read: %w", err)
		}
		line = bytes.TrimSuffix(line, []byte{'\n'})
		if err := fn(n, line); err != nil {
			return err
		}
	}
}
