package payments

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/payments/account"
	"github.com/xraph/payments/engine"
	"github.com/xraph/payments/id"
	"github.com/xraph/payments/plugin"
	"github.com/xraph/payments/store"
	"github.com/xraph/payments/store/noop"
	"github.com/xraph/payments/transaction"
)

// DefaultShards is the shard count used when WithShards is not given.
const DefaultShards = 16

// Engine is the sharded, concurrency-safe payments engine.
//
// Clients are partitioned across shards by client id modulo the shard count.
// Each shard owns one durable ledger behind its own RWMutex, so all
// transactions for a client are serialized in lock acquisition order while
// clients on different shards proceed in parallel. No operation ever holds
// more than one shard lock.
type Engine struct {
	id      id.ID
	shards  []*shard
	plugins *plugin.Registry
	logger  *slog.Logger

	numShards int
	factory   store.Factory
	recover   bool
	started   atomic.Bool
	ready     atomic.Bool
}

type shard struct {
	mu      sync.RWMutex
	index   int
	durable *engine.Durable
}

// New creates an Engine and opens one store per shard. Ledgers start empty;
// call Start to migrate the stores and recover state from them.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		id:        id.NewEngineID(),
		plugins:   plugin.NewRegistry(),
		logger:    slog.Default(),
		numShards: DefaultShards,
		factory:   noop.Factory(),
		recover:   true,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.numShards <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShardCount, e.numShards)
	}

	e.shards = make([]*shard, e.numShards)
	for i := range e.shards {
		s, err := e.factory(i)
		if err != nil {
			e.closeStores(i)
			return nil, fmt.Errorf("payments: open store for shard %d: %w", i, err)
		}
		e.shards[i] = &shard{
			index:   i,
			durable: engine.NewDurable(s, e.ledgerOpts(i)...),
		}
	}

	return e, nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithShards sets the number of shards. It must be positive.
func WithShards(n int) Option {
	return func(e *Engine) {
		e.numShards = n
	}
}

// WithStoreFactory sets how each shard's durability backend is built.
// The default is noop.Factory, which provides no crash recovery.
func WithStoreFactory(f store.Factory) Option {
	return func(e *Engine) {
		e.factory = f
	}
}

// WithoutRecovery makes Start skip store migration and log replay. Every
// shard starts from an empty ledger while still appending to its store.
func WithoutRecovery() Option {
	return func(e *Engine) {
		e.recover = false
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

func (e *Engine) ledgerOpts(shard int) []engine.Option {
	return []engine.Option{
		engine.WithLogger(e.logger.With("shard", shard)),
	}
}

// Start migrates every shard store, rebuilds each shard's ledger from its
// log and notifies plugins. Process refuses transactions until Start has
// returned successfully.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	var replayed int
	if e.recover {
		for _, sh := range e.shards {
			n, err := e.recoverShard(ctx, sh)
			if err != nil {
				return err
			}
			replayed += n
			e.plugins.EmitRecovered(ctx, sh.index, n)
		}
	}

	e.ready.Store(true)
	e.plugins.EmitInit(ctx, plugin.EngineInfo{ID: e.id.String(), Shards: len(e.shards)})

	e.logger.Info("payments engine started",
		"engine_id", e.id.String(),
		"shards", len(e.shards),
		"replayed", replayed,
		"recover", e.recover,
	)

	return nil
}

// recoverShard replays one shard's log into a fresh ledger and swaps it in.
// The shard's write lock is held throughout so the log and the ledger
// cannot drift apart.
func (e *Engine) recoverShard(ctx context.Context, sh *shard) (int, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s := sh.durable.Store()
	if err := s.Migrate(ctx); err != nil {
		return 0, fmt.Errorf("payments: migrate shard %d: %w", sh.index, err)
	}

	d, err := engine.Recover(ctx, s, e.ledgerOpts(sh.index)...)
	if err != nil {
		return 0, fmt.Errorf("payments: recover shard %d: %w", sh.index, err)
	}
	sh.durable = d
	return d.Replayed(), nil
}

// Stop notifies plugins and closes every shard store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	var errs MultiError
	for _, sh := range e.shards {
		sh.mu.Lock()
		errs.Add(sh.durable.Store().Close())
		sh.mu.Unlock()
	}

	e.logger.Info("payments engine stopped", "engine_id", e.id.String())

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Health pings every shard store.
func (e *Engine) Health(ctx context.Context) error {
	var errs MultiError
	for _, sh := range e.shards {
		sh.mu.RLock()
		s := sh.durable.Store()
		sh.mu.RUnlock()
		errs.Add(s.Ping(ctx))
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

// Process routes tx to its client's shard and applies it under that shard's
// write lock, appending it to the shard's log first.
//
// Business rule violations are reported in the Result, never as an error.
// A non-nil error means the engine has not finished starting
// (ErrNotStarted) or the durability backend failed; either way the
// transaction was neither recorded nor applied.
func (e *Engine) Process(ctx context.Context, tx transaction.Transaction) (Result, error) {
	if !e.ready.Load() {
		return Result{Tx: tx}, ErrNotStarted
	}

	sh := e.shardFor(tx.Client)

	sh.mu.Lock()
	res, err := sh.durable.Process(ctx, tx)
	sh.mu.Unlock()

	if err != nil {
		e.plugins.EmitDurabilityFailure(ctx, tx, err)
		return res, err
	}

	if !res.Applied {
		e.plugins.EmitTransactionRejected(ctx, tx, res.Err)
		return res, nil
	}

	if res.Account != nil {
		e.plugins.EmitTransactionApplied(ctx, tx, *res.Account)
		if res.Locked() {
			e.plugins.EmitAccountLocked(ctx, *res.Account)
		}
	}
	return res, nil
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// Account returns a copy of the client's account, taking only the owning
// shard's read lock.
func (e *Engine) Account(client uint16) (account.Account, bool) {
	sh := e.shardFor(client)

	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.durable.Ledger().Account(client)
}

// Accounts returns copies of every account sorted by client id.
//
// Shards are read concurrently, each under its own read lock. The result is
// not an atomic snapshot across shards: with concurrent writers, each
// shard's portion may reflect a different point in time.
func (e *Engine) Accounts(ctx context.Context) ([]account.Account, error) {
	parts := make([][]account.Account, len(e.shards))

	g, gctx := errgroup.WithContext(ctx)
	for i, sh := range e.shards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sh.mu.RLock()
			parts[i] = sh.durable.Ledger().Accounts()
			sh.mu.RUnlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]account.Account, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}

	slices.SortFunc(out, func(a, b account.Account) int {
		return cmp.Compare(a.ClientID, b.ClientID)
	})
	return out, nil
}

// Len returns the number of accounts across all shards.
func (e *Engine) Len() int {
	var n int
	for _, sh := range e.shards {
		sh.mu.RLock()
		n += sh.durable.Ledger().Len()
		sh.mu.RUnlock()
	}
	return n
}

// ID returns the engine instance identifier.
func (e *Engine) ID() ID { return e.id }

// NumShards returns the shard count.
func (e *Engine) NumShards() int { return len(e.shards) }

// ShardFor returns the shard index owning client.
func (e *Engine) ShardFor(client uint16) int {
	return int(client) % len(e.shards)
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

func (e *Engine) shardFor(client uint16) *shard {
	return e.shards[e.ShardFor(client)]
}

// closeStores closes the stores of the first n shards after a failed New.
func (e *Engine) closeStores(n int) {
	for _, sh := range e.shards[:n] {
		if err := sh.durable.Store().Close(); err != nil {
			e.logger.Warn("payments: close store after failed open",
				"shard", sh.index,
				"error", err,
			)
		}
	}
}
