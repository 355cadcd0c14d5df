package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/payments/account"
	"github.com/xraph/payments/transaction"
)

// DefaultTimeout bounds a single plugin hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so emitting an event only visits the
// plugins that implement its hook.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onRecovered           []OnRecovered
	onTransactionApplied  []OnTransactionApplied
	onTransactionRejected []OnTransactionRejected
	onAccountLocked       []OnAccountLocked
	onDurabilityFailure   []OnDurabilityFailure
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call hook timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnRecovered); ok {
		r.onRecovered = append(r.onRecovered, v)
	}
	if v, ok := p.(OnTransactionApplied); ok {
		r.onTransactionApplied = append(r.onTransactionApplied, v)
	}
	if v, ok := p.(OnTransactionRejected); ok {
		r.onTransactionRejected = append(r.onTransactionRejected, v)
	}
	if v, ok := p.(OnAccountLocked); ok {
		r.onAccountLocked = append(r.onAccountLocked, v)
	}
	if v, ok := p.(OnDurabilityFailure); ok {
		r.onDurabilityFailure = append(r.onDurabilityFailure, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnRecovered", reflect.TypeOf((*OnRecovered)(nil)).Elem()},
	{"OnTransactionApplied", reflect.TypeOf((*OnTransactionApplied)(nil)).Elem()},
	{"OnTransactionRejected", reflect.TypeOf((*OnTransactionRejected)(nil)).Elem()},
	{"OnAccountLocked", reflect.TypeOf((*OnAccountLocked)(nil)).Elem()},
	{"OnDurabilityFailure", reflect.TypeOf((*OnDurabilityFailure)(nil)).Elem()},
}

// implementedInterfaces returns the hook names implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, info EngineInfo) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	emit(ctx, r, plugins, "OnInit", func(p OnInit) error {
		return p.OnInit(ctx, info)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	emit(ctx, r, plugins, "OnShutdown", func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitRecovered emits a shard recovered event.
func (r *Registry) EmitRecovered(ctx context.Context, shard, replayed int) {
	r.mu.RLock()
	plugins := r.onRecovered
	r.mu.RUnlock()

	emit(ctx, r, plugins, "OnRecovered", func(p OnRecovered) error {
		return p.OnRecovered(ctx, shard, replayed)
	})
}

// EmitTransactionApplied emits a transaction applied event.
func (r *Registry) EmitTransactionApplied(ctx context.Context, tx transaction.Transaction, acct account.Account) {
	r.mu.RLock()
	plugins := r.onTransactionApplied
	r.mu.RUnlock()

	emit(ctx, r, plugins, "OnTransactionApplied", func(p OnTransactionApplied) error {
		return p.OnTransactionApplied(ctx, tx, acct)
	})
}

// EmitTransactionRejected emits a transaction rejected event.
func (r *Registry) EmitTransactionRejected(ctx context.Context, tx transaction.Transaction, reason error) {
	r.mu.RLock()
	plugins := r.onTransactionRejected
	r.mu.RUnlock()

	emit(ctx, r, plugins, "OnTransactionRejected", func(p OnTransactionRejected) error {
		return p.OnTransactionRejected(ctx, tx, reason)
	})
}

// EmitAccountLocked emits an account locked event.
func (r *Registry) EmitAccountLocked(ctx context.Context, acct account.Account) {
	r.mu.RLock()
	plugins := r.onAccountLocked
	r.mu.RUnlock()

	emit(ctx, r, plugins, "OnAccountLocked", func(p OnAccountLocked) error {
		return p.OnAccountLocked(ctx, acct)
	})
}

// EmitDurabilityFailure emits a durability failure event.
func (r *Registry) EmitDurabilityFailure(ctx context.Context, tx transaction.Transaction, err error) {
	r.mu.RLock()
	plugins := r.onDurabilityFailure
	r.mu.RUnlock()

	emit(ctx, r, plugins, "OnDurabilityFailure", func(p OnDurabilityFailure) error {
		return p.OnDurabilityFailure(ctx, tx, err)
	})
}

// emit calls fn for each plugin with a timeout and logs failures.
func emit[T Plugin](ctx context.Context, r *Registry, plugins []T, hook string, fn func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never stall the transaction pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
