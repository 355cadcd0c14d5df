package extension

import (
	"github.com/xraph/grove"

	"github.com/xraph/payments"
	"github.com/xraph/payments/plugin"
	"github.com/xraph/payments/store"
	"github.com/xraph/payments/store/mongo"
	"github.com/xraph/payments/store/postgres"
	"github.com/xraph/payments/store/sqlite"
)

// Option configures the payments Forge extension.
type Option func(*Extension)

// WithStoreFactory sets how each shard's durability backend is built.
// It takes precedence over Config.Backend.
func WithStoreFactory(f store.Factory) Option {
	return func(e *Extension) {
		e.factory = f
	}
}

// WithSQLite stores every shard's log in db, one stream per shard.
// The extension closes db on Stop.
func WithSQLite(db *grove.DB) Option {
	return func(e *Extension) {
		e.factory = sqlite.Factory(db)
		e.db = db
	}
}

// WithPostgres stores every shard's log in db, one stream per shard.
// The extension closes db on Stop.
func WithPostgres(db *grove.DB) Option {
	return func(e *Extension) {
		e.factory = postgres.Factory(db)
		e.db = db
	}
}

// WithMongo stores every shard's log in db, one stream per shard.
// The extension closes db on Stop.
func WithMongo(db *grove.DB) Option {
	return func(e *Extension) {
		e.factory = mongo.Factory(db)
		e.db = db
	}
}

// WithEngineOption passes a payments.Option through to the underlying engine.
func WithEngineOption(opt payments.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a payments plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, payments.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithShards sets the number of client shards.
func WithShards(n int) Option {
	return func(e *Extension) { e.config.Shards = n }
}

// WithDisableRecover skips store migration and log replay on start.
func WithDisableRecover() Option {
	return func(e *Extension) { e.config.DisableRecover = true }
}

// WithFileBackend keeps one log file per shard under dir.
func WithFileBackend(dir string) Option {
	return func(e *Extension) {
		e.config.Backend = BackendFile
		e.config.DataDir = dir
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
