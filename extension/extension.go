// Package extension provides the Forge extension adapter for the payments
// engine.
//
// It implements the forge.Extension interface to integrate the engine
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.payments" or
// "payments" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/payments"
	"github.com/xraph/payments/store"
	"github.com/xraph/payments/store/file"
	"github.com/xraph/payments/store/memory"
	"github.com/xraph/payments/store/noop"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "payments"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Sharded write-ahead payments ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the payments engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *payments.Engine
	factory    store.Factory
	db         *grove.DB
	engineOpts []payments.Option
}

// New creates a new payments Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *payments.Engine { return e.engine }

// ResolvedConfig returns the configuration after defaults and file values
// were merged in.
func (e *Extension) ResolvedConfig() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration,
// builds the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.buildEngine(); err != nil {
		return err
	}

	return vessel.Provide(fapp.Container(), func() (*payments.Engine, error) {
		return e.engine, nil
	})
}

// buildEngine opens the shard stores and constructs the engine from the
// resolved config.
func (e *Extension) buildEngine() error {
	if e.factory == nil {
		f, err := backendFactory(e.config)
		if err != nil {
			return err
		}
		e.factory = f
	}

	eng, err := payments.New(e.buildEngineOpts()...)
	if err != nil {
		return fmt.Errorf("payments: build engine: %w", err)
	}
	e.engine = eng
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("payments: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	var errs payments.MultiError
	if e.engine != nil {
		errs.Add(e.engine.Stop())
	}
	if e.db != nil {
		errs.Add(e.db.Close())
	}
	e.MarkStopped()

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("payments: engine not initialized")
	}
	return e.engine.Health(ctx)
}

// buildEngineOpts constructs payments.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []payments.Option {
	opts := make([]payments.Option, 0, len(e.engineOpts)+4)

	opts = append(opts,
		payments.WithShards(e.config.Shards),
		payments.WithStoreFactory(e.factory),
	)
	if e.config.PluginTimeout > 0 {
		opts = append(opts, payments.WithPluginTimeout(e.config.PluginTimeout))
	}
	if e.config.DisableRecover {
		opts = append(opts, payments.WithoutRecovery())
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// backendFactory maps Config.Backend to a store.Factory.
func backendFactory(cfg Config) (store.Factory, error) {
	switch cfg.Backend {
	case "", BackendNoop:
		return noop.Factory(), nil
	case BackendMemory:
		return memory.NewSet().Factory(), nil
	case BackendFile:
		if cfg.DataDir == "" {
			return nil, errors.New("payments: file backend requires data_dir")
		}
		return file.Factory(cfg.DataDir), nil
	default:
		return nil, fmt.Errorf("payments: unknown backend %q", cfg.Backend)
	}
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("payments: configuration is required but not found in config files; " +
				"ensure 'extensions.payments' or 'payments' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("payments: configuration loaded",
		forge.F("shards", e.config.Shards),
		forge.F("disable_recover", e.config.DisableRecover),
		forge.F("plugin_timeout", e.config.PluginTimeout),
		forge.F("backend", e.config.Backend),
		forge.F("data_dir", e.config.DataDir),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.payments", "payments"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("payments: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("payments: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Shards == 0 {
		cfg.Shards = defaults.Shards
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	if cfg.Backend == "" {
		cfg.Backend = defaults.Backend
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRecover {
		yamlConfig.DisableRecover = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Backend == "" && programmaticConfig.Backend != "" {
		yamlConfig.Backend = programmaticConfig.Backend
	}
	if yamlConfig.DataDir == "" && programmaticConfig.DataDir != "" {
		yamlConfig.DataDir = programmaticConfig.DataDir
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.Shards == 0 && programmaticConfig.Shards != 0 {
		yamlConfig.Shards = programmaticConfig.Shards
	}
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
