package extension

import "time"

// Backend names accepted in Config.Backend.
const (
	BackendNoop   = "noop"
	BackendMemory = "memory"
	BackendFile   = "file"
)

// Config holds the payments extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.payments" or "payments" keys).
type Config struct {
	// Shards is the number of client shards (default: 16).
	Shards int `json:"shards" mapstructure:"shards" yaml:"shards"`

	// DisableRecover skips store migration and log replay on start.
	DisableRecover bool `json:"disable_recover" mapstructure:"disable_recover" yaml:"disable_recover"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// Backend selects the durability backend when no store factory was
	// given programmatically: "noop", "memory" or "file" (default: "noop").
	Backend string `json:"backend" mapstructure:"backend" yaml:"backend"`

	// DataDir is the directory holding the shard logs of the "file" backend.
	DataDir string `json:"data_dir" mapstructure:"data_dir" yaml:"data_dir"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Shards:        16,
		PluginTimeout: 5 * time.Second,
		Backend:       BackendNoop,
	}
}
