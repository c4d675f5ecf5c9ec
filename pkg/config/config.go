// Package config loads, defaults and validates the YAML configuration
// for the policy engine and its supporting services.
package config

import "time"

// Config is the root configuration structure. It contains the policy
// engine settings, the decision log, and telemetry.
type Config struct {
	// Policy contains configuration for policy loading and evaluation:
	// module sources, watch mode, and evaluation limits.
	Policy PolicyConfig `yaml:"policy"`

	// Decision contains configuration for the decision log: backend
	// selection, retention, and export settings.
	Decision DecisionConfig `yaml:"decision"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PolicyConfig contains configuration for the policy engine.
type PolicyConfig struct {
	// Paths are module definition files or directories to load.
	// Directories are walked for .yaml and .yml files.
	Paths []string `yaml:"paths"`

	// Watch enables hot reload when module files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce is the quiet period before a file change triggers
	// a reload. Default: 100ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// MaxDepth bounds policy reference recursion during evaluation.
	// Zero means the built-in default.
	MaxDepth int `yaml:"max_depth"`

	// StrictOperators makes unknown operators an evaluation error
	// instead of a complex residual. Default: false
	StrictOperators bool `yaml:"strict_operators"`
}

// DecisionConfig contains configuration for the decision log.
type DecisionConfig struct {
	// Enabled enables decision recording. Default: true
	Enabled *bool `yaml:"enabled"`

	// Backend selects the store: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Buffer is the async recorder channel size. Default: 1000
	Buffer int `yaml:"buffer"`

	// WriteTimeout is the timeout for writing a record to the store.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention configures automatic pruning of old records.
	Retention RetentionConfig `yaml:"retention"`

	// Export configures decision-log export.
	Export ExportConfig `yaml:"export"`
}

// SQLiteConfig contains configuration for the SQLite decision store.
type SQLiteConfig struct {
	// Path is the database file path. Default: "data/decisions.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging. Default: true
	WALMode *bool `yaml:"wal_mode"`

	// BusyTimeout is the wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains configuration for decision-log pruning.
type RetentionConfig struct {
	// Days is how long records are kept. Zero disables age pruning.
	// Default: 90
	Days int `yaml:"days"`

	// Schedule is a cron expression for scheduled pruning. Empty
	// disables the scheduler. Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// MaxRecords caps the number of stored records. Zero means no cap.
	MaxRecords int64 `yaml:"max_records"`
}

// ExportConfig contains configuration for decision-log export.
type ExportConfig struct {
	// Pretty enables indented JSON output. Default: true
	Pretty *bool `yaml:"pretty"`

	// Compress gzips the export stream. Default: false
	Compress bool `yaml:"compress"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is the minimum log level. Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records. Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains configuration for Prometheus metrics.
type MetricsConfig struct {
	// Enabled enables metric collection. Default: true
	Enabled *bool `yaml:"enabled"`

	// Namespace is the metric namespace. Default: "callisto"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem. Default: "policy"
	Subsystem string `yaml:"subsystem"`
}
