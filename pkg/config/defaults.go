package config

import "time"

// Default values for configuration fields.
const (
	// Policy defaults
	DefaultWatchDebounce = 100 * time.Millisecond
	DefaultMaxDepth      = 64

	// Decision defaults
	DefaultDecisionEnabled  = true
	DefaultDecisionBackend  = "memory"
	DefaultDecisionBuffer   = 1000
	DefaultWriteTimeout     = 5 * time.Second
	DefaultSQLitePath       = "data/decisions.db"
	DefaultMaxOpenConns     = 10
	DefaultMaxIdleConns     = 5
	DefaultWALMode          = true
	DefaultBusyTimeout      = 5 * time.Second
	DefaultRetentionDays    = 90
	DefaultPruneSchedule    = "0 3 * * *"
	DefaultExportPretty     = true

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "callisto"
	DefaultMetricsSubsystem = "policy"
)

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields with default values.
func ApplyDefaults(cfg *Config) {
	// Policy
	if cfg.Policy.WatchDebounce <= 0 {
		cfg.Policy.WatchDebounce = DefaultWatchDebounce
	}
	if cfg.Policy.MaxDepth <= 0 {
		cfg.Policy.MaxDepth = DefaultMaxDepth
	}

	// Decision
	if cfg.Decision.Enabled == nil {
		cfg.Decision.Enabled = boolPtr(DefaultDecisionEnabled)
	}
	if cfg.Decision.Backend == "" {
		cfg.Decision.Backend = DefaultDecisionBackend
	}
	if cfg.Decision.Buffer <= 0 {
		cfg.Decision.Buffer = DefaultDecisionBuffer
	}
	if cfg.Decision.WriteTimeout <= 0 {
		cfg.Decision.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Decision.SQLite.Path == "" {
		cfg.Decision.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Decision.SQLite.MaxOpenConns <= 0 {
		cfg.Decision.SQLite.MaxOpenConns = DefaultMaxOpenConns
	}
	if cfg.Decision.SQLite.MaxIdleConns <= 0 {
		cfg.Decision.SQLite.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.Decision.SQLite.WALMode == nil {
		cfg.Decision.SQLite.WALMode = boolPtr(DefaultWALMode)
	}
	if cfg.Decision.SQLite.BusyTimeout <= 0 {
		cfg.Decision.SQLite.BusyTimeout = DefaultBusyTimeout
	}
	if cfg.Decision.Retention.Days == 0 {
		cfg.Decision.Retention.Days = DefaultRetentionDays
	}
	if cfg.Decision.Retention.Schedule == "" {
		cfg.Decision.Retention.Schedule = DefaultPruneSchedule
	}
	if cfg.Decision.Export.Pretty == nil {
		cfg.Decision.Export.Pretty = boolPtr(DefaultExportPretty)
	}

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		cfg.Telemetry.Metrics.Enabled = boolPtr(DefaultMetricsEnabled)
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
}

func boolPtr(b bool) *bool { return &b }
