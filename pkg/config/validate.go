package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values. Defaults are
// expected to have been applied already.
func Validate(cfg *Config) error {
	if err := validatePolicy(&cfg.Policy); err != nil {
		return err
	}
	if err := validateDecision(&cfg.Decision); err != nil {
		return err
	}
	return validateTelemetry(&cfg.Telemetry)
}

func validatePolicy(cfg *PolicyConfig) error {
	if cfg.MaxDepth < 0 {
		return &ValidationError{Field: "policy.max_depth", Message: "must not be negative"}
	}
	if cfg.WatchDebounce < 0 {
		return &ValidationError{Field: "policy.watch_debounce", Message: "must not be negative"}
	}
	for _, p := range cfg.Paths {
		if p == "" {
			return &ValidationError{Field: "policy.paths", Message: "paths must not contain empty entries"}
		}
	}
	return nil
}

func validateDecision(cfg *DecisionConfig) error {
	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		return &ValidationError{
			Field:   "decision.backend",
			Message: fmt.Sprintf("unknown backend %q, expected memory or sqlite", cfg.Backend),
		}
	}

	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		return &ValidationError{Field: "decision.sqlite.path", Message: "required for the sqlite backend"}
	}
	if cfg.Buffer <= 0 {
		return &ValidationError{Field: "decision.buffer", Message: "must be positive"}
	}
	if cfg.Retention.Days < 0 {
		return &ValidationError{Field: "decision.retention.days", Message: "must not be negative"}
	}
	if cfg.Retention.MaxRecords < 0 {
		return &ValidationError{Field: "decision.retention.max_records", Message: "must not be negative"}
	}
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			return &ValidationError{
				Field:   "decision.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			}
		}
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
		}
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return &ValidationError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q", cfg.Logging.Format),
		}
	}
	return nil
}
