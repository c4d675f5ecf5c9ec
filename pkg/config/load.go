package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming
// convention CALLISTO_SECTION_FIELD and always take precedence over
// file values.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies CALLISTO_* environment variables to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	// Policy overrides
	if val := os.Getenv("CALLISTO_POLICY_PATHS"); val != "" {
		cfg.Policy.Paths = splitList(val)
	}
	if val := os.Getenv("CALLISTO_POLICY_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.Watch = b
		}
	}
	if val := os.Getenv("CALLISTO_POLICY_MAX_DEPTH"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Policy.MaxDepth = i
		}
	}
	if val := os.Getenv("CALLISTO_POLICY_STRICT_OPERATORS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.StrictOperators = b
		}
	}

	// Decision overrides
	if val := os.Getenv("CALLISTO_DECISION_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Decision.Enabled = &b
		}
	}
	if val := os.Getenv("CALLISTO_DECISION_BACKEND"); val != "" {
		cfg.Decision.Backend = val
	}
	if val := os.Getenv("CALLISTO_DECISION_SQLITE_PATH"); val != "" {
		cfg.Decision.SQLite.Path = val
	}
	if val := os.Getenv("CALLISTO_DECISION_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Decision.Retention.Days = i
		}
	}
	if val := os.Getenv("CALLISTO_DECISION_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Decision.WriteTimeout = d
		}
	}

	// Telemetry overrides
	if val := os.Getenv("CALLISTO_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CALLISTO_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CALLISTO_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
}

// splitList splits a comma-separated list, trimming whitespace and
// dropping empty items.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
