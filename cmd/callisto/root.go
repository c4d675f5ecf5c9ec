package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/policy/manager"
	"mercator-hq/callisto/pkg/policy/operator"
	"mercator-hq/callisto/pkg/policy/source"
	"mercator-hq/callisto/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "callisto",
	Short: "Callisto - three-valued policy evaluation engine",
	Long: `Callisto evaluates declarative policies against partially known JSON
documents. Evaluation never guesses: a policy is satisfied, conflicted
with a witness of the offending value, or left open as a residual
naming exactly the data still missing.

Modules are YAML files of named policy expressions; the decision log
records every evaluation outcome for audit.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration file, or the defaults when no
// --config was given.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config. --verbose forces
// debug level. Logs go to stderr so command output stays clean on
// stdout.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    os.Stderr,
	})
}

// resolvePaths picks the policy source paths: explicit flags win over
// the configured paths.
func resolvePaths(flagPaths []string, cfg *config.Config) ([]string, error) {
	paths := flagPaths
	if len(paths) == 0 {
		paths = cfg.Policy.Paths
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no policy paths: pass --file or set policy.paths in config")
	}
	return paths, nil
}

// newManager assembles a policy manager over file sources.
func newManager(cfg *config.Config, paths []string, logger *slog.Logger) *manager.Manager {
	sources := make([]manager.Source, 0, len(paths))
	for _, path := range paths {
		sources = append(sources, source.NewFileSource(path, logger))
	}

	ops := operator.NewContext(nil)
	ops.Strict = cfg.Policy.StrictOperators

	return manager.New(manager.Config{
		Sources:   sources,
		Operators: ops,
		MaxDepth:  cfg.Policy.MaxDepth,
		Logger:    logger,
	})
}
