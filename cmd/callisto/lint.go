package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/policy/module"
	"mercator-hq/callisto/pkg/policy/source"
)

var lintFlags struct {
	files  []string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate module files",
	Long: `Validate module definition files: YAML structure, policy expression
syntax, parameter shapes, import resolution and dependency cycles.

Examples:
  # Lint a single file
  callisto lint --file policies.yaml

  # Lint a directory
  callisto lint --file policies/

  # JSON output for CI
  callisto lint --file policies.yaml --format json`,
	RunE: lintModules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringArrayVarP(&lintFlags.files, "file", "f", nil, "module file or directory (repeatable)")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// lintResult is the validation result for one path.
type lintResult struct {
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Modules  []string `json:"modules,omitempty"`
	Policies int      `json:"policies,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

func lintModules(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(lintFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	paths, err := resolvePaths(lintFlags.files, cfg)
	if err != nil {
		return err
	}

	results := make([]lintResult, 0, len(paths))
	nsPath := make(map[string]int) // namespace -> results index
	var defs []module.ModuleDef

	for _, path := range paths {
		result := lintResult{Path: path, Valid: true}
		loaded, err := source.NewFileSource(path, logger).Load(cmd.Context())
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, err.Error())
			results = append(results, result)
			continue
		}
		for _, def := range loaded {
			result.Modules = append(result.Modules, def.Namespace)
			result.Policies += len(def.Policies)
			nsPath[def.Namespace] = len(results)
		}
		defs = append(defs, loaded...)
		results = append(results, result)
	}

	// Registry loading validates expression syntax, imports, and
	// dependency cycles across all paths together.
	if _, err := module.LoadModules(module.NewRegistry(), defs); err != nil {
		idx := 0
		var loadErr *module.LoadError
		if errors.As(err, &loadErr) {
			if i, ok := nsPath[loadErr.Namespace]; ok {
				idx = i
			}
		}
		results[idx].Valid = false
		results[idx].Errors = append(results[idx].Errors, err.Error())
	}

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(os.Stdout, results); err != nil {
			return err
		}
	} else {
		printLintText(results)
	}

	for _, result := range results {
		if !result.Valid {
			return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
		}
	}
	return nil
}

func printLintText(results []lintResult) {
	totalErrors := 0
	for _, result := range results {
		fmt.Printf("Validating %s...\n", result.Path)
		if result.Valid {
			fmt.Printf("✓ %d module(s), %d policies\n", len(result.Modules), result.Policies)
		}
		for _, msg := range result.Errors {
			fmt.Printf("✗ Error: %s\n", msg)
			totalErrors++
		}
		fmt.Println()
	}
	fmt.Println("Summary:")
	fmt.Printf("  %d error(s)\n", totalErrors)
}
