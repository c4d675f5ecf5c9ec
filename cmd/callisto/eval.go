package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/decision"
	"mercator-hq/callisto/pkg/decision/recorder"
	"mercator-hq/callisto/pkg/decision/storage"
	"mercator-hq/callisto/pkg/document"
	"mercator-hq/callisto/pkg/policy/manager"
	"mercator-hq/callisto/pkg/policy/residual"
)

var evalFlags struct {
	policy string
	doc    string
	files  []string
	params []string
	self   string
	event  string
	format string
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a policy against a JSON document",
	Long: `Evaluate a policy against a JSON document through the unification
engine. The result is one of four outcomes:

  satisfied  every constraint held
  conflict   a constraint failed; the offending value is the witness
  open       data the constraints need is absent from the document
  complex    part of the policy is not decidable as flat constraints

Examples:
  # Evaluate against a document file
  callisto eval --policy access/is-admin --doc request.json --file policies.yaml

  # Read the document from stdin
  cat request.json | callisto eval --policy access/is-admin --doc - --file policies.yaml

  # Bind policy parameters
  callisto eval --policy limits/max-level --doc request.json --file policies.yaml --param max=5

  # JSON output for scripting
  callisto eval --policy access/is-admin --doc request.json --file policies.yaml --format json`,
	RunE: evalPolicy,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalFlags.policy, "policy", "p", "", "policy to evaluate, namespace/name")
	evalCmd.Flags().StringVarP(&evalFlags.doc, "doc", "d", "", "JSON document file, or - for stdin")
	evalCmd.Flags().StringArrayVarP(&evalFlags.files, "file", "f", nil, "module file or directory (repeatable, overrides config paths)")
	evalCmd.Flags().StringArrayVar(&evalFlags.params, "param", nil, "policy parameter, name=value (repeatable)")
	evalCmd.Flags().StringVar(&evalFlags.self, "self", "", "self bindings as inline JSON")
	evalCmd.Flags().StringVar(&evalFlags.event, "event", "", "event payload as inline JSON")
	evalCmd.Flags().StringVar(&evalFlags.format, "format", "text", "output format: text, json")

	evalCmd.MarkFlagRequired("policy")
	evalCmd.MarkFlagRequired("doc")
}

// evalResult is the eval command output shape.
type evalResult struct {
	Policy    string             `json:"policy"`
	Outcome   string             `json:"outcome"`
	Residual  string             `json:"residual,omitempty"`
	Paths     []string           `json:"paths,omitempty"`
	Witnesses []decision.Witness `json:"witnesses,omitempty"`
	Duration  string             `json:"duration"`
}

func evalPolicy(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evalFlags.format)
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

	paths, err := resolvePaths(evalFlags.files, cfg)
	if err != nil {
		return err
	}

	doc, err := readDocument(evalFlags.doc)
	if err != nil {
		return err
	}
	params, err := parseParams(evalFlags.params)
	if err != nil {
		return err
	}
	self, err := parseInlineJSON(evalFlags.self)
	if err != nil {
		return fmt.Errorf("invalid --self: %w", err)
	}
	event, err := parseInlineJSON(evalFlags.event)
	if err != nil {
		return fmt.Errorf("invalid --event: %w", err)
	}

	m := newManager(cfg, paths, logger)
	ctx := cmd.Context()
	if err := m.Load(ctx); err != nil {
		return cli.NewCommandError("eval", err)
	}

	start := time.Now()
	res, evalErr := m.Evaluate(evalFlags.policy, doc, manager.EvalOptions{
		Params: params,
		Self:   self,
		Event:  event,
	})
	elapsed := time.Since(start)

	recordDecision(cfg, logger, recorder.Evaluation{
		Policy:          evalFlags.policy,
		RegistryVersion: m.Registry().Version(),
		Document:        doc,
		Residual:        res,
		Err:             evalErr,
		Duration:        elapsed,
	})

	if evalErr != nil {
		return cli.NewCommandError("eval", evalErr)
	}

	result := evalResult{
		Policy:   evalFlags.policy,
		Outcome:  recorder.Classify(res, nil),
		Duration: elapsed.String(),
	}
	if !res.IsSatisfied() {
		result.Residual = res.String()
		result.Paths = res.Paths()
		result.Witnesses = witnesses(res)
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, result)
	}
	printEvalText(result)
	return nil
}

func printEvalText(result evalResult) {
	fmt.Printf("policy:   %s\n", result.Policy)
	fmt.Printf("outcome:  %s\n", result.Outcome)
	fmt.Printf("duration: %s\n", result.Duration)
	if result.Residual != "" {
		fmt.Printf("residual: %s\n", result.Residual)
	}
	for _, w := range result.Witnesses {
		fmt.Printf("witness:  %s %s %v, got %v\n", w.Path, w.Op, w.Expected, w.Actual)
	}
}

// witnesses extracts the conflicting values from a residual for
// reporting.
func witnesses(res residual.Residual) []decision.Witness {
	var out []decision.Witness
	for _, key := range res.Paths() {
		for _, term := range res[key] {
			if term.Kind != residual.TermConflict {
				continue
			}
			out = append(out, decision.Witness{
				Path:     key,
				Op:       string(term.Constraint.Op),
				Expected: term.Constraint.Value,
				Actual:   term.Witness,
			})
		}
	}
	return out
}

// recordDecision writes the evaluation to the decision log when a
// persistent backend is configured. Failures log, never fail the
// command.
func recordDecision(cfg *config.Config, logger *slog.Logger, eval recorder.Evaluation) {
	if cfg.Decision.Enabled == nil || !*cfg.Decision.Enabled || cfg.Decision.Backend != "sqlite" {
		return
	}

	store, err := openSQLiteStore(cfg, logger)
	if err != nil {
		logger.Warn("decision log unavailable", "error", err)
		return
	}
	defer store.Close()

	r := recorder.New(store, &recorder.Config{
		Enabled:      true,
		Buffer:       cfg.Decision.Buffer,
		WriteTimeout: cfg.Decision.WriteTimeout,
	}, logger)
	r.Record(eval)
	r.Close()
}

// openSQLiteStore opens the configured SQLite decision store.
func openSQLiteStore(cfg *config.Config, logger *slog.Logger) (*storage.SQLiteStore, error) {
	wal := true
	if cfg.Decision.SQLite.WALMode != nil {
		wal = *cfg.Decision.SQLite.WALMode
	}
	return storage.NewSQLiteStore(&storage.SQLiteConfig{
		Path:         cfg.Decision.SQLite.Path,
		MaxOpenConns: cfg.Decision.SQLite.MaxOpenConns,
		MaxIdleConns: cfg.Decision.SQLite.MaxIdleConns,
		WALMode:      wal,
		BusyTimeout:  cfg.Decision.SQLite.BusyTimeout,
	}, logger)
}

// readDocument reads and decodes a JSON document from a file or stdin.
func readDocument(path string) (document.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	doc, err := document.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}

// parseParams turns repeated name=value flags into a parameter map.
// Values parse as JSON when they can, and stay strings otherwise, so
// --param max=5 binds the number 5 and --param role=admin the string.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid --param %q, want name=value", pair)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		params[name] = parsed
	}
	return params, nil
}

// parseInlineJSON decodes an optional inline JSON object flag.
func parseInlineJSON(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	return document.FromJSON([]byte(s))
}
