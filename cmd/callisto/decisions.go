package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/decision"
	"mercator-hq/callisto/pkg/decision/export"
	"mercator-hq/callisto/pkg/decision/retention"
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Inspect the decision log",
	Long: `Query, export and prune the persisted decision log. These commands
need the sqlite decision backend; the memory backend keeps no records
across processes.`,
}

var decisionsQueryFlags struct {
	policy  string
	outcome string
	since   string
	until   string
	limit   int
	offset  int
	order   string
	format  string
}

var decisionsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List recorded decisions",
	Long: `List decision records matching the given filters, newest first by
default.

Examples:
  # Recent conflicts
  callisto decisions query --outcome conflict --limit 20

  # One policy inside a time window
  callisto decisions query --policy access/is-admin --since 2026-08-01T00:00:00Z

  # JSON output
  callisto decisions query --format json`,
	RunE: queryDecisions,
}

var decisionsExportFlags struct {
	policy   string
	outcome  string
	since    string
	until    string
	limit    int
	output   string
	pretty   bool
	compress bool
}

var decisionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export decisions as JSON",
	Long: `Export matching decision records as a JSON array, optionally gzip
compressed.

Examples:
  callisto decisions export --output decisions.json
  callisto decisions export --compress --output decisions.json.gz`,
	RunE: exportDecisions,
}

var decisionsPruneFlags struct {
	days       int
	maxRecords int64
}

var decisionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune old decisions once",
	Long: `Run one retention pass over the decision log: delete records older
than the retention window, then the oldest records beyond the record
cap. Flags override the configured retention settings.

Examples:
  callisto decisions prune
  callisto decisions prune --days 30 --max-records 100000`,
	RunE: pruneDecisions,
}

func init() {
	rootCmd.AddCommand(decisionsCmd)
	decisionsCmd.AddCommand(decisionsQueryCmd, decisionsExportCmd, decisionsPruneCmd)

	qf := decisionsQueryCmd.Flags()
	qf.StringVar(&decisionsQueryFlags.policy, "policy", "", "filter by policy, namespace/name")
	qf.StringVar(&decisionsQueryFlags.outcome, "outcome", "", "filter by outcome: satisfied, conflict, open, complex, error")
	qf.StringVar(&decisionsQueryFlags.since, "since", "", "records at or after this RFC3339 time")
	qf.StringVar(&decisionsQueryFlags.until, "until", "", "records at or before this RFC3339 time")
	qf.IntVar(&decisionsQueryFlags.limit, "limit", 50, "maximum records to return")
	qf.IntVar(&decisionsQueryFlags.offset, "offset", 0, "records to skip")
	qf.StringVar(&decisionsQueryFlags.order, "order", "desc", "sort order by time: asc, desc")
	qf.StringVar(&decisionsQueryFlags.format, "format", "text", "output format: text, json")

	ef := decisionsExportCmd.Flags()
	ef.StringVar(&decisionsExportFlags.policy, "policy", "", "filter by policy, namespace/name")
	ef.StringVar(&decisionsExportFlags.outcome, "outcome", "", "filter by outcome")
	ef.StringVar(&decisionsExportFlags.since, "since", "", "records at or after this RFC3339 time")
	ef.StringVar(&decisionsExportFlags.until, "until", "", "records at or before this RFC3339 time")
	ef.IntVar(&decisionsExportFlags.limit, "limit", 0, "maximum records to export, 0 for all")
	ef.StringVarP(&decisionsExportFlags.output, "output", "o", "-", "output file, - for stdout")
	ef.BoolVar(&decisionsExportFlags.pretty, "pretty", false, "indent the JSON output")
	ef.BoolVar(&decisionsExportFlags.compress, "compress", false, "gzip the output")

	pf := decisionsPruneCmd.Flags()
	pf.IntVar(&decisionsPruneFlags.days, "days", 0, "retention window in days, 0 for configured value")
	pf.Int64Var(&decisionsPruneFlags.maxRecords, "max-records", 0, "record cap, 0 for configured value")
}

// buildQuery assembles a store query from filter flags.
func buildQuery(policy, outcome, since, until, order string, limit, offset int) (*decision.Query, error) {
	query := &decision.Query{
		Policy:    policy,
		Outcome:   outcome,
		Limit:     limit,
		Offset:    offset,
		SortOrder: order,
	}
	if since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since: %w", err)
		}
		query.StartTime = &t
	}
	if until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return nil, fmt.Errorf("invalid --until: %w", err)
		}
		query.EndTime = &t
	}
	return query, nil
}

func openDecisionStore(cfg *config.Config) (decision.Store, error) {
	if cfg.Decision.Backend != "sqlite" {
		return nil, fmt.Errorf("decision backend %q keeps no queryable records; configure decision.backend: sqlite", cfg.Decision.Backend)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return openSQLiteStore(cfg, logger)
}

func queryDecisions(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(decisionsQueryFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openDecisionStore(cfg)
	if err != nil {
		return cli.NewCommandError("decisions query", err)
	}
	defer store.Close()

	query, err := buildQuery(
		decisionsQueryFlags.policy, decisionsQueryFlags.outcome,
		decisionsQueryFlags.since, decisionsQueryFlags.until,
		decisionsQueryFlags.order, decisionsQueryFlags.limit, decisionsQueryFlags.offset,
	)
	if err != nil {
		return err
	}

	records, err := store.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("decisions query", err)
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, records)
	}
	printDecisionsText(records)
	return nil
}

func printDecisionsText(records []*decision.Record) {
	if len(records) == 0 {
		fmt.Println("no matching records")
		return
	}
	fmt.Printf("%-36s  %-24s  %-28s  %-9s  %s\n", "ID", "TIME", "POLICY", "OUTCOME", "DETAIL")
	for _, record := range records {
		detail := ""
		switch record.Outcome {
		case decision.OutcomeError:
			detail = record.Error
		case decision.OutcomeSatisfied:
		default:
			detail = record.Residual
		}
		fmt.Printf("%-36s  %-24s  %-28s  %-9s  %s\n",
			record.ID,
			record.Time.UTC().Format(time.RFC3339),
			record.Policy,
			record.Outcome,
			detail,
		)
	}
}

func exportDecisions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openDecisionStore(cfg)
	if err != nil {
		return cli.NewCommandError("decisions export", err)
	}
	defer store.Close()

	query, err := buildQuery(
		decisionsExportFlags.policy, decisionsExportFlags.outcome,
		decisionsExportFlags.since, decisionsExportFlags.until,
		"asc", decisionsExportFlags.limit, 0,
	)
	if err != nil {
		return err
	}

	records, err := store.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("decisions export", err)
	}

	pretty := decisionsExportFlags.pretty
	if !cmd.Flags().Changed("pretty") && cfg.Decision.Export.Pretty != nil {
		pretty = *cfg.Decision.Export.Pretty
	}
	compress := decisionsExportFlags.compress
	if !cmd.Flags().Changed("compress") {
		compress = cfg.Decision.Export.Compress
	}

	var out io.Writer = os.Stdout
	if decisionsExportFlags.output != "-" {
		f, err := os.Create(decisionsExportFlags.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	exporter := export.NewJSONExporter(pretty, compress)
	if err := exporter.Export(cmd.Context(), records, out); err != nil {
		return cli.NewCommandError("decisions export", err)
	}

	if decisionsExportFlags.output != "-" {
		fmt.Printf("✓ Exported %d record(s) to %s\n", len(records), decisionsExportFlags.output)
	}
	return nil
}

func pruneDecisions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openDecisionStore(cfg)
	if err != nil {
		return cli.NewCommandError("decisions prune", err)
	}
	defer store.Close()

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	retCfg := &retention.Config{
		Days:       cfg.Decision.Retention.Days,
		MaxRecords: cfg.Decision.Retention.MaxRecords,
	}
	if decisionsPruneFlags.days > 0 {
		retCfg.Days = decisionsPruneFlags.days
	}
	if decisionsPruneFlags.maxRecords > 0 {
		retCfg.MaxRecords = decisionsPruneFlags.maxRecords
	}

	pruner := retention.NewPruner(store, retCfg, logger)
	deleted, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("decisions prune", err)
	}
	fmt.Printf("✓ Pruned %d record(s)\n", deleted)
	return nil
}
