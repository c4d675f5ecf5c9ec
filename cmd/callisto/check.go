package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/policy/compiler"
	"mercator-hq/callisto/pkg/policy/module"
	"mercator-hq/callisto/pkg/policy/operator"
	"mercator-hq/callisto/pkg/policy/source"
)

var checkFlags struct {
	policy string
	doc    string
	files  []string
	format string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a compiled checker over a JSON document",
	Long: `Compile a policy into per-path constraints and check a document
against them. Compiled checking decides true or false without the full
unification machinery; documents that leave constraints unchecked
report the undecided paths instead. Conflict witnesses are not kept;
use eval when you need them.

Examples:
  # Check a document
  callisto check --policy access/is-admin --doc request.json --file policies.yaml

  # JSON output
  callisto check --policy access/is-admin --doc request.json --file policies.yaml --format json`,
	RunE: checkPolicy,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFlags.policy, "policy", "p", "", "policy to check, namespace/name")
	checkCmd.Flags().StringVarP(&checkFlags.doc, "doc", "d", "", "JSON document file, or - for stdin")
	checkCmd.Flags().StringArrayVarP(&checkFlags.files, "file", "f", nil, "module file or directory (repeatable, overrides config paths)")
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json")

	checkCmd.MarkFlagRequired("policy")
	checkCmd.MarkFlagRequired("doc")
}

// checkResult is the check command output shape.
type checkResult struct {
	Policy       string              `json:"policy"`
	Decided      bool                `json:"decided"`
	Value        bool                `json:"value,omitempty"`
	Contradicted bool                `json:"contradicted,omitempty"`
	Undecided    map[string][]string `json:"undecided,omitempty"`
}

func checkPolicy(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(checkFlags.format)
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

	paths, err := resolvePaths(checkFlags.files, cfg)
	if err != nil {
		return err
	}

	doc, err := readDocument(checkFlags.doc)
	if err != nil {
		return err
	}

	expr, err := findPolicyExpr(cmd.Context(), cfg, paths, logger, checkFlags.policy)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	ops := operator.NewContext(nil)
	ops.Strict = cfg.Policy.StrictOperators
	checker, err := compiler.Compile([]any{expr}, ops)
	if err != nil {
		return cli.NewCommandError("check", fmt.Errorf("compiling policy: %w", err))
	}

	result := checkResult{
		Policy:       checkFlags.policy,
		Contradicted: checker.Contradicted(),
	}
	verdict := checker.Check(doc)
	if verdict.IsResidual() {
		result.Undecided = make(map[string][]string, len(verdict.Residual))
		for path, constraints := range verdict.Residual {
			rendered := make([]string, len(constraints))
			for i, c := range constraints {
				rendered[i] = c.String()
			}
			sort.Strings(rendered)
			result.Undecided[path] = rendered
		}
	} else {
		result.Decided = true
		result.Value = verdict.Value
	}

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
			return err
		}
	} else {
		printCheckText(result)
	}

	if result.Decided && !result.Value {
		return cli.NewCommandError("check", fmt.Errorf("policy %s not satisfied", checkFlags.policy))
	}
	return nil
}

func printCheckText(result checkResult) {
	fmt.Printf("policy: %s\n", result.Policy)
	switch {
	case result.Decided:
		fmt.Printf("result: %t\n", result.Value)
	default:
		fmt.Println("result: undecided")
		paths := make([]string, 0, len(result.Undecided))
		for path := range result.Undecided {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			fmt.Printf("  %s: %v\n", path, result.Undecided[path])
		}
	}
	if result.Contradicted {
		fmt.Println("note: constraints contradict, no document can satisfy this policy")
	}
}

// findPolicyExpr loads module definitions and extracts the raw
// expression of one policy, spec or bare form.
func findPolicyExpr(ctx context.Context, cfg *config.Config, paths []string, logger *slog.Logger, policy string) (any, error) {
	ns, name, ok := splitPolicy(policy)
	if !ok {
		return nil, fmt.Errorf("policy name %q must have the form namespace/name", policy)
	}

	var defs []module.ModuleDef
	for _, path := range paths {
		loaded, err := source.NewFileSource(path, logger).Load(ctx)
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}

	for _, def := range defs {
		if def.Namespace != ns {
			continue
		}
		raw, found := def.Policies[name]
		if !found {
			break
		}
		switch spec := raw.(type) {
		case module.PolicySpec:
			return spec.Expr, nil
		case *module.PolicySpec:
			return spec.Expr, nil
		default:
			return raw, nil
		}
	}
	return nil, fmt.Errorf("policy %q not found", policy)
}

// splitPolicy splits "namespace/name" at the first slash.
func splitPolicy(policy string) (string, string, bool) {
	for i := 0; i < len(policy); i++ {
		if policy[i] == '/' {
			if i == 0 || i == len(policy)-1 {
				return "", "", false
			}
			return policy[:i], policy[i+1:], true
		}
	}
	return "", "", false
}
