package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/policy/ast"
	"mercator-hq/callisto/pkg/policy/negate"
	"mercator-hq/callisto/pkg/policy/operator"
	"mercator-hq/callisto/pkg/policy/parser"
	"mercator-hq/callisto/pkg/policy/source"
)

var negateCmd = &cobra.Command{
	Use:   "negate <expression>",
	Short: "Print the logical complement of an expression",
	Long: `Parse a policy expression and print its logical complement:
connectives follow De Morgan, quantifiers swap, and comparison
operators rewrite to their declared negations. Sub-expressions with no
computable complement render as [":complex" reason ...] markers and a
warning goes to stderr.

The expression is YAML (JSON works too); the output is JSON in the
same vector form.

Examples:
  callisto negate '[":=", ":doc/role", "admin"]'
  callisto negate '[":and", [":>", ":doc/level", 3], [":=", ":doc/region", "eu"]]'`,
	Args: cobra.ExactArgs(1),
	RunE: negateExpr,
}

func init() {
	rootCmd.AddCommand(negateCmd)
}

func negateExpr(cmd *cobra.Command, args []string) error {
	var raw any
	if err := yaml.Unmarshal([]byte(args[0]), &raw); err != nil {
		return fmt.Errorf("parsing expression: %w", err)
	}

	node, err := parser.Parse(source.NormalizeExpr(raw))
	if err != nil {
		return cli.NewCommandError("negate", err)
	}

	negated := negate.Negate(node, operator.NewContext(nil))
	if negate.HasComplex(negated) {
		fmt.Fprintln(os.Stderr, "warning: parts of the expression have no computable complement")
	}

	out, err := json.Marshal(ast.ToExpr(negated))
	if err != nil {
		return cli.NewCommandError("negate", err)
	}
	fmt.Println(string(out))
	return nil
}
