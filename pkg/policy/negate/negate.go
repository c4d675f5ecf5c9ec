package negate

import (
	"errors"
	"fmt"

	"mercator-hq/callisto/pkg/policy/ast"
	"mercator-hq/callisto/pkg/policy/operator"
)

// Negate returns the logical complement of a policy AST. The input is
// never mutated.
//
// Connectives follow De Morgan with children negated recursively, not
// is eliminated by returning its child, quantifiers swap forall and
// exists with the body negated, and comparisons rewrite to the
// operator's declared negation. Anything without a meaningful
// complement (bare literals and accessors, value functions, thunks,
// operators with no negate key) becomes a complex marker rather than a
// guess; HasComplex detects those after the fact.
func Negate(node *ast.Node, ops *operator.Context) *ast.Node {
	if ops == nil {
		ops = operator.NewContext(nil)
	}
	return negateNode(node, ops)
}

func negateNode(node *ast.Node, ops *operator.Context) *ast.Node {
	switch node.Type {
	case ast.NodeCall:
		return negateCall(node, ops)

	case ast.NodeQuantifier:
		return negateQuantifier(node, ops)

	case ast.NodeLet:
		// Bindings are value definitions, not assertions; negation
		// applies to the body alone.
		out := *node
		out.Children = []*ast.Node{negateNode(node.Body(), ops)}
		return &out

	case ast.NodePolicyRef:
		return ast.NewComplex(
			fmt.Sprintf("policy reference %s/%s cannot be negated without resolution", node.Namespace, node.Name),
			node)

	case ast.NodeComplex:
		return node

	default:
		// Literals, accessors, value-fns, and thunks only carry truth
		// value as operands of a comparison.
		return ast.NewComplex(
			fmt.Sprintf("%s node cannot be negated standalone", node.Type),
			node)
	}
}

func negateCall(node *ast.Node, ops *operator.Context) *ast.Node {
	switch node.Op {
	case ast.KeywordAnd, ast.KeywordOr:
		flipped := ast.KeywordOr
		if node.Op == ast.KeywordOr {
			flipped = ast.KeywordAnd
		}
		children := make([]*ast.Node, len(node.Children))
		for i, child := range node.Children {
			children[i] = negateNode(child, ops)
		}
		out := *node
		out.Op = flipped
		out.Children = children
		return &out

	case ast.KeywordNot:
		if len(node.Children) == 1 {
			return node.Children[0]
		}
		return ast.NewComplex("not takes exactly one argument", node)
	}

	spec, err := ops.Resolve(node.Op)
	if err != nil {
		return ast.NewComplex(
			fmt.Sprintf("unknown operator %q", node.Op), node)
	}
	if spec.NegateKey == "" {
		return ast.NewComplex(
			fmt.Sprintf("operator %q declares no negation", node.Op), node)
	}

	out := *node
	out.Op = spec.NegateKey
	return &out
}

func negateQuantifier(node *ast.Node, ops *operator.Context) *ast.Node {
	flipped := ast.KeywordExists
	if node.Op == ast.KeywordExists {
		flipped = ast.KeywordForall
	}
	out := *node
	out.Op = flipped
	out.Children = []*ast.Node{negateNode(node.Body(), ops)}
	return &out
}

// errFound stops a walk early once a marker is seen.
var errFound = errors.New("found")

// HasComplex reports whether any node in the tree, filter expressions
// included, is a complex marker. A negated policy containing one
// cannot be evaluated to a definite complement.
func HasComplex(node *ast.Node) bool {
	err := ast.Walk(node, func(n *ast.Node) error {
		if n.Type == ast.NodeComplex {
			return errFound
		}
		return nil
	})
	return err != nil
}
