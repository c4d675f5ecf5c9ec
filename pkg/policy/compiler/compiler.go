package compiler

import (
	"mercator-hq/callisto/pkg/document"
	"mercator-hq/callisto/pkg/policy/ast"
	"mercator-hq/callisto/pkg/policy/operator"
	"mercator-hq/callisto/pkg/policy/parser"
	"mercator-hq/callisto/pkg/policy/residual"
)

// Checker is a set of policies merged and simplified at compile time
// into per-path constraints, evaluated against documents without
// re-parsing. Its residuals are the plain three-valued model: open
// paths are named with their pending constraints, but no conflict
// witnesses are kept. Callers needing witnesses evaluate through the
// unification engine instead.
type Checker struct {
	ops          *operator.Context
	contradicted bool
	constraints  map[string][]residual.Constraint

	// complex counts sub-expressions outside the comparison/AND
	// fragment; they surface as a ::complex residual entry since the
	// compiled form cannot decide them.
	complex int
}

// Result is a Checker verdict: decided true or false, or a residual
// naming the paths the document left undecided.
type Result struct {
	Value    bool
	Residual map[string][]residual.Constraint
}

// IsResidual reports whether the verdict is undecided.
func (r Result) IsResidual() bool {
	return r.Residual != nil
}

// Compile parses and normalizes policy expressions into a Checker.
// All expressions are conjoined. Parse errors abort compilation;
// contradictions between constraints do not, they compile to a checker
// that is constantly false.
func Compile(exprs []any, ops *operator.Context) (*Checker, error) {
	if ops == nil {
		ops = operator.NewContext(nil)
	}
	c := &Checker{
		ops:         ops,
		constraints: make(map[string][]residual.Constraint),
	}

	for _, expr := range exprs {
		node, err := parser.Parse(expr)
		if err != nil {
			return nil, err
		}
		c.collect(node)
	}

	c.simplify()
	return c, nil
}

// Contradicted reports whether the merged constraints admit no
// document at all.
func (c *Checker) Contradicted() bool {
	return c.contradicted
}

// Constraints returns the simplified per-path constraints, for
// inspection and linting. The returned map must not be mutated.
func (c *Checker) Constraints() map[string][]residual.Constraint {
	return c.constraints
}

// collect normalizes one AST into per-path constraints. Only the
// comparison/AND fragment is representable; everything else lands in
// the complex bucket.
func (c *Checker) collect(node *ast.Node) {
	switch node.Type {
	case ast.NodeCall:
		if node.Op == ast.KeywordAnd {
			for _, child := range node.Children {
				c.collect(child)
			}
			return
		}
		if path, constraint, ok := c.normalizeComparison(node); ok {
			key := residual.PathKey(path)
			c.constraints[key] = append(c.constraints[key], constraint)
			return
		}
	}
	c.complex++
}

// normalizeComparison extracts {path, op, value} from a binary
// comparison between a document accessor and a literal, flipping the
// operator when the literal is on the left.
func (c *Checker) normalizeComparison(node *ast.Node) ([]string, residual.Constraint, bool) {
	if len(node.Children) != 2 {
		return nil, residual.Constraint{}, false
	}
	left, right := node.Children[0], node.Children[1]
	op := node.Op

	if left.Type != ast.NodeDocAccessor && right.Type == ast.NodeDocAccessor {
		flipped, ok := operator.Flip(op)
		if !ok {
			return nil, residual.Constraint{}, false
		}
		left, right = right, left
		op = flipped
	}
	if left.Type != ast.NodeDocAccessor || right.Type != ast.NodeLiteral {
		return nil, residual.Constraint{}, false
	}
	if _, err := c.ops.Resolve(op); err != nil {
		return nil, residual.Constraint{}, false
	}
	return left.Path, residual.Constraint{Op: op, Value: right.Value}, true
}

// simplify reduces each path's constraints with the operators'
// compile-time merge rules, then cross-checks equality values against
// the other constraints on the same path. Any contradiction marks the
// whole checker.
func (c *Checker) simplify() {
	for key, constraints := range c.constraints {
		byOp := make(map[ast.Keyword][]residual.Constraint)
		order := make([]ast.Keyword, 0, 4)
		for _, constraint := range constraints {
			if _, seen := byOp[constraint.Op]; !seen {
				order = append(order, constraint.Op)
			}
			byOp[constraint.Op] = append(byOp[constraint.Op], constraint)
		}

		merged := make([]residual.Constraint, 0, len(order))
		for _, op := range order {
			group := byOp[op]
			spec, err := c.ops.Resolve(op)
			if err != nil || spec.Simplify == nil {
				merged = append(merged, group...)
				continue
			}
			result := spec.Simplify(group)
			if result.Contradicted {
				c.contradicted = true
				return
			}
			merged = append(merged, result.Simplified...)
		}

		if c.equalityContradiction(merged) {
			c.contradicted = true
			return
		}
		c.constraints[key] = merged
	}
}

// equalityContradiction checks a pinned equality value against every
// other constraint on the path: if the only admissible value violates
// a sibling constraint, no document can satisfy the path.
func (c *Checker) equalityContradiction(constraints []residual.Constraint) bool {
	var pinned any
	havePinned := false
	for _, constraint := range constraints {
		if constraint.Op == "=" {
			pinned = constraint.Value
			havePinned = true
			break
		}
	}
	if !havePinned {
		return false
	}
	for _, constraint := range constraints {
		if constraint.Op == "=" {
			continue
		}
		ok, err := c.ops.Eval(constraint, pinned)
		if err != nil {
			continue
		}
		if !ok {
			return true
		}
	}
	return false
}

// Check evaluates the compiled constraints against a document.
func (c *Checker) Check(doc map[string]any) Result {
	if c.contradicted {
		return Result{Value: false}
	}

	open := make(map[string][]residual.Constraint)
	for key, constraints := range c.constraints {
		path := residual.ParsePath(key)
		actual, found := document.Lookup(doc, path)
		if !found {
			open[key] = append([]residual.Constraint(nil), constraints...)
			continue
		}
		for _, constraint := range constraints {
			ok, err := c.ops.Eval(constraint, actual)
			if err != nil {
				// Unknown or inapplicable operator at check time keeps
				// the path undecided rather than failing the document.
				open[key] = append(open[key], constraint)
				continue
			}
			if !ok {
				return Result{Value: false}
			}
		}
	}

	if c.complex > 0 {
		open[residual.ComplexKey] = append(open[residual.ComplexKey],
			residual.Constraint{Op: "complex", Value: c.complex})
	}
	if len(open) > 0 {
		return Result{Residual: open}
	}
	return Result{Value: true}
}
