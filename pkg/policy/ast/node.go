package ast

// NodeType discriminates the closed set of AST node variants. Every
// component that walks the tree (parser, evaluator, negator, compiler)
// switches exhaustively on this type.
type NodeType string

const (
	// NodeLiteral is a constant value (string, number, bool, nil,
	// vector, map).
	NodeLiteral NodeType = "literal"

	// NodeDocAccessor reads a path from the document under evaluation.
	NodeDocAccessor NodeType = "doc-accessor"

	// NodeSelfAccessor reads a let-bound value.
	NodeSelfAccessor NodeType = "self-accessor"

	// NodeParamAccessor reads a caller-supplied parameter.
	NodeParamAccessor NodeType = "param-accessor"

	// NodeEventAccessor reads a field of the triggering event payload.
	NodeEventAccessor NodeType = "event-accessor"

	// NodeURIAccessor references an external URI-addressed value. The
	// engine carries it but evaluates it to a complex marker; resolution
	// belongs to a collaborator outside this module.
	NodeURIAccessor NodeType = "uri-accessor"

	// NodeBindingAccessor reads a path from the element bound by an
	// enclosing quantifier or value function.
	NodeBindingAccessor NodeType = "binding-accessor"

	// NodeCall is a function call: a boolean connective (and/or/not), a
	// comparison operator, or a custom registered operator.
	NodeCall NodeType = "call"

	// NodeQuantifier is forall/exists over a collection binding.
	NodeQuantifier NodeType = "quantifier"

	// NodeValueFn is an aggregation (fn/count, fn/sum, ...) over a
	// collection binding.
	NodeValueFn NodeType = "value-fn"

	// NodePolicyRef references a named policy in a module namespace,
	// optionally with a parameter map.
	NodePolicyRef NodeType = "policy-ref"

	// NodeLet introduces local self-bindings for its body.
	NodeLet NodeType = "let"

	// NodeThunk wraps an opaque host value (a Go func) whose evaluation
	// is delayed until unification.
	NodeThunk NodeType = "thunk"

	// NodeComplex marks a sub-tree that cannot be expressed in the
	// constraint algebra (produced by negation, never by the parser).
	NodeComplex NodeType = "complex"
)

// Node is an immutable policy AST node. Which fields are meaningful
// depends on Type; unused fields are zero.
type Node struct {
	// Type discriminates the node variant.
	Type NodeType

	// Value holds the literal value (NodeLiteral), the wrapped host
	// callable (NodeThunk), or complex-marker details (NodeComplex).
	Value any

	// Op is the operator or connective keyword for calls, the
	// quantifier keyword for quantifiers, and the aggregation keyword
	// for value functions.
	Op Keyword

	// Path is the accessed path for accessor nodes: the document path
	// for doc accessors, the path under the owning namespace for
	// self/param/event accessors, and the path within the bound
	// element for binding accessors.
	Path []string

	// BindingName is the name of the enclosing binding a
	// binding-accessor refers to.
	BindingName string

	// Namespace and Name identify the target of a policy reference.
	Namespace string
	Name      string

	// Params is the parameter map supplied to a policy reference.
	Params map[string]*Node

	// Children are the arguments of a call node, the single body of a
	// quantifier/value-fn/let/complex node, or empty.
	Children []*Node

	// Binding describes the collection binding of a quantifier or
	// value-fn node.
	Binding *Binding

	// Bindings are the name/expression pairs of a let node, in
	// declaration order.
	Bindings []LetBinding

	// Position is the token-index range this node was parsed from.
	Position Position

	// Meta carries auxiliary parse-time data (e.g. the raw URI of a
	// uri-accessor, the reason of a complex marker).
	Meta map[string]any
}

// Binding is the named reference to the current element during
// collection traversal, produced by quantifier and value-fn parsing.
type Binding struct {
	// Name is the binding name; binding accessors in the body use it
	// as their namespace.
	Name string

	// Namespace identifies where the collection lives: "doc" for
	// top-level collections, or the name of an enclosing binding for
	// nested quantifiers.
	Namespace string

	// Path is the collection path within Namespace.
	Path []string

	// Where is an optional filter expression evaluated per element.
	Where *Node
}

// LetBinding is a single name/expression pair of a let node.
type LetBinding struct {
	Name string
	Expr *Node
}

// IsAccessor returns true for every accessor variant.
func (n *Node) IsAccessor() bool {
	switch n.Type {
	case NodeDocAccessor, NodeSelfAccessor, NodeParamAccessor,
		NodeEventAccessor, NodeURIAccessor, NodeBindingAccessor:
		return true
	}
	return false
}

// IsConnective returns true if n is an and/or/not call.
func (n *Node) IsConnective() bool {
	if n.Type != NodeCall {
		return false
	}
	return n.Op == KeywordAnd || n.Op == KeywordOr || n.Op == KeywordNot
}

// Body returns the single body child of a quantifier, value-fn, let, or
// complex node, or nil.
func (n *Node) Body() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

// ComplexReason returns the reason string of a complex marker, or "".
func (n *Node) ComplexReason() string {
	if n.Type != NodeComplex || n.Meta == nil {
		return ""
	}
	reason, _ := n.Meta["reason"].(string)
	return reason
}

// NewComplex constructs a complex marker wrapping the given children,
// recording why the sub-tree could not be transformed.
func NewComplex(reason string, children ...*Node) *Node {
	pos := Position{}
	for _, c := range children {
		if pos.Start == 0 && pos.End == 0 {
			pos = c.Position
			continue
		}
		if c.Position.Start < pos.Start {
			pos.Start = c.Position.Start
		}
		if c.Position.End > pos.End {
			pos.End = c.Position.End
		}
	}
	return &Node{
		Type:     NodeComplex,
		Children: children,
		Position: pos,
		Meta:     map[string]any{"reason": reason},
	}
}
