package unify

import (
	"fmt"
	"reflect"

	"mercator-hq/callisto/pkg/document"
	"mercator-hq/callisto/pkg/policy/ast"
	"mercator-hq/callisto/pkg/policy/collection"
	"mercator-hq/callisto/pkg/policy/module"
	"mercator-hq/callisto/pkg/policy/operator"
	"mercator-hq/callisto/pkg/policy/parser"
	"mercator-hq/callisto/pkg/policy/residual"
)

// Unify evaluates a policy against a document and returns the residual:
// satisfied (empty), open constraints on absent data, or conflicts with
// the witnessing values.
//
// policy may be a parsed *ast.Node, a raw DSL expression (parsed
// first), or a pre-normalized constraint set
// (map[string][]residual.Constraint, evaluated path by path).
//
// The only error conditions are parse failures, strict-mode unknown
// operators, circular computed-field dependencies (*CycleError), and
// exceeding Options.MaxDepth (*DepthError). Missing document data is
// never an error.
func Unify(policy any, doc map[string]any, opts *Options) (residual.Residual, error) {
	e := &evaluator{
		doc:      doc,
		ops:      opts.operatorContext(),
		colls:    opts.collections(),
		registry: opts.registry(),
		params:   opts.params(),
		self:     opts.self(),
		event:    opts.event(),
		trace:    opts.trace(),
		maxDepth: opts.maxDepth(),
		bindings: map[string]any{},
		onStack:  map[string]bool{},
	}

	if cs, ok := policy.(map[string][]residual.Constraint); ok {
		res := e.evalConstraintSet(cs)
		if e.err != nil {
			return nil, e.err
		}
		return res, nil
	}

	node, err := normalize(policy)
	if err != nil {
		return nil, err
	}

	res := e.asBool(e.eval(node))
	if e.err != nil {
		return nil, e.err
	}
	return res, nil
}

// normalize turns the accepted policy inputs into an AST.
func normalize(policy any) (*ast.Node, error) {
	if node, ok := policy.(*ast.Node); ok {
		return node, nil
	}
	return parser.Parse(policy)
}

// result is the internal evaluation outcome: a concrete value when res
// is empty, a residual otherwise.
type result struct {
	value any
	res   residual.Residual
}

func concrete(v any) result {
	return result{value: v}
}

func pending(r residual.Residual) result {
	return result{res: r}
}

func (r result) isConcrete() bool {
	return r.res.IsSatisfied()
}

type evaluator struct {
	doc      map[string]any
	ops      *operator.Context
	colls    *collection.Registry
	registry *module.Registry
	params   map[string]any
	self     map[string]any
	event    map[string]any
	trace    *collection.Trace
	maxDepth int

	// bindings holds the elements bound by enclosing quantifiers and
	// value functions, by binding name.
	bindings map[string]any

	// stack and onStack implement computed-field cycle detection.
	stack   []string
	onStack map[string]bool

	depth int

	// err carries the hard faults (cycle, depth) out of hook callbacks
	// that cannot return errors themselves.
	err error
}

// asBool folds a result into the residual algebra: a non-satisfied
// residual passes through, nil and false become an all-conflict
// residual so negation can discharge them, anything else is truthy and
// satisfied.
func (e *evaluator) asBool(r result) residual.Residual {
	if !r.isConcrete() {
		return r.res
	}
	if r.value == nil || r.value == false {
		return falsified(r.value)
	}
	return residual.Satisfied()
}

// falsified records a concretely false evaluation as a conflict term
// under the complex key. Every term is a conflict, so AllConflicts
// holds and NOT of this residual is satisfied.
func falsified(witness any) residual.Residual {
	return residual.Residual{residual.ComplexKey: {{
		Kind:       residual.TermConflict,
		Constraint: residual.Constraint{Op: "=", Value: true},
		Witness:    witness,
	}}}
}

func complexResult(typ, reason string, node *ast.Node) result {
	return pending(residual.FromComplex(&residual.Complex{
		Type:   typ,
		Reason: reason,
		Node:   node,
	}))
}

func (e *evaluator) enter() bool {
	e.depth++
	if e.maxDepth > 0 && e.depth > e.maxDepth {
		if e.err == nil {
			e.err = &DepthError{MaxDepth: e.maxDepth}
		}
		return false
	}
	return true
}

func (e *evaluator) leave() {
	e.depth--
}

func (e *evaluator) eval(node *ast.Node) result {
	if e.err != nil {
		return concrete(nil)
	}

	switch node.Type {
	case ast.NodeLiteral:
		return concrete(node.Value)

	case ast.NodeThunk:
		return e.evalThunk(node)

	case ast.NodeDocAccessor:
		return e.evalDocAccessor(node.Path)

	case ast.NodeSelfAccessor:
		return e.evalNamespaced(ast.NamespaceSelf, e.self, node.Path)

	case ast.NodeEventAccessor:
		return e.evalNamespaced(ast.NamespaceEvent, e.event, node.Path)

	case ast.NodeParamAccessor:
		return e.evalParam(node)

	case ast.NodeURIAccessor:
		return complexResult("uri", "uri-addressed values resolve outside the engine", node)

	case ast.NodeBindingAccessor:
		return e.evalBindingAccessor(node)

	case ast.NodeCall:
		return e.evalCall(node)

	case ast.NodeQuantifier, ast.NodeValueFn:
		return e.evalCollection(node)

	case ast.NodePolicyRef:
		return e.evalPolicyRef(node)

	case ast.NodeLet:
		return e.evalLet(node)

	case ast.NodeComplex:
		return complexResult("marker", node.ComplexReason(), node)
	}

	return complexResult("unknown-node", fmt.Sprintf("unhandled node type %s", node.Type), node)
}

// resolveDoc looks up a document path, evaluating computed fields
// (embedded policy expressions) lazily in place with cycle detection.
func (e *evaluator) resolveDoc(path []string) (any, bool) {
	v, found := document.Lookup(e.doc, path)
	if !found {
		return nil, false
	}
	if !isPolicyExpr(v) {
		return v, true
	}

	key := residual.PathKey(path)
	if e.onStack[key] {
		stack := append(append([]string(nil), e.stack...), key)
		e.err = &CycleError{Key: key, Stack: stack}
		return nil, false
	}

	if !e.enter() {
		return nil, false
	}
	defer e.leave()

	e.stack = append(e.stack, key)
	e.onStack[key] = true
	defer func() {
		e.stack = e.stack[:len(e.stack)-1]
		delete(e.onStack, key)
	}()

	node, err := parser.Parse(v)
	if err != nil {
		// A malformed embedded expression is treated as a plain value.
		return v, true
	}
	r := e.eval(node)
	if e.err != nil {
		return nil, false
	}
	if !r.isConcrete() {
		// Propagate the nested residual as the accessor's outcome by
		// letting the caller see a miss; the residual itself is lost
		// in value position, so surface it as the computed value.
		return r.res, true
	}
	return r.value, true
}

// evalNamespaced resolves self and event accessors. A miss is tagged
// with the namespace so it cannot be mistaken for document data.
func (e *evaluator) evalNamespaced(ns string, scope map[string]any, path []string) result {
	if scope != nil {
		if v, found := document.Lookup(scope, path); found {
			return concrete(v)
		}
	}
	tagged := append([]string{ns}, path...)
	return pending(residual.Miss(tagged))
}

func (e *evaluator) evalParam(node *ast.Node) result {
	name := node.Path[0]
	v, bound := e.params[name]
	if !bound {
		return pending(residual.UnboundParam(name))
	}
	if _, unbound := v.(unboundSentinel); unbound {
		return pending(residual.UnboundParam(name))
	}
	if len(node.Path) > 1 {
		m, ok := v.(map[string]any)
		if !ok {
			return pending(residual.UnboundParam(name))
		}
		nested, found := document.Lookup(m, node.Path[1:])
		if !found {
			return pending(residual.UnboundParam(name))
		}
		return concrete(nested)
	}
	return concrete(v)
}

// evalBindingAccessor reads a path within the element bound by an
// enclosing quantifier or value function. Residual keys are
// element-relative; the enclosing traversal splices in the collection
// path and element index.
func (e *evaluator) evalBindingAccessor(node *ast.Node) result {
	elem, bound := e.bindings[node.BindingName]
	if !bound {
		return complexResult("unbound-binding",
			fmt.Sprintf("no element bound under %q", node.BindingName), node)
	}
	if len(node.Path) == 0 {
		return concrete(elem)
	}
	m, ok := elem.(map[string]any)
	if !ok {
		return pending(residual.Miss(node.Path))
	}
	v, found := document.Lookup(m, node.Path)
	if !found {
		return pending(residual.Miss(node.Path))
	}
	if isPolicyExpr(v) {
		// Computed fields inside elements share the evaluator's cycle
		// stack, keyed element-relative.
		saved := e.doc
		e.doc = m
		defer func() { e.doc = saved }()
		return e.evalDocAccessor(node.Path)
	}
	return concrete(v)
}

// evalDocAccessor resolves a document path in value position. Computed
// fields that themselves yield residuals surface as that residual.
func (e *evaluator) evalDocAccessor(path []string) result {
	v, found := e.resolveDoc(path)
	if e.err != nil {
		return concrete(nil)
	}
	if !found {
		return pending(residual.Miss(path))
	}
	if r, ok := v.(residual.Residual); ok {
		return pending(r)
	}
	return concrete(v)
}

// evalThunk calls a host function wrapped at parse time. Supported
// shapes are func() any and func(doc) any; anything else degrades to a
// complex marker.
func (e *evaluator) evalThunk(node *ast.Node) result {
	switch fn := node.Value.(type) {
	case func() any:
		return concrete(fn())
	case func(map[string]any) any:
		return concrete(fn(e.doc))
	}

	rv := reflect.ValueOf(node.Value)
	if rv.Kind() != reflect.Func {
		return complexResult("thunk", "thunk value is not callable", node)
	}
	rt := rv.Type()
	if rt.NumOut() != 1 {
		return complexResult("thunk",
			fmt.Sprintf("thunk must return one value, has %d", rt.NumOut()), node)
	}
	switch rt.NumIn() {
	case 0:
		return concrete(rv.Call(nil)[0].Interface())
	case 1:
		if rt.In(0) == reflect.TypeOf(map[string]any(nil)) {
			return concrete(rv.Call([]reflect.Value{reflect.ValueOf(e.doc)})[0].Interface())
		}
	}
	return complexResult("thunk",
		fmt.Sprintf("unsupported thunk signature %s", rt), node)
}

func (e *evaluator) evalCall(node *ast.Node) result {
	switch node.Op {
	case ast.KeywordAnd:
		return e.evalAnd(node)
	case ast.KeywordOr:
		return e.evalOr(node)
	case ast.KeywordNot:
		return e.evalNot(node)
	}

	spec, err := e.ops.Resolve(node.Op)
	if err != nil {
		if e.ops.Strict {
			e.err = err
			return concrete(nil)
		}
		return complexResult("unknown-operator", err.Error(), node)
	}

	if len(node.Children) == 2 {
		return e.evalComparison(spec, node)
	}
	return e.evalGenericCall(spec, node)
}

// evalAnd evaluates every child so all conflicts and residuals are
// collected for diagnostics, then conjoins them.
func (e *evaluator) evalAnd(node *ast.Node) result {
	out := residual.Satisfied()
	for _, child := range node.Children {
		out = residual.Merge(out, e.asBool(e.eval(child)))
		if e.err != nil {
			return concrete(nil)
		}
	}
	if out.IsSatisfied() {
		return concrete(true)
	}
	return pending(out)
}

// evalOr short-circuits on the first satisfied branch; otherwise the
// unsatisfied branches fold into an or-marker.
func (e *evaluator) evalOr(node *ast.Node) result {
	branches := make([]residual.Residual, 0, len(node.Children))
	for _, child := range node.Children {
		r := e.asBool(e.eval(child))
		if e.err != nil {
			return concrete(nil)
		}
		if r.IsSatisfied() {
			return concrete(true)
		}
		branches = append(branches, r)
	}
	if len(branches) == 0 {
		// [or] with no branches is false.
		return concrete(false)
	}
	return pending(residual.CombineAll(branches...))
}

// evalNot applies the three negation rules: an all-conflict child is
// discharged to satisfied, a satisfied child cannot yield a falsifying
// residual and degrades to complex, and anything open or mixed is
// complex as well.
func (e *evaluator) evalNot(node *ast.Node) result {
	if len(node.Children) != 1 {
		return complexResult("not", "not takes exactly one argument", node)
	}
	r := e.asBool(e.eval(node.Children[0]))
	if e.err != nil {
		return concrete(nil)
	}
	if r.AllConflicts() {
		return concrete(true)
	}
	if r.IsSatisfied() {
		return complexResult("not", "negation of a satisfied expression", node)
	}
	return pending(residual.FromComplex(&residual.Complex{
		Type:     "not",
		Reason:   "negation of an unresolved expression",
		Branches: []residual.Residual{r},
		Node:     node,
	}))
}

// evalGenericCall handles registered operators of arity other than
// two: children evaluate recursively and any unresolved child makes
// the whole call complex rather than guessing.
func (e *evaluator) evalGenericCall(spec *operator.Spec, node *ast.Node) result {
	if len(node.Children) == 0 {
		return complexResult("call", "operator call with no arguments", node)
	}

	args := make([]any, len(node.Children))
	for i, child := range node.Children {
		r := e.eval(child)
		if e.err != nil {
			return concrete(nil)
		}
		if !r.isConcrete() {
			return pending(residual.FromComplex(&residual.Complex{
				Type:     "call",
				Reason:   fmt.Sprintf("operand %d of %s did not resolve", i, node.Op),
				Branches: []residual.Residual{r.res},
				Node:     node,
			}))
		}
		args[i] = r.value
	}

	// Registered operators are binary; fold left over the arguments.
	acc := args[0]
	for _, arg := range args[1:] {
		ok, err := spec.Eval(acc, arg)
		if err != nil {
			return complexResult("operator-error", err.Error(), node)
		}
		if !ok {
			return concrete(false)
		}
		acc = arg
	}
	return concrete(true)
}

func (e *evaluator) evalCollection(node *ast.Node) result {
	op, ok := e.colls.Get(node.Op)
	if !ok {
		return complexResult("unknown-collection-op",
			fmt.Sprintf("no collection operator registered for %q", node.Op), node)
	}

	if !e.enter() {
		return concrete(nil)
	}
	defer e.leave()

	var body *ast.Node
	if node.Type == ast.NodeQuantifier {
		body = node.Body()
	}

	res := collection.Traverse(op, node.Binding, body, collection.Hooks{
		Resolve: e.resolveCollection,
		Eval:    e.evalElementExpr(node.Binding.Name),
		Trace:   e.trace,
	})
	if e.err != nil {
		return concrete(nil)
	}
	if res.IsResidual() {
		return pending(res.Residual)
	}
	return concrete(res.Value)
}

// resolveCollection finds the bound collection: namespace "doc"
// resolves against the document, any other namespace against a
// previously bound element.
func (e *evaluator) resolveCollection(ns string, path []string) (any, bool) {
	if ns == ast.NamespaceDoc {
		return e.resolveDoc(path)
	}
	elem, bound := e.bindings[ns]
	if !bound {
		return nil, false
	}
	m, ok := elem.(map[string]any)
	if !ok {
		return nil, false
	}
	return document.Lookup(m, path)
}

// evalElementExpr returns the traversal hook that evaluates filter and
// body expressions with the element bound under name.
func (e *evaluator) evalElementExpr(name string) func(*ast.Node, any, int) collection.Outcome {
	return func(expr *ast.Node, elem any, idx int) collection.Outcome {
		prev, had := e.bindings[name]
		e.bindings[name] = elem
		defer func() {
			if had {
				e.bindings[name] = prev
			} else {
				delete(e.bindings, name)
			}
		}()

		r := e.eval(expr)
		if e.err != nil {
			return collection.Outcome{Value: nil}
		}
		if r.isConcrete() {
			return collection.Outcome{Value: r.value}
		}
		return collection.Outcome{Residual: r.res}
	}
}

// evalPolicyRef resolves a referenced policy and evaluates its AST
// with merged parameters. Parameter precedence, lowest first: module
// defaults, inherited context params, explicitly supplied params.
// Still-missing required parameters do not fail the call; they surface
// in the residual and evaluation proceeds.
func (e *evaluator) evalPolicyRef(node *ast.Node) result {
	if e.registry == nil {
		return complexResult("unknown-namespace",
			"no module registry supplied", node)
	}
	policy, found := e.registry.ResolvePolicy(node.Namespace, node.Name)
	if !found {
		return complexResult("unknown-policy",
			fmt.Sprintf("no policy %s/%s in registry", node.Namespace, node.Name), node)
	}

	merged := make(map[string]any, len(policy.Params)+len(e.params)+len(node.Params))
	unbound := residual.Satisfied()

	for pname, def := range policy.Params {
		if def != nil {
			merged[pname] = def
		}
	}
	for pname, v := range e.params {
		merged[pname] = v
	}
	for pname, expr := range node.Params {
		r := e.eval(expr)
		if e.err != nil {
			return concrete(nil)
		}
		if !r.isConcrete() {
			unbound = residual.Merge(unbound, r.res)
			continue
		}
		merged[pname] = r.value
	}
	for pname := range policy.Params {
		if _, ok := merged[pname]; !ok {
			unbound = residual.Merge(unbound, residual.UnboundParam(pname))
		}
	}

	if !e.enter() {
		return concrete(nil)
	}
	defer e.leave()

	savedParams := e.params
	e.params = merged
	defer func() { e.params = savedParams }()

	body := e.asBool(e.eval(policy.AST))
	if e.err != nil {
		return concrete(nil)
	}
	out := residual.Merge(unbound, body)
	if out.IsSatisfied() {
		return concrete(true)
	}
	return pending(out)
}

// evalLet binds each name/expression pair in order, earlier names
// visible to later expressions. Any binding that does not resolve to a
// concrete value short-circuits the let with a complex marker; a name
// cannot be partially bound.
func (e *evaluator) evalLet(node *ast.Node) result {
	scope := make(map[string]any, len(e.self)+len(node.Bindings))
	for k, v := range e.self {
		scope[k] = v
	}

	savedSelf := e.self
	e.self = scope
	defer func() { e.self = savedSelf }()

	for _, b := range node.Bindings {
		r := e.eval(b.Expr)
		if e.err != nil {
			return concrete(nil)
		}
		if !r.isConcrete() {
			return pending(residual.FromComplex(&residual.Complex{
				Type:     "let",
				Reason:   fmt.Sprintf("binding %q did not resolve to a value", b.Name),
				Branches: []residual.Residual{r.res},
				Node:     node,
			}))
		}
		scope[b.Name] = r.value
	}

	return e.eval(node.Body())
}

// evalConstraintSet checks a pre-normalized path-to-constraints map
// directly against the document, bypassing the AST.
func (e *evaluator) evalConstraintSet(cs map[string][]residual.Constraint) residual.Residual {
	out := residual.Satisfied()
	for key, constraints := range cs {
		path := residual.ParsePath(key)
		actual, found := e.resolveDoc(path)
		if e.err != nil {
			return nil
		}
		for _, c := range constraints {
			if !found {
				out = residual.Merge(out, residual.Open(path, c.Op, c.Value))
				continue
			}
			ok, err := e.ops.Eval(c, actual)
			if err != nil {
				if e.ops.Strict {
					e.err = err
					return nil
				}
				out = residual.Merge(out, residual.FromComplex(&residual.Complex{
					Type:   "unknown-operator",
					Reason: err.Error(),
				}))
				continue
			}
			if !ok {
				out = residual.Merge(out, residual.Conflict(path, c.Op, c.Value, actual))
			}
		}
	}
	return out
}
