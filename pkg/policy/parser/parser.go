package parser

import (
	"reflect"
	"strings"

	"mercator-hq/callisto/pkg/policy/ast"
)

// Parse classifies a nested-vector policy expression into an AST.
//
// The input is a host value tree, not text: vectors are []any, keywords
// are ast.Keyword values or strings prefixed with ":" (Go has no
// keyword literal, so both spellings are accepted everywhere a keyword
// is expected). Plain strings are literals.
//
// Errors are structured *Error values; Parse never panics on malformed
// input.
func Parse(expr any) (*ast.Node, error) {
	p := &parser{scope: make(map[string]bool)}
	node, err := p.parseExpr(expr)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// parser tracks the token counter for positions and the set of
// collection-binding names in scope.
type parser struct {
	pos   int
	scope map[string]bool
}

// next consumes one token index.
func (p *parser) next() ast.Position {
	pos := ast.Position{Start: p.pos, End: p.pos + 1}
	p.pos++
	return pos
}

func (p *parser) parseExpr(expr any) (*ast.Node, *Error) {
	if vec, ok := asVector(expr); ok {
		return p.parseVector(vec)
	}
	return p.parseScalar(expr)
}

func (p *parser) parseVector(vec []any) (*ast.Node, *Error) {
	start := p.pos
	if len(vec) == 0 {
		return &ast.Node{
			Type:     ast.NodeLiteral,
			Value:    []any{},
			Position: p.next(),
		}, nil
	}

	head, ok := asKeyword(vec[0])
	if !ok {
		return nil, p.errorf(ErrInvalidFunctionName,
			ast.Position{Start: start, End: start + 1}, vec[0],
			"vector head must be a keyword, got %T", vec[0])
	}
	p.next() // head token

	switch {
	case ast.IsQuantifierKey(head):
		return p.parseQuantifier(head, vec, start)
	case head.Namespace() == ast.NamespaceFn:
		return p.parseValueFn(head, vec, start)
	case head == ast.KeywordLet:
		return p.parseLet(vec, start)
	case head.HasNamespace() && !ast.IsReservedNamespace(head.Namespace()):
		return p.parsePolicyRef(head, vec, start)
	default:
		return p.parseCall(head, vec, start)
	}
}

// parseQuantifier handles [forall|exists binding body].
func (p *parser) parseQuantifier(op ast.Keyword, vec []any, start int) (*ast.Node, *Error) {
	if len(vec) != 3 {
		return nil, p.errorf(ErrInvalidQuantifier,
			ast.Position{Start: start, End: p.pos}, vec,
			"%s requires exactly [binding body], got %d argument(s)", op, len(vec)-1)
	}

	binding, err := p.parseBinding(vec[1])
	if err != nil {
		return nil, err
	}

	// The body sees the binding name as an accessor namespace.
	restore := p.pushScope(binding.Name)
	body, err := p.parseExpr(vec[2])
	restore()
	if err != nil {
		return nil, err
	}

	return &ast.Node{
		Type:     ast.NodeQuantifier,
		Op:       op,
		Binding:  binding,
		Children: []*ast.Node{body},
		Position: ast.Position{Start: start, End: p.pos},
	}, nil
}

// parseValueFn handles [fn/count arg] where arg is a bare collection
// accessor or a full filtered binding.
func (p *parser) parseValueFn(op ast.Keyword, vec []any, start int) (*ast.Node, *Error) {
	if len(vec) != 2 {
		return nil, p.errorf(ErrInvalidValueFn,
			ast.Position{Start: start, End: p.pos}, vec,
			"%s requires exactly one argument, got %d", op, len(vec)-1)
	}

	var binding *ast.Binding
	if kw, ok := asKeyword(vec[1]); ok {
		// Bare collection accessor, e.g. [fn/count doc/users].
		ns, path, err := p.classifyCollection(kw)
		if err != nil {
			return nil, err
		}
		p.next()
		binding = &ast.Binding{Namespace: ns, Path: path}
	} else if bvec, ok := asVector(vec[1]); ok {
		b, err := p.parseBindingVector(bvec)
		if err != nil {
			return nil, err
		}
		binding = b
	} else {
		return nil, p.errorf(ErrInvalidValueFn,
			ast.Position{Start: p.pos, End: p.pos + 1}, vec[1],
			"%s argument must be a collection accessor or binding, got %T", op, vec[1])
	}

	return &ast.Node{
		Type:     ast.NodeValueFn,
		Op:       ast.Keyword(op.Name()),
		Binding:  binding,
		Position: ast.Position{Start: start, End: p.pos},
	}, nil
}

// parseLet handles [let [name expr ...] body].
func (p *parser) parseLet(vec []any, start int) (*ast.Node, *Error) {
	if len(vec) != 3 {
		return nil, p.errorf(ErrInvalidLet,
			ast.Position{Start: start, End: p.pos}, vec,
			"let requires exactly [bindings body], got %d argument(s)", len(vec)-1)
	}

	bvec, ok := asVector(vec[1])
	if !ok {
		return nil, p.errorf(ErrInvalidLet,
			ast.Position{Start: p.pos, End: p.pos + 1}, vec[1],
			"let bindings must be a vector, got %T", vec[1])
	}
	if len(bvec)%2 != 0 {
		return nil, p.errorf(ErrInvalidLet,
			ast.Position{Start: p.pos, End: p.pos + 1}, bvec,
			"let bindings vector must have even arity, got %d elements", len(bvec))
	}

	bindings := make([]ast.LetBinding, 0, len(bvec)/2)
	for i := 0; i < len(bvec); i += 2 {
		name, ok := asKeyword(bvec[i])
		if !ok || name.HasNamespace() {
			return nil, p.errorf(ErrInvalidLet,
				ast.Position{Start: p.pos, End: p.pos + 1}, bvec[i],
				"let binding name must be a plain keyword, got %v", bvec[i])
		}
		p.next()
		expr, err := p.parseExpr(bvec[i+1])
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, ast.LetBinding{Name: name.Name(), Expr: expr})
	}

	body, err := p.parseExpr(vec[2])
	if err != nil {
		return nil, err
	}

	return &ast.Node{
		Type:     ast.NodeLet,
		Bindings: bindings,
		Children: []*ast.Node{body},
		Position: ast.Position{Start: start, End: p.pos},
	}, nil
}

// parsePolicyRef handles [ns/policy] and [ns/policy {param: expr}].
func (p *parser) parsePolicyRef(head ast.Keyword, vec []any, start int) (*ast.Node, *Error) {
	if len(vec) > 2 {
		return nil, p.errorf(ErrInvalidPolicyRef,
			ast.Position{Start: start, End: p.pos}, vec,
			"policy reference %s takes at most a parameter map, got %d arguments", head, len(vec)-1)
	}

	var params map[string]*ast.Node
	if len(vec) == 2 {
		raw, ok := asMap(vec[1])
		if !ok {
			return nil, p.errorf(ErrInvalidPolicyRef,
				ast.Position{Start: p.pos, End: p.pos + 1}, vec[1],
				"policy reference parameters must be a map, got %T", vec[1])
		}
		params = make(map[string]*ast.Node, len(raw))
		for name, value := range raw {
			p.next()
			node, err := p.parseExpr(value)
			if err != nil {
				return nil, err
			}
			params[name] = node
		}
	}

	return &ast.Node{
		Type:      ast.NodePolicyRef,
		Namespace: head.Namespace(),
		Name:      head.Name(),
		Params:    params,
		Position:  ast.Position{Start: start, End: p.pos},
	}, nil
}

// parseCall handles connectives, comparisons and custom operators.
func (p *parser) parseCall(op ast.Keyword, vec []any, start int) (*ast.Node, *Error) {
	children := make([]*ast.Node, 0, len(vec)-1)
	for _, arg := range vec[1:] {
		node, err := p.parseExpr(arg)
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}

	return &ast.Node{
		Type:     ast.NodeCall,
		Op:       op,
		Children: children,
		Position: ast.Position{Start: start, End: p.pos},
	}, nil
}

// parseBinding accepts the binding form of a quantifier, which must be
// a vector.
func (p *parser) parseBinding(v any) (*ast.Binding, *Error) {
	bvec, ok := asVector(v)
	if !ok {
		return nil, p.errorf(ErrInvalidBinding,
			ast.Position{Start: p.pos, End: p.pos + 1}, v,
			"binding must be a vector, got %T", v)
	}
	return p.parseBindingVector(bvec)
}

// parseBindingVector handles [name coll] and [name coll :where expr].
func (p *parser) parseBindingVector(bvec []any) (*ast.Binding, *Error) {
	start := p.pos
	if len(bvec) != 2 && len(bvec) != 4 {
		return nil, p.errorf(ErrInvalidBinding,
			ast.Position{Start: start, End: start + 1}, bvec,
			"binding must be [name collection] or [name collection :where filter], got %d elements", len(bvec))
	}

	name, ok := asKeyword(bvec[0])
	if !ok || name.HasNamespace() {
		return nil, p.errorf(ErrInvalidBinding,
			ast.Position{Start: p.pos, End: p.pos + 1}, bvec[0],
			"binding name must be a plain keyword, got %v", bvec[0])
	}
	p.next()

	coll, ok := asKeyword(bvec[1])
	if !ok {
		return nil, p.errorf(ErrInvalidBinding,
			ast.Position{Start: p.pos, End: p.pos + 1}, bvec[1],
			"binding collection must be an accessor keyword, got %T", bvec[1])
	}
	ns, path, perr := p.classifyCollection(coll)
	if perr != nil {
		return nil, perr
	}
	p.next()

	binding := &ast.Binding{
		Name:      name.Name(),
		Namespace: ns,
		Path:      path,
	}

	if len(bvec) == 4 {
		marker, ok := asKeyword(bvec[2])
		if !ok || marker.Name() != "where" {
			return nil, p.errorf(ErrInvalidBinding,
				ast.Position{Start: p.pos, End: p.pos + 1}, bvec[2],
				"expected :where marker, got %v", bvec[2])
		}
		p.next()

		// The filter sees the element binding itself.
		restore := p.pushScope(binding.Name)
		where, err := p.parseExpr(bvec[3])
		restore()
		if err != nil {
			return nil, err
		}
		binding.Where = where
	}

	return binding, nil
}

// classifyCollection resolves the namespace of a collection accessor:
// "doc" for document collections, or the name of an enclosing binding
// for nested quantifiers.
func (p *parser) classifyCollection(kw ast.Keyword) (string, []string, *Error) {
	ns := kw.Namespace()
	switch {
	case ns == ast.NamespaceDoc:
		path, ok := splitPath(kw.Name())
		if !ok {
			return "", nil, p.errorf(ErrInvalidPath,
				ast.Position{Start: p.pos, End: p.pos + 1}, kw,
				"invalid collection path %q", kw.Name())
		}
		return ast.NamespaceDoc, path, nil
	case p.scope[ns]:
		path, ok := splitPath(kw.Name())
		if !ok {
			return "", nil, p.errorf(ErrInvalidPath,
				ast.Position{Start: p.pos, End: p.pos + 1}, kw,
				"invalid collection path %q", kw.Name())
		}
		return ns, path, nil
	default:
		return "", nil, p.errorf(ErrInvalidBinding,
			ast.Position{Start: p.pos, End: p.pos + 1}, kw,
			"binding collection %q must reference doc or an enclosing binding", kw)
	}
}

// parseScalar classifies non-vector values: keywords by accessor
// namespace, host callables as thunks, everything else as literals.
func (p *parser) parseScalar(v any) (*ast.Node, *Error) {
	kw, isKeyword := asKeyword(v)
	if !isKeyword {
		if isCallable(v) {
			return &ast.Node{Type: ast.NodeThunk, Value: v, Position: p.next()}, nil
		}
		return &ast.Node{Type: ast.NodeLiteral, Value: v, Position: p.next()}, nil
	}

	ns := kw.Namespace()
	switch ns {
	case ast.NamespaceDoc:
		return p.accessorNode(ast.NodeDocAccessor, kw)
	case ast.NamespaceSelf:
		return p.accessorNode(ast.NodeSelfAccessor, kw)
	case ast.NamespaceParam:
		return p.accessorNode(ast.NodeParamAccessor, kw)
	case ast.NamespaceEvent:
		return p.accessorNode(ast.NodeEventAccessor, kw)
	case ast.NamespaceURI:
		return &ast.Node{
			Type:     ast.NodeURIAccessor,
			Meta:     map[string]any{"uri": kw.Name()},
			Position: p.next(),
		}, nil
	case "":
		// A bare keyword naming an in-scope binding refers to the
		// bound element itself.
		if p.scope[kw.Name()] {
			return &ast.Node{
				Type:        ast.NodeBindingAccessor,
				BindingName: kw.Name(),
				Position:    p.next(),
			}, nil
		}
		return &ast.Node{Type: ast.NodeLiteral, Value: kw, Position: p.next()}, nil
	default:
		if p.scope[ns] {
			path, ok := splitPath(kw.Name())
			if !ok {
				return nil, p.errorf(ErrInvalidPath,
					ast.Position{Start: p.pos, End: p.pos + 1}, kw,
					"invalid binding accessor path %q", kw.Name())
			}
			return &ast.Node{
				Type:        ast.NodeBindingAccessor,
				BindingName: ns,
				Path:        path,
				Position:    p.next(),
			}, nil
		}
		// A namespaced keyword outside any binding scope has no
		// accessor meaning as a scalar; it stays a keyword literal.
		return &ast.Node{Type: ast.NodeLiteral, Value: kw, Position: p.next()}, nil
	}
}

func (p *parser) accessorNode(t ast.NodeType, kw ast.Keyword) (*ast.Node, *Error) {
	path, ok := splitPath(kw.Name())
	if !ok {
		return nil, p.errorf(ErrInvalidPath,
			ast.Position{Start: p.pos, End: p.pos + 1}, kw,
			"invalid accessor path %q", kw.Name())
	}
	return &ast.Node{Type: t, Path: path, Position: p.next()}, nil
}

// pushScope adds a binding name to scope and returns the restore
// function. A binding shadowing an outer name restores the outer
// visibility on exit.
func (p *parser) pushScope(name string) func() {
	if name == "" {
		return func() {}
	}
	had := p.scope[name]
	p.scope[name] = true
	return func() {
		if !had {
			delete(p.scope, name)
		}
	}
}

// splitPath splits a dotted accessor path ("user.name") into segments,
// rejecting empty paths and empty segments (leading, trailing, or
// doubled dots).
func splitPath(name string) ([]string, bool) {
	if name == "" {
		return nil, false
	}
	parts := strings.Split(name, ".")
	for _, part := range parts {
		if part == "" {
			return nil, false
		}
	}
	return parts, true
}

// asKeyword recognizes the two keyword spellings.
func asKeyword(v any) (ast.Keyword, bool) {
	switch k := v.(type) {
	case ast.Keyword:
		return k, true
	case string:
		if strings.HasPrefix(k, ":") && len(k) > 1 {
			return ast.Keyword(k[1:]), true
		}
	}
	return "", false
}

// asVector recognizes expression vectors.
func asVector(v any) ([]any, bool) {
	vec, ok := v.([]any)
	return vec, ok
}

// asMap recognizes parameter maps, normalizing keyword keys.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[strings.TrimPrefix(k, ":")] = val
		}
		return out, true
	case map[ast.Keyword]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k.Name()] = val
		}
		return out, true
	}
	return nil, false
}

// isCallable reports whether v is a host function to be wrapped as a
// thunk.
func isCallable(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}
