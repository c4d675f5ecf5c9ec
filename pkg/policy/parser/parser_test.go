package parser

import (
	"errors"
	"testing"

	"mercator-hq/callisto/pkg/policy/ast"
)

func TestParse_Scalars(t *testing.T) {
	tests := []struct {
		name     string
		expr     any
		wantType ast.NodeType
		wantPath []string
	}{
		{"doc accessor", ":doc/role", ast.NodeDocAccessor, []string{"role"}},
		{"nested doc accessor", ":doc/user.profile.age", ast.NodeDocAccessor, []string{"user", "profile", "age"}},
		{"self accessor", ":self/threshold", ast.NodeSelfAccessor, []string{"threshold"}},
		{"param accessor", ":param/limit", ast.NodeParamAccessor, []string{"limit"}},
		{"event accessor", ":event/type", ast.NodeEventAccessor, []string{"type"}},
		{"keyword value spelling", ast.Keyword("doc/role"), ast.NodeDocAccessor, []string{"role"}},
		{"string literal", "admin", ast.NodeLiteral, nil},
		{"number literal", 42.0, ast.NodeLiteral, nil},
		{"bool literal", true, ast.NodeLiteral, nil},
		{"nil literal", nil, ast.NodeLiteral, nil},
		{"bare keyword literal", ":pending", ast.NodeLiteral, nil},
		{"namespaced keyword outside scope", ":status/active", ast.NodeLiteral, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse(%v): %v", tt.expr, err)
			}
			if node.Type != tt.wantType {
				t.Fatalf("type = %s, want %s", node.Type, tt.wantType)
			}
			if len(tt.wantPath) > 0 {
				if len(node.Path) != len(tt.wantPath) {
					t.Fatalf("path = %v, want %v", node.Path, tt.wantPath)
				}
				for i, seg := range tt.wantPath {
					if node.Path[i] != seg {
						t.Errorf("path[%d] = %q, want %q", i, node.Path[i], seg)
					}
				}
			}
		})
	}
}

func TestParse_URIAccessor(t *testing.T) {
	node, err := Parse(":uri/https://example.com/resource")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if node.Type != ast.NodeURIAccessor {
		t.Fatalf("type = %s, want uri-accessor", node.Type)
	}
	if node.Meta["uri"] != "https://example.com/resource" {
		t.Errorf("uri = %v", node.Meta["uri"])
	}
}

func TestParse_Thunk(t *testing.T) {
	fn := func() any { return 7 }
	node, err := Parse(fn)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if node.Type != ast.NodeThunk {
		t.Fatalf("type = %s, want thunk", node.Type)
	}
	if node.Value == nil {
		t.Error("thunk lost its callable")
	}
}

func TestParse_Calls(t *testing.T) {
	node, err := Parse([]any{":and",
		[]any{":=", ":doc/a", 1.0},
		[]any{":or",
			[]any{":<", ":doc/b", 2.0},
			[]any{":not", []any{":=", ":doc/c", 3.0}}}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if node.Type != ast.NodeCall || node.Op != ast.KeywordAnd {
		t.Fatalf("root = %s %s, want and call", node.Type, node.Op)
	}
	if len(node.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(node.Children))
	}
	or := node.Children[1]
	if or.Op != ast.KeywordOr || len(or.Children) != 2 {
		t.Fatalf("second child = %s with %d children", or.Op, len(or.Children))
	}
	if or.Children[1].Op != ast.KeywordNot {
		t.Errorf("inner op = %s, want not", or.Children[1].Op)
	}
}

func TestParse_Quantifier(t *testing.T) {
	node, err := Parse([]any{":forall",
		[]any{":u", ":doc/users", ":where", []any{":=", ":u/kind", "bot"}},
		[]any{":=", ":u/active", true}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if node.Type != ast.NodeQuantifier || node.Op != ast.KeywordForall {
		t.Fatalf("node = %s %s", node.Type, node.Op)
	}
	b := node.Binding
	if b.Name != "u" || b.Namespace != ast.NamespaceDoc || len(b.Path) != 1 || b.Path[0] != "users" {
		t.Fatalf("binding = %+v", b)
	}
	if b.Where == nil || b.Where.Children[0].Type != ast.NodeBindingAccessor {
		t.Fatalf("filter not parsed against the binding: %+v", b.Where)
	}
	body := node.Body()
	if body.Children[0].Type != ast.NodeBindingAccessor || body.Children[0].BindingName != "u" {
		t.Errorf("body accessor = %+v", body.Children[0])
	}
}

func TestParse_NestedQuantifierBindsThroughOuter(t *testing.T) {
	node, err := Parse([]any{":forall",
		[]any{":team", ":doc/teams"},
		[]any{":forall",
			[]any{":m", ":team/members"},
			[]any{":=", ":m/active", true}}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	inner := node.Body()
	if inner.Binding.Namespace != "team" {
		t.Errorf("inner binding namespace = %q, want team", inner.Binding.Namespace)
	}
	if len(inner.Binding.Path) != 1 || inner.Binding.Path[0] != "members" {
		t.Errorf("inner binding path = %v", inner.Binding.Path)
	}
}

func TestParse_BindingScopeRestored(t *testing.T) {
	// The binding name must not leak past the quantifier body.
	node, err := Parse([]any{":and",
		[]any{":forall", []any{":u", ":doc/users"}, []any{":=", ":u/active", true}},
		[]any{":=", ":u/active", true}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	outside := node.Children[1].Children[0]
	if outside.Type != ast.NodeLiteral {
		t.Errorf("accessor outside scope = %s, want keyword literal", outside.Type)
	}
}

func TestParse_ValueFn(t *testing.T) {
	t.Run("bare collection", func(t *testing.T) {
		node, err := Parse([]any{":fn/count", ":doc/items"})
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if node.Type != ast.NodeValueFn || node.Op != "count" {
			t.Fatalf("node = %s %s", node.Type, node.Op)
		}
		if node.Binding.Namespace != ast.NamespaceDoc || node.Binding.Path[0] != "items" {
			t.Errorf("binding = %+v", node.Binding)
		}
	})

	t.Run("filtered binding", func(t *testing.T) {
		node, err := Parse([]any{":fn/sum",
			[]any{":x", ":doc/amounts", ":where", []any{":>", ":x", 0.0}}})
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if node.Op != "sum" || node.Binding.Where == nil {
			t.Fatalf("node = %+v", node)
		}
	})
}

func TestParse_Let(t *testing.T) {
	node, err := Parse([]any{":let",
		[]any{":base", 10.0, ":limit", ":self/base"},
		[]any{":<", ":doc/score", ":self/limit"}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if node.Type != ast.NodeLet || len(node.Bindings) != 2 {
		t.Fatalf("node = %s with %d bindings", node.Type, len(node.Bindings))
	}
	if node.Bindings[0].Name != "base" || node.Bindings[1].Name != "limit" {
		t.Errorf("binding names = %q, %q", node.Bindings[0].Name, node.Bindings[1].Name)
	}
}

func TestParse_PolicyRef(t *testing.T) {
	t.Run("bare reference", func(t *testing.T) {
		node, err := Parse([]any{":access/is-admin"})
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if node.Type != ast.NodePolicyRef || node.Namespace != "access" || node.Name != "is-admin" {
			t.Fatalf("node = %+v", node)
		}
	})

	t.Run("with parameter map", func(t *testing.T) {
		node, err := Parse([]any{":access/min-level", map[string]any{"min": 5.0}})
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		param, ok := node.Params["min"]
		if !ok || param.Type != ast.NodeLiteral {
			t.Fatalf("params = %+v", node.Params)
		}
	})
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		expr     any
		wantCode ErrorCode
	}{
		{"non-keyword head", []any{1.0, 2.0}, ErrInvalidFunctionName},
		{"empty path segment", ":doc/user..name", ErrInvalidPath},
		{"trailing dot", ":doc/user.", ErrInvalidPath},
		{"quantifier arity", []any{":forall", []any{":u", ":doc/users"}}, ErrInvalidQuantifier},
		{"binding not a vector", []any{":forall", ":u", true}, ErrInvalidBinding},
		{"binding arity", []any{":forall", []any{":u", ":doc/users", ":where"}, true}, ErrInvalidBinding},
		{"unknown collection namespace", []any{":forall", []any{":u", ":nowhere/users"}, true}, ErrInvalidBinding},
		{"namespaced binding name", []any{":forall", []any{":a/u", ":doc/users"}, true}, ErrInvalidBinding},
		{"value-fn arity", []any{":fn/count", ":doc/a", ":doc/b"}, ErrInvalidValueFn},
		{"let odd bindings", []any{":let", []any{":x"}, true}, ErrInvalidLet},
		{"let namespaced name", []any{":let", []any{":doc/x", 1.0}, true}, ErrInvalidLet},
		{"policy ref extra args", []any{":access/check", map[string]any{}, 1.0}, ErrInvalidPolicyRef},
		{"policy ref non-map params", []any{":access/check", 1.0}, ErrInvalidPolicyRef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr)
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if perr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", perr.Code, tt.wantCode)
			}
		})
	}
}

func TestParse_PositionsNest(t *testing.T) {
	node, err := Parse([]any{":and",
		[]any{":=", ":doc/a", 1.0},
		[]any{":=", ":doc/b", 2.0}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i, child := range node.Children {
		if !node.Position.Contains(child.Position) {
			t.Errorf("child %d position %s outside parent %s", i, child.Position, node.Position)
		}
	}
	if node.Children[0].Position.Start >= node.Children[1].Position.Start {
		t.Error("sibling positions not ordered")
	}
}
