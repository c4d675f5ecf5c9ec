package source

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"mercator-hq/callisto/pkg/policy/module"
)

func writeModule(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write module file: %v", err)
	}
	return path
}

func TestFileSource_SingleFile(t *testing.T) {
	path := writeModule(t, t.TempDir(), "access.yaml", `
namespace: access
description: access control checks
policies:
  is-admin: [":=", ":doc/role", "admin"]
  max-level:
    expr: [":<=", ":doc/level", ":param/max"]
    params:
      max: 10
    description: caps the document level
`)

	defs, err := NewFileSource(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("defs = %d", len(defs))
	}

	def := defs[0]
	if def.Namespace != "access" || def.Description != "access control checks" {
		t.Errorf("def = %+v", def)
	}

	expr, ok := def.Policies["is-admin"].([]any)
	if !ok || expr[0] != ":=" {
		t.Errorf("bare policy = %v", def.Policies["is-admin"])
	}

	spec, ok := def.Policies["max-level"].(module.PolicySpec)
	if !ok {
		t.Fatalf("spec policy = %T", def.Policies["max-level"])
	}
	// YAML integers widen to float64, same as JSON documents.
	if spec.Params["max"] != 10.0 {
		t.Errorf("param = %v (%T)", spec.Params["max"], spec.Params["max"])
	}
	if spec.Description != "caps the document level" {
		t.Errorf("description = %q", spec.Description)
	}
}

func TestFileSource_LoadsIntoRegistry(t *testing.T) {
	path := writeModule(t, t.TempDir(), "mod.yaml", `
namespace: access
policies:
  in-region: [":in", ":doc/region", [eu, us]]
  level-ok: [":>", ":doc/level", 5]
`)

	defs, err := NewFileSource(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	reg, err := module.LoadModules(module.NewRegistry(), defs)
	if err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	p, ok := reg.ResolvePolicy("access", "in-region")
	if !ok || p.AST == nil {
		t.Fatal("policy did not register")
	}
}

func TestFileSource_Directory(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "a.yaml", "namespace: a\npolicies:\n  p: [\":=\", \":doc/x\", 1]\n")
	writeModule(t, dir, "b.yml", "namespace: b\nimports: [a]\n")
	writeModule(t, dir, "notes.txt", "not yaml")

	defs, err := NewFileSource(dir, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("defs = %d, want yaml files only", len(defs))
	}
}

func TestFileSource_MultiDocument(t *testing.T) {
	path := writeModule(t, t.TempDir(), "stack.yaml", `
namespace: base
---
namespace: app
imports: [base]
`)

	defs, err := NewFileSource(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(defs) != 2 || defs[0].Namespace != "base" || defs[1].Namespace != "app" {
		t.Errorf("defs = %+v", defs)
	}
}

func TestFileSource_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "ghost.yaml"), nil).Load(context.Background())
		if err == nil {
			t.Error("missing path accepted")
		}
	})

	t.Run("missing namespace", func(t *testing.T) {
		path := writeModule(t, t.TempDir(), "bad.yaml", "policies: {}\n")
		if _, err := NewFileSource(path, nil).Load(context.Background()); err == nil {
			t.Error("namespace-less module accepted")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeModule(t, t.TempDir(), "bad.yaml", "namespace: [unclosed")
		if _, err := NewFileSource(path, nil).Load(context.Background()); err == nil {
			t.Error("malformed YAML accepted")
		}
	})
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"expression vector stays []any", []any{":=", ":doc/role", "admin"}, []any{":=", ":doc/role", "admin"}},
		{"string set becomes []string", []any{"eu", "us"}, []string{"eu", "us"}},
		{"number set becomes []float64", []any{1, 2.5}, []float64{1, 2.5}},
		{"integers widen", 7, 7.0},
		{"nested expression", []any{":and", []any{":=", ":doc/a", 1}}, []any{":and", []any{":=", ":doc/a", 1.0}}},
		{"membership set inside expression", []any{":in", ":doc/region", []any{"eu", "us"}}, []any{":in", ":doc/region", []string{"eu", "us"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeValue(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeValue(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource(module.ModuleDef{Namespace: "a"})

	defs, err := src.Load(context.Background())
	if err != nil || len(defs) != 1 {
		t.Fatalf("Load = %v, %v", defs, err)
	}

	// Mutating the returned slice must not affect the source.
	defs[0].Namespace = "changed"
	again, _ := src.Load(context.Background())
	if again[0].Namespace != "a" {
		t.Error("Load returned shared state")
	}
}
