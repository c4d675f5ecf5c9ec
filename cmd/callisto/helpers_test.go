package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/config"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{"empty", nil, nil, false},
		{"string value", []string{"role=admin"}, map[string]any{"role": "admin"}, false},
		{"number value", []string{"max=5"}, map[string]any{"max": 5.0}, false},
		{"bool value", []string{"active=true"}, map[string]any{"active": true}, false},
		{"json array", []string{`regions=["eu","us"]`}, map[string]any{"regions": []any{"eu", "us"}}, false},
		{"value with equals", []string{"expr=a=b"}, map[string]any{"expr": "a=b"}, false},
		{"missing value", []string{"role"}, nil, true},
		{"empty name", []string{"=admin"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.pairs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseParams error = %v", err)
			}
			if err == nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseParams = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSplitPolicy(t *testing.T) {
	tests := []struct {
		in       string
		ns, name string
		ok       bool
	}{
		{"access/is-admin", "access", "is-admin", true},
		{"a/b/c", "a", "b/c", true},
		{"no-slash", "", "", false},
		{"/leading", "", "", false},
		{"trailing/", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		ns, name, ok := splitPolicy(tt.in)
		if ns != tt.ns || name != tt.name || ok != tt.ok {
			t.Errorf("splitPolicy(%q) = %q, %q, %t", tt.in, ns, name, ok)
		}
	}
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(`{"role": "admin", "level": 7}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	doc, err := readDocument(path)
	if err != nil {
		t.Fatalf("readDocument: %v", err)
	}
	if doc["role"] != "admin" || doc["level"] != 7.0 {
		t.Errorf("doc = %#v", doc)
	}

	if _, err := readDocument(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestBuildQuery(t *testing.T) {
	query, err := buildQuery("access/is-admin", "conflict", "2026-08-01T00:00:00Z", "", "asc", 10, 5)
	if err != nil {
		t.Fatalf("buildQuery: %v", err)
	}
	if query.Policy != "access/is-admin" || query.Outcome != "conflict" {
		t.Errorf("query = %+v", query)
	}
	if query.Limit != 10 || query.Offset != 5 || query.SortOrder != "asc" {
		t.Errorf("query = %+v", query)
	}
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if query.StartTime == nil || !query.StartTime.Equal(want) {
		t.Errorf("StartTime = %v", query.StartTime)
	}
	if query.EndTime != nil {
		t.Errorf("EndTime = %v", query.EndTime)
	}

	if _, err := buildQuery("", "", "yesterday", "", "desc", 0, 0); err == nil {
		t.Error("invalid --since accepted")
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Policy.Paths = []string{"configured.yaml"}

	got, err := resolvePaths([]string{"flag.yaml"}, cfg)
	if err != nil || !reflect.DeepEqual(got, []string{"flag.yaml"}) {
		t.Errorf("flag paths = %v, %v", got, err)
	}

	got, err = resolvePaths(nil, cfg)
	if err != nil || !reflect.DeepEqual(got, []string{"configured.yaml"}) {
		t.Errorf("config paths = %v, %v", got, err)
	}

	cfg.Policy.Paths = nil
	if _, err := resolvePaths(nil, cfg); err == nil {
		t.Error("no paths accepted")
	}
}

func TestFindPolicyExpr(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.yaml")
	content := `namespace: access
policies:
  is-admin: [":=", ":doc/role", "admin"]
  max-level:
    expr: [":<", ":doc/level", ":param/max"]
    params:
      max: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := config.DefaultConfig()
	logger, err := newLogger(cfg)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}

	expr, err := findPolicyExpr(context.Background(), cfg, []string{path}, logger, "access/is-admin")
	if err != nil {
		t.Fatalf("findPolicyExpr: %v", err)
	}
	if vec, ok := expr.([]any); !ok || len(vec) != 3 || vec[0] != ":=" {
		t.Errorf("expr = %#v", expr)
	}

	expr, err = findPolicyExpr(context.Background(), cfg, []string{path}, logger, "access/max-level")
	if err != nil {
		t.Fatalf("findPolicyExpr spec form: %v", err)
	}
	if vec, ok := expr.([]any); !ok || vec[0] != ":<" {
		t.Errorf("spec expr = %#v", expr)
	}

	if _, err := findPolicyExpr(context.Background(), cfg, []string{path}, logger, "access/missing"); err == nil {
		t.Error("unknown policy accepted")
	}
	if _, err := findPolicyExpr(context.Background(), cfg, []string{path}, logger, "bad-name"); err == nil {
		t.Error("malformed policy name accepted")
	}
}
