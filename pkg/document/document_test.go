package document

import (
	"reflect"
	"testing"
)

func TestFromJSON(t *testing.T) {
	doc, err := FromJSON([]byte(`{
		"role": "admin",
		"level": 7,
		"active": true,
		"score": 3.5,
		"tags": ["a", "b"],
		"profile": {"age": 40, "address": {"country": "de"}},
		"missing": null
	}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if doc["role"] != "admin" || doc["active"] != true {
		t.Errorf("scalars decoded wrong: %v", doc)
	}
	// All numbers decode to float64, matching how comparisons coerce.
	if doc["level"] != 7.0 || doc["score"] != 3.5 {
		t.Errorf("numbers = %v %v", doc["level"], doc["score"])
	}
	if !reflect.DeepEqual(doc["tags"], []any{"a", "b"}) {
		t.Errorf("tags = %v", doc["tags"])
	}
	if doc["missing"] != nil {
		t.Errorf("null = %v", doc["missing"])
	}
	profile, ok := doc["profile"].(map[string]any)
	if !ok || profile["age"] != 40.0 {
		t.Errorf("profile = %v", doc["profile"])
	}
}

func TestFromJSON_Errors(t *testing.T) {
	for _, input := range []string{``, `not json`, `[1,2,3]`, `"scalar"`} {
		if _, err := FromJSON([]byte(input)); err == nil {
			t.Errorf("FromJSON(%q) succeeded", input)
		}
	}
}

func TestLookup(t *testing.T) {
	doc := map[string]any{
		"role": "admin",
		"user": map[string]any{
			"profile": map[string]any{"age": 40.0},
			"tags":    []any{"a"},
		},
	}

	tests := []struct {
		name  string
		path  []string
		want  any
		found bool
	}{
		{"top level", []string{"role"}, "admin", true},
		{"nested", []string{"user", "profile", "age"}, 40.0, true},
		{"intermediate map", []string{"user", "profile"}, map[string]any{"age": 40.0}, true},
		{"missing leaf", []string{"user", "profile", "name"}, nil, false},
		{"missing root", []string{"ghost"}, nil, false},
		{"traverse into non-map", []string{"role", "x"}, nil, false},
		{"traverse into slice", []string{"user", "tags", "0"}, nil, false},
		{"empty path returns the document", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Lookup(doc, tt.path)
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if tt.want != nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}
