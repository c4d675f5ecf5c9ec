package compiler

import "testing"

func BenchmarkChecker_Check(b *testing.B) {
	checker, err := Compile([]any{
		[]any{":=", ":doc/role", "admin"},
		[]any{":>", ":doc/level", 3.0},
		[]any{":<", ":doc/level", 100.0},
		[]any{":in", ":doc/region", []string{"eu", "us"}},
	}, nil)
	if err != nil {
		b.Fatalf("Compile: %v", err)
	}
	doc := map[string]any{"role": "admin", "level": 7.0, "region": "eu"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result := checker.Check(doc)
		if result.IsResidual() || !result.Value {
			b.Fatalf("Check = %+v", result)
		}
	}
}

func BenchmarkCompile(b *testing.B) {
	exprs := []any{
		[]any{":and",
			[]any{":=", ":doc/role", "admin"},
			[]any{":>", ":doc/level", 3.0},
			[]any{":in", ":doc/region", []string{"eu", "us"}},
		},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compile(exprs, nil); err != nil {
			b.Fatal(err)
		}
	}
}
