package residual

import (
	"reflect"
	"testing"
)

func TestPredicates(t *testing.T) {
	tests := []struct {
		name                                    string
		r                                       Residual
		satisfied, conflicts, allConf, open, cx bool
	}{
		{
			name:      "satisfied",
			r:         Satisfied(),
			satisfied: true,
		},
		{
			name: "open",
			r:    Open([]string{"role"}, "=", "admin"),
			open: true,
		},
		{
			name:      "conflict",
			r:         Conflict([]string{"role"}, "=", "admin", "guest"),
			conflicts: true,
			allConf:   true,
		},
		{
			name:      "mixed open and conflict",
			r:         Merge(Open([]string{"a"}, "=", 1), Conflict([]string{"b"}, "=", 2, 3)),
			conflicts: true,
		},
		{
			name: "complex",
			r:    FromComplex(&Complex{Type: "or"}),
			cx:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.IsSatisfied(); got != tt.satisfied {
				t.Errorf("IsSatisfied = %v, want %v", got, tt.satisfied)
			}
			if got := tt.r.HasConflicts(); got != tt.conflicts {
				t.Errorf("HasConflicts = %v, want %v", got, tt.conflicts)
			}
			if got := tt.r.AllConflicts(); got != tt.allConf {
				t.Errorf("AllConflicts = %v, want %v", got, tt.allConf)
			}
			if got := tt.r.IsOpen(); got != tt.open {
				t.Errorf("IsOpen = %v, want %v", got, tt.open)
			}
			if got := tt.r.HasComplex(); got != tt.cx {
				t.Errorf("HasComplex = %v, want %v", got, tt.cx)
			}
		})
	}
}

func TestPathKeyRoundTrip(t *testing.T) {
	tests := []struct {
		path []string
		key  string
	}{
		{[]string{"role"}, "role"},
		{[]string{"user", "profile", "age"}, "user.profile.age"},
	}
	for _, tt := range tests {
		if got := PathKey(tt.path); got != tt.key {
			t.Errorf("PathKey(%v) = %q, want %q", tt.path, got, tt.key)
		}
		if got := ParsePath(tt.key); !reflect.DeepEqual(got, tt.path) {
			t.Errorf("ParsePath(%q) = %v, want %v", tt.key, got, tt.path)
		}
	}

	// Special keys stay whole even though they contain no dots by
	// convention; sub-keyed param entries keep their prefix segment.
	if got := ParsePath(CrossKeyKey); len(got) != 1 || got[0] != CrossKeyKey {
		t.Errorf("ParsePath(%q) = %v", CrossKeyKey, got)
	}
	if got := ParsePath(ParamKey + ".limit"); len(got) != 1 {
		t.Errorf("ParsePath(param subkey) = %v, want single segment", got)
	}
}

func TestMerge(t *testing.T) {
	a := Open([]string{"a"}, "=", 1)
	b := Conflict([]string{"b"}, ">", 5, 2)
	c := Open([]string{"c"}, "<", 9)

	t.Run("satisfied identity", func(t *testing.T) {
		if got := Merge(Satisfied(), a); !reflect.DeepEqual(got, a) {
			t.Errorf("Merge(satisfied, a) = %s", got)
		}
		if got := Merge(a, Satisfied()); !reflect.DeepEqual(got, a) {
			t.Errorf("Merge(a, satisfied) = %s", got)
		}
	})

	t.Run("commutative on distinct paths", func(t *testing.T) {
		if got, want := Merge(a, b), Merge(b, a); !reflect.DeepEqual(got, want) {
			t.Errorf("Merge(a,b) = %s, Merge(b,a) = %s", got, want)
		}
	})

	t.Run("associative", func(t *testing.T) {
		left := Merge(Merge(a, b), c)
		right := Merge(a, Merge(b, c))
		if !reflect.DeepEqual(left, right) {
			t.Errorf("(a+b)+c = %s, a+(b+c) = %s", left, right)
		}
	})

	t.Run("same path accumulates terms", func(t *testing.T) {
		got := Merge(Open([]string{"a"}, ">", 1), Open([]string{"a"}, "<", 9))
		if len(got["a"]) != 2 {
			t.Errorf("expected 2 terms at a, got %v", got["a"])
		}
	})

	t.Run("inputs not mutated", func(t *testing.T) {
		before := len(a["a"])
		_ = Merge(a, Open([]string{"a"}, "<", 9))
		if len(a["a"]) != before {
			t.Error("Merge mutated its input")
		}
	})
}

func TestCombine(t *testing.T) {
	a := Conflict([]string{"a"}, "=", 1, 2)
	b := Open([]string{"b"}, "=", 3)

	t.Run("satisfied short-circuits", func(t *testing.T) {
		if got := Combine(Satisfied(), a); !got.IsSatisfied() {
			t.Errorf("Combine(satisfied, a) = %s", got)
		}
		if got := Combine(a, Satisfied()); !got.IsSatisfied() {
			t.Errorf("Combine(a, satisfied) = %s", got)
		}
	})

	t.Run("unsatisfied branches degrade to or-marker", func(t *testing.T) {
		got := Combine(a, b)
		terms := got[ComplexKey]
		if len(terms) != 1 || terms[0].Kind != TermComplex {
			t.Fatalf("Combine(a,b) = %s", got)
		}
		if terms[0].Complex.Type != "or" || len(terms[0].Complex.Branches) != 2 {
			t.Errorf("marker = %+v", terms[0].Complex)
		}
	})

	t.Run("combine-all flattens branches", func(t *testing.T) {
		c := Open([]string{"c"}, "=", 4)
		got := CombineAll(a, b, c)
		marker := got[ComplexKey][0].Complex
		if len(marker.Branches) != 3 {
			t.Errorf("expected 3 flat branches, got %d", len(marker.Branches))
		}
	})

	t.Run("combine-all single branch passes through", func(t *testing.T) {
		if got := CombineAll(a); !reflect.DeepEqual(got, a) {
			t.Errorf("CombineAll(a) = %s", got)
		}
	})

	t.Run("combine-all short-circuits", func(t *testing.T) {
		if got := CombineAll(a, Satisfied(), b); !got.IsSatisfied() {
			t.Errorf("CombineAll with satisfied branch = %s", got)
		}
	})
}

func TestCloneIndependence(t *testing.T) {
	orig := Merge(Open([]string{"a"}, "=", 1), Conflict([]string{"b"}, "=", 2, 3))
	clone := orig.Clone()

	clone["c"] = []Term{{Kind: TermOpen}}
	clone["a"][0].Witness = "tampered"

	if _, ok := orig["c"]; ok {
		t.Error("clone shares map structure")
	}
	if orig["a"][0].Witness != nil {
		t.Error("clone shares term slices")
	}
}

func TestUnboundParam(t *testing.T) {
	r := UnboundParam("limit")
	terms, ok := r[ParamKey+".limit"]
	if !ok || len(terms) != 1 {
		t.Fatalf("residual = %s", r)
	}
	if terms[0].Kind != TermOpen || terms[0].Constraint.Value != "limit" {
		t.Errorf("term = %+v", terms[0])
	}
}

func TestString(t *testing.T) {
	if got := Satisfied().String(); got != "{}" {
		t.Errorf("satisfied renders as %q", got)
	}
	r := Conflict([]string{"role"}, "=", "admin", "guest")
	want := "{role: [[conflict [= admin] guest]]}"
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
