package residual

// Merge conjoins two residuals (logical AND). Constraints accumulate
// per path; conflicts on either side survive into the result. Merge is
// associative and commutative, and the satisfied residual is its
// identity.
func Merge(a, b Residual) Residual {
	if a.IsSatisfied() {
		return b.Clone()
	}
	if b.IsSatisfied() {
		return a.Clone()
	}
	out := a.Clone()
	for k, terms := range b {
		out[k] = append(out[k], terms...)
	}
	return out
}

// MergeAll folds Merge over any number of residuals.
func MergeAll(rs ...Residual) Residual {
	out := Satisfied()
	for _, r := range rs {
		out = Merge(out, r)
	}
	return out
}

// Combine disjoins two residuals (logical OR). If either side is
// satisfied the disjunction is satisfied. Otherwise the disjunction is
// generally not representable as a flat constraint map, so the result
// degrades to a complex or-marker carrying both branches.
func Combine(a, b Residual) Residual {
	if a.IsSatisfied() || b.IsSatisfied() {
		return Satisfied()
	}
	return FromComplex(&Complex{
		Type:     "or",
		Reason:   "disjunction with no satisfied branch",
		Branches: []Residual{a.Clone(), b.Clone()},
	})
}

// CombineAll folds Combine over the given residuals, short-circuiting
// to satisfied as soon as any branch is satisfied. With more than two
// unsatisfied branches the or-marker carries all of them flat rather
// than nesting.
func CombineAll(rs ...Residual) Residual {
	branches := make([]Residual, 0, len(rs))
	for _, r := range rs {
		if r.IsSatisfied() {
			return Satisfied()
		}
		branches = append(branches, r.Clone())
	}
	if len(branches) == 1 {
		return branches[0]
	}
	return FromComplex(&Complex{
		Type:     "or",
		Reason:   "disjunction with no satisfied branch",
		Branches: branches,
	})
}
