// Package negate rewrites policy ASTs into their logical complements.
//
// The transform is purely structural and total: where no complement
// exists (an operator without a negate key, a bare accessor standing
// alone) the result carries a complex marker instead of failing, and
// HasComplex lets callers detect that before evaluating.
package negate
