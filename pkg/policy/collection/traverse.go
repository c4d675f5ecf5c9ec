package collection

import (
	"fmt"
	"reflect"
	"strconv"

	"mercator-hq/callisto/pkg/policy/ast"
	"mercator-hq/callisto/pkg/policy/residual"
)

// Outcome is the evaluator's answer for a filter or body expression
// over one element: a concrete value, or a residual when document data
// was missing. Residual keys are relative to the element.
type Outcome struct {
	Value    any
	Residual residual.Residual
}

// IsConcrete returns true when the outcome carries a plain value.
func (o Outcome) IsConcrete() bool {
	return o.Residual == nil || o.Residual.IsSatisfied()
}

// Hooks connect the traversal to the evaluator without this package
// depending on it.
type Hooks struct {
	// Resolve looks up the bound collection by namespace and path:
	// "doc" resolves against the document, any other namespace against
	// a previously bound element in the evaluation context.
	Resolve func(namespace string, path []string) (any, bool)

	// Eval evaluates an expression with the element bound under the
	// binding's name.
	Eval func(expr *ast.Node, elem any, idx int) Outcome

	// Trace, when non-nil, records traversal statistics. Tracing never
	// alters control flow or the result.
	Trace *Trace
}

// Trace accumulates per-traversal records when tracing is enabled.
type Trace struct {
	Records []TraceRecord
}

// TraceRecord describes one collection traversal.
type TraceRecord struct {
	Op                ast.Keyword
	Path              []string
	ElementsProcessed int
	FilterExcluded    int
	Residuals         int
	ShortCircuited    bool
}

// Traverse evaluates a collection operator over its bound collection.
//
// body is the quantifier body, nil for aggregations. The result is a
// concrete value (boolean for quantifiers, aggregate for aggregations)
// or a residual keyed by the collection path with the element index
// spliced in ("users.0.active").
func Traverse(op *Op, binding *ast.Binding, body *ast.Node, hooks Hooks) Result {
	record := TraceRecord{Op: op.Key, Path: binding.Path}
	defer func() {
		if hooks.Trace != nil {
			hooks.Trace.Records = append(hooks.Trace.Records, record)
		}
	}()

	coll, found := hooks.Resolve(binding.Namespace, binding.Path)
	if !found {
		res := residual.Open(collectionPath(binding), op.Key, nil)
		record.Residuals = 1
		return Result{Residual: res}
	}

	elems, ok := toElements(coll)
	if !ok {
		// A present non-sequence value cannot satisfy a quantifier and
		// aggregates to the empty result.
		if op.Kind == KindQuantifier {
			return Result{Value: false}
		}
		return Result{Value: op.EmptyResult}
	}

	if len(elems) == 0 {
		return Result{Value: op.EmptyResult}
	}

	// Filterless count needs no per-element work.
	if op.Key == "count" && binding.Where == nil && body == nil {
		record.ElementsProcessed = len(elems)
		return Result{Value: len(elems)}
	}

	state := op.InitState()
	residuals := residual.Satisfied()
	basePath := collectionPath(binding)

	for idx, elem := range elems {
		record.ElementsProcessed++

		if binding.Where != nil {
			filter := hooks.Eval(binding.Where, elem, idx)
			if filter.IsConcrete() {
				if filter.Value == false {
					record.FilterExcluded++
					continue
				}
				// Concrete true includes the element.
			} else {
				if op.Kind == KindQuantifier {
					// Deferred filter: only report missing filter data
					// when the body doesn't already settle this
					// element's contribution.
					outcome := hooks.Eval(body, elem, idx)
					if outcome.IsConcrete() && outcome.Value == neutralValue(op) {
						continue
					}
					residuals = residual.Merge(residuals, indexResidual(basePath, idx, filter.Residual))
					if !outcome.IsConcrete() {
						residuals = residual.Merge(residuals, indexResidual(basePath, idx, outcome.Residual))
					}
					record.Residuals = countTerms(residuals)
					continue
				}
				// Aggregations always record the filter residual,
				// indexed by element position.
				residuals = residual.Merge(residuals, indexResidual(basePath, idx, filter.Residual))
				record.Residuals = countTerms(residuals)
				continue
			}
		}

		var bodyValue any
		if op.Kind == KindQuantifier {
			outcome := hooks.Eval(body, elem, idx)
			if !outcome.IsConcrete() {
				residuals = residual.Merge(residuals, indexResidual(basePath, idx, outcome.Residual))
				record.Residuals = countTerms(residuals)
				continue
			}
			bodyValue = outcome.Value
		}

		step := op.ProcessElement(state, elem, bodyValue, idx)
		if step.ShortCircuit {
			record.ShortCircuited = true
			return Result{Value: step.Value}
		}
		state = step.State
	}

	record.Residuals = countTerms(residuals)
	return op.Finalize(state, residuals)
}

// neutralValue is the body value that cannot change a quantifier's
// outcome: a true body keeps forall alive, a false body keeps exists
// searching.
func neutralValue(op *Op) any {
	if op.Key == "exists" {
		return false
	}
	return true
}

// indexResidual rekeys an element-relative residual under the
// collection path with the element index spliced in.
func indexResidual(basePath []string, idx int, r residual.Residual) residual.Residual {
	if r == nil || r.IsSatisfied() {
		return residual.Satisfied()
	}
	out := make(residual.Residual, len(r))
	prefix := append(append([]string{}, basePath...), strconv.Itoa(idx))
	for key, terms := range r {
		sub := residual.ParsePath(key)
		full := append(append([]string{}, prefix...), sub...)
		out[residual.PathKey(full)] = append([]residual.Term(nil), terms...)
	}
	return out
}

// collectionPath returns the residual base path of the bound
// collection: absolute for document collections, element-relative for
// nested bindings (the enclosing traversal splices in its own prefix
// and element index).
func collectionPath(binding *ast.Binding) []string {
	return binding.Path
}

func countTerms(r residual.Residual) int {
	n := 0
	for _, terms := range r {
		n += len(terms)
	}
	return n
}

// toElements normalizes a sequence value to []any.
func toElements(v any) ([]any, bool) {
	if vs, ok := v.([]any); ok {
		return vs, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// toFloat64 converts numeric values of any Go width to float64.
func toFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}
