package collection

import "mercator-hq/callisto/pkg/policy/residual"

func init() {
	for _, op := range builtinOps() {
		if err := defaultRegistry.Register(op); err != nil {
			panic(err)
		}
	}
}

// builtinOps returns the stock quantifiers and aggregations.
func builtinOps() []Op {
	return []Op{
		{
			Key:         "forall",
			Kind:        KindQuantifier,
			EmptyResult: true,
			InitState:   func() any { return nil },
			ProcessElement: func(state, elem, result any, idx int) StepResult {
				if result == false {
					return ShortCircuit(false)
				}
				return Continue(state)
			},
			Finalize: func(state any, residuals residual.Residual) Result {
				if !residuals.IsSatisfied() {
					return Result{Residual: residuals}
				}
				return Result{Value: true}
			},
		},
		{
			Key:         "exists",
			Kind:        KindQuantifier,
			EmptyResult: false,
			InitState:   func() any { return nil },
			ProcessElement: func(state, elem, result any, idx int) StepResult {
				if result == true {
					return ShortCircuit(true)
				}
				return Continue(state)
			},
			Finalize: func(state any, residuals residual.Residual) Result {
				if !residuals.IsSatisfied() {
					return Result{Residual: residuals}
				}
				return Result{Value: false}
			},
		},
		{
			Key:         "count",
			Kind:        KindAggregation,
			EmptyResult: 0,
			InitState:   func() any { return 0 },
			ProcessElement: func(state, elem, result any, idx int) StepResult {
				return Continue(state.(int) + 1)
			},
			Finalize: func(state any, residuals residual.Residual) Result {
				if !residuals.IsSatisfied() {
					return Result{Residual: residuals}
				}
				return Result{Value: state.(int)}
			},
		},
		{
			Key:         "sum",
			Kind:        KindAggregation,
			EmptyResult: float64(0),
			InitState:   func() any { return float64(0) },
			ProcessElement: func(state, elem, result any, idx int) StepResult {
				n, err := toFloat64(elem)
				if err != nil {
					// Non-numeric elements contribute nothing; the
					// aggregate stays order-independent.
					return Continue(state)
				}
				return Continue(state.(float64) + n)
			},
			Finalize: func(state any, residuals residual.Residual) Result {
				if !residuals.IsSatisfied() {
					return Result{Residual: residuals}
				}
				return Result{Value: state.(float64)}
			},
		},
	}
}
