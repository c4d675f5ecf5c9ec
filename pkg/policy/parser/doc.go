// Package parser turns nested-vector policy expressions into ASTs.
//
// Input is a host value tree, not text: "parsing" means classifying and
// validating vector shapes. Vectors are []any; keywords are ast.Keyword
// values or strings prefixed with ":" (both spellings are accepted
// everywhere, since Go has no keyword literal); plain strings, numbers,
// booleans, nil, and maps are literals; Go funcs become thunks.
//
// Classification rules, in head-of-vector order:
//
//   - forall/exists: quantifier over a [name collection] binding with an
//     optional :where filter
//   - fn/*: value function (aggregation) over a bare collection accessor
//     or a full binding
//   - let: [let [name expr ...] body] local self-bindings
//   - other namespaced keyword: policy reference with an optional
//     parameter map
//   - any other keyword: function call (connective, comparison, or
//     custom operator) with recursively parsed arguments
//
// Scalars classify by accessor namespace: doc/self/param/event/uri
// accessors split their dotted path; a keyword namespaced by an
// enclosing binding's name is a binding accessor.
//
// All errors are structured *Error values carrying a code, message,
// token position, and the offending value. The parser never panics.
package parser
