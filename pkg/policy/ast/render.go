package ast

import "strings"

// ToExpr renders a node back into the vector expression form the parser
// accepts, with keywords spelled as ":"-prefixed strings. Complex
// markers render as [":complex" reason original...]; that form is for
// display and does not parse back.
func ToExpr(n *Node) any {
	if n == nil {
		return nil
	}

	switch n.Type {
	case NodeLiteral:
		if kw, ok := n.Value.(Keyword); ok {
			return ":" + kw.String()
		}
		return n.Value

	case NodeDocAccessor:
		return accessorExpr(NamespaceDoc, n.Path)
	case NodeSelfAccessor:
		return accessorExpr(NamespaceSelf, n.Path)
	case NodeParamAccessor:
		return accessorExpr(NamespaceParam, n.Path)
	case NodeEventAccessor:
		return accessorExpr(NamespaceEvent, n.Path)
	case NodeURIAccessor:
		uri, _ := n.Meta["uri"].(string)
		return ":" + NamespaceURI + "/" + uri

	case NodeBindingAccessor:
		if len(n.Path) == 0 {
			return ":" + n.BindingName
		}
		return accessorExpr(n.BindingName, n.Path)

	case NodeCall:
		out := make([]any, 0, len(n.Children)+1)
		out = append(out, ":"+n.Op.String())
		for _, child := range n.Children {
			out = append(out, ToExpr(child))
		}
		return out

	case NodeQuantifier:
		return []any{":" + n.Op.String(), bindingExpr(n.Binding), ToExpr(n.Body())}

	case NodeValueFn:
		b := n.Binding
		var arg any
		if b != nil && b.Name == "" && b.Where == nil {
			arg = accessorExpr(b.Namespace, b.Path)
		} else {
			arg = bindingExpr(b)
		}
		return []any{":" + NamespaceFn + "/" + n.Op.String(), arg}

	case NodePolicyRef:
		head := ":" + n.Namespace + "/" + n.Name
		if len(n.Params) == 0 {
			return []any{head}
		}
		params := make(map[string]any, len(n.Params))
		for name, value := range n.Params {
			params[name] = ToExpr(value)
		}
		return []any{head, params}

	case NodeLet:
		bindings := make([]any, 0, len(n.Bindings)*2)
		for _, b := range n.Bindings {
			bindings = append(bindings, ":"+b.Name, ToExpr(b.Expr))
		}
		return []any{":let", bindings, ToExpr(n.Body())}

	case NodeComplex:
		out := []any{":complex", n.ComplexReason()}
		for _, child := range n.Children {
			out = append(out, ToExpr(child))
		}
		return out

	default:
		return n.Value
	}
}

func accessorExpr(ns string, path []string) string {
	return ":" + ns + "/" + strings.Join(path, ".")
}

func bindingExpr(b *Binding) []any {
	if b == nil {
		return nil
	}
	out := []any{":" + b.Name, accessorExpr(b.Namespace, b.Path)}
	if b.Where != nil {
		out = append(out, ":where", ToExpr(b.Where))
	}
	return out
}
