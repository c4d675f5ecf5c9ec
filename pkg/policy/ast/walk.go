package ast

// Visit is called for every node during a Walk. Returning a non-nil
// error stops the traversal and propagates the error.
type Visit func(*Node) error

// Walk traverses the tree rooted at n in depth-first order, visiting
// every node including quantifier :where filters, let binding
// expressions, and policy-reference parameter values.
func Walk(n *Node, visit Visit) error {
	if n == nil {
		return nil
	}
	if err := visit(n); err != nil {
		return err
	}

	if n.Binding != nil && n.Binding.Where != nil {
		if err := Walk(n.Binding.Where, visit); err != nil {
			return err
		}
	}

	for _, b := range n.Bindings {
		if err := Walk(b.Expr, visit); err != nil {
			return err
		}
	}

	for _, p := range n.Params {
		if err := Walk(p, visit); err != nil {
			return err
		}
	}

	for _, child := range n.Children {
		if err := Walk(child, visit); err != nil {
			return err
		}
	}

	return nil
}
