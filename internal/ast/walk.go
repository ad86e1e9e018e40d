package ast

// Inspect traverses stmts depth-first, calling fn for every node. Returning
// false from fn skips the node's children. Nested function and class bodies
// are visited.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	each := func(items []Expr) {
		for _, e := range items {
			if e != nil {
				Inspect(e, fn)
			}
		}
	}
	stmts := func(items []Stmt) {
		for _, s := range items {
			Inspect(s, fn)
		}
	}
	opt := func(e Expr) {
		if e != nil {
			Inspect(e, fn)
		}
	}
	gens := func(gs []*Comprehension) {
		for _, g := range gs {
			opt(g.Target)
			opt(g.Iter)
			each(g.Ifs)
		}
	}
	switch n := n.(type) {
	case *Module:
		stmts(n.Body)
	case *JoinedStr:
		for _, p := range n.Parts {
			opt(p.Expr)
		}
	case *BinOp:
		opt(n.Left)
		opt(n.Right)
	case *UnaryOp:
		opt(n.Operand)
	case *BoolOp:
		each(n.Values)
	case *Compare:
		opt(n.Left)
		each(n.Comparators)
	case *Call:
		opt(n.Func)
		each(n.Args)
		for _, k := range n.Keywords {
			opt(k.Value)
		}
	case *Attribute:
		opt(n.Value)
	case *Subscript:
		opt(n.Value)
		opt(n.Index)
	case *Slice:
		opt(n.Lower)
		opt(n.Upper)
		opt(n.Step)
	case *List:
		each(n.Elts)
	case *Tuple:
		each(n.Elts)
	case *Set:
		each(n.Elts)
	case *Dict:
		each(n.Keys)
		each(n.Values)
	case *ListComp:
		opt(n.Elt)
		gens(n.Generators)
	case *SetComp:
		opt(n.Elt)
		gens(n.Generators)
	case *DictComp:
		opt(n.Key)
		opt(n.Value)
		gens(n.Generators)
	case *GeneratorExp:
		opt(n.Elt)
		gens(n.Generators)
	case *Lambda:
		opt(n.Body)
	case *IfExp:
		opt(n.Test)
		opt(n.Body)
		opt(n.OrElse)
	case *Await:
		opt(n.Value)
	case *Yield:
		opt(n.Value)
	case *YieldFrom:
		opt(n.Value)
	case *Starred:
		opt(n.Value)
	case *NamedExpr:
		opt(n.Value)
	case *FunctionDef:
		each(n.Decorators)
		stmts(n.Body)
	case *ClassDef:
		each(n.Bases)
		stmts(n.Body)
	case *Return:
		opt(n.Value)
	case *Delete:
		each(n.Targets)
	case *Assign:
		each(n.Targets)
		opt(n.Value)
	case *AugAssign:
		opt(n.Target)
		opt(n.Value)
	case *AnnAssign:
		opt(n.Target)
		opt(n.Value)
	case *For:
		opt(n.Target)
		opt(n.Iter)
		stmts(n.Body)
		stmts(n.OrElse)
	case *While:
		opt(n.Test)
		stmts(n.Body)
		stmts(n.OrElse)
	case *If:
		opt(n.Test)
		stmts(n.Body)
		stmts(n.OrElse)
	case *With:
		for _, it := range n.Items {
			opt(it.Context)
			opt(it.Vars)
		}
		stmts(n.Body)
	case *Raise:
		opt(n.Exc)
		opt(n.Cause)
	case *Try:
		stmts(n.Body)
		for _, h := range n.Handlers {
			opt(h.Type)
			stmts(h.Body)
		}
		stmts(n.OrElse)
		stmts(n.FinalBody)
	case *Assert:
		opt(n.Test)
		opt(n.Msg)
	case *ExprStmt:
		opt(n.Value)
	}
}
