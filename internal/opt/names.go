package opt

import (
	"strconv"

	"github.com/hashicorp/go-set/v3"

	"pyrust/internal/hir"
)

// usage records how often each name is bound in a scope and which names
// are ever read. Both are flow-insensitive.
type usage struct {
	binds map[string]int
	reads *set.Set[string]
}

func scanUsage(sc scope) *usage {
	u := &usage{binds: make(map[string]int), reads: set.New[string](0)}
	if sc.fn != nil {
		for _, p := range sc.fn.Params {
			u.binds[p.Name]++
		}
		if sc.fn.Receiver.TakesSelf() {
			u.binds["self"]++
		}
	}
	hir.WalkBlock(sc.body, func(s *hir.Stmt) bool {
		stmtBinds(s, func(name string) { u.binds[name]++ })
		for _, e := range valueExprs(s) {
			collectReads(e, u.reads)
		}
		return true
	})
	return u
}

// used reports whether name is bound or read anywhere in the scope.
func (u *usage) used(name string) bool {
	return u.binds[name] > 0 || u.reads.Contains(name)
}

// fresh returns base+N for the smallest N not used in the scope and marks
// it bound.
func (u *usage) fresh(base string) string {
	for i := 0; ; i++ {
		name := base + strconv.Itoa(i)
		if !u.used(name) {
			u.binds[name]++
			return name
		}
	}
}

// stmtBinds calls fn for each name s binds directly.
func stmtBinds(s *hir.Stmt, fn func(string)) {
	switch d := s.Data.(type) {
	case hir.AssignData:
		targetNames(d.Target, fn)
	case hir.ForData:
		targetNames(d.Target, fn)
	case hir.WithData:
		if d.Target != "" {
			fn(d.Target)
		}
	case hir.TryData:
		for _, h := range d.Handlers {
			if h.Name != "" {
				fn(h.Name)
			}
		}
	}
}

func targetNames(t *hir.Expr, fn func(string)) {
	switch t.Kind {
	case hir.ExprName:
		fn(hir.NameOf(t))
	case hir.ExprTuple, hir.ExprList:
		for _, el := range t.Data.(hir.SeqData).Elems {
			targetNames(el, fn)
		}
	}
}

// blockBinds collects every name bound in b, nested blocks included.
func blockBinds(b *hir.Block) *set.Set[string] {
	out := set.New[string](0)
	hir.WalkBlock(b, func(s *hir.Stmt) bool {
		stmtBinds(s, func(name string) { out.Insert(name) })
		return true
	})
	return out
}

func stmtBindSet(s *hir.Stmt) *set.Set[string] {
	return blockBinds(&hir.Block{Stmts: []*hir.Stmt{s}})
}

// valueExprs returns the expressions of s that are evaluated for their
// value. Plain name targets are excluded; subscripts and attributes of a
// target are included, as is the name of an augmented assignment.
func valueExprs(s *hir.Stmt) []*hir.Expr {
	switch d := s.Data.(type) {
	case hir.AssignData:
		out := []*hir.Expr{d.Value}
		if d.Aug && d.Target.Kind == hir.ExprName {
			return append(out, d.Target)
		}
		return append(out, targetReads(d.Target)...)
	case hir.ForData:
		return append([]*hir.Expr{d.Iter}, targetReads(d.Target)...)
	}
	return hir.StmtExprs(s)
}

func targetReads(t *hir.Expr) []*hir.Expr {
	switch t.Kind {
	case hir.ExprName:
		return nil
	case hir.ExprTuple, hir.ExprList:
		var out []*hir.Expr
		for _, el := range t.Data.(hir.SeqData).Elems {
			out = append(out, targetReads(el)...)
		}
		return out
	}
	return hir.Children(t)
}

// mapValues applies f to the value positions of s, mirroring valueExprs.
// The name of an augmented assignment stays in place.
func mapValues(s *hir.Stmt, f func(*hir.Expr) *hir.Expr) {
	switch d := s.Data.(type) {
	case hir.AssignData:
		d.Value = f(d.Value)
		if d.Target.Kind != hir.ExprName {
			mapTarget(d.Target, f)
		}
		s.Data = d
	case hir.ForData:
		d.Iter = f(d.Iter)
		mapTarget(d.Target, f)
		s.Data = d
	default:
		hir.MapStmtExprs(s, f)
	}
}

func mapTarget(t *hir.Expr, f func(*hir.Expr) *hir.Expr) {
	switch t.Kind {
	case hir.ExprName:
	case hir.ExprTuple, hir.ExprList:
		for _, el := range t.Data.(hir.SeqData).Elems {
			mapTarget(el, f)
		}
	default:
		hir.MapChildren(t, f)
	}
}

func collectReads(e *hir.Expr, reads *set.Set[string]) {
	hir.InspectExpr(e, func(x *hir.Expr) bool {
		switch d := x.Data.(type) {
		case hir.NameData:
			reads.Insert(d.Name)
		case hir.CallData:
			reads.Insert(d.Func)
		}
		return true
	})
}

// binders returns the names a lambda or comprehension binds for its own
// body, nil for other expressions.
func binders(e *hir.Expr) *set.Set[string] {
	switch d := e.Data.(type) {
	case hir.LambdaData:
		return set.From(d.Params)
	case hir.CompData:
		out := set.New[string](0)
		for _, f := range d.For {
			targetNames(f.Target, func(n string) { out.Insert(n) })
		}
		return out
	}
	return nil
}

// substitute replaces unshadowed loads of the names in repl. Each use
// gets the expression returned by the callback.
func substitute(e *hir.Expr, repl map[string]func(*hir.Expr) *hir.Expr) *hir.Expr {
	if e == nil {
		return nil
	}
	if name := hir.NameOf(e); name != "" {
		if mk, ok := repl[name]; ok {
			return mk(e)
		}
		return e
	}
	if bound := binders(e); bound != nil {
		shadowed := false
		for name := range repl {
			if bound.Contains(name) {
				shadowed = true
				break
			}
		}
		if shadowed {
			return e
		}
	}
	hir.MapChildren(e, func(c *hir.Expr) *hir.Expr { return substitute(c, repl) })
	return e
}

// exprSize counts the nodes of e.
func exprSize(e *hir.Expr) int {
	n := 0
	hir.InspectExpr(e, func(*hir.Expr) bool {
		n++
		return true
	})
	return n
}

func blockSize(b *hir.Block) int {
	n := 0
	hir.WalkBlock(b, func(s *hir.Stmt) bool {
		n++
		for _, e := range hir.StmtExprs(s) {
			n += exprSize(e)
		}
		return true
	})
	return n
}

var pureBuiltins = map[string]bool{"len": true, "abs": true}

// isPure reports whether evaluating e can neither raise nor touch state.
// Lambdas are pure: their body is not evaluated.
func isPure(e *hir.Expr) bool {
	pure := true
	hir.InspectExpr(e, func(x *hir.Expr) bool {
		switch d := x.Data.(type) {
		case hir.LiteralData, hir.NameData, hir.UnaryData, hir.SeqData, hir.DictData,
			hir.IfExpData, hir.FStringData, hir.AttrData:
		case hir.LambdaData:
			return false
		case hir.BinaryData:
			switch d.Op {
			case hir.OpDiv, hir.OpFloorDiv, hir.OpMod:
				pure = nonZeroLit(d.Right)
			}
		case hir.CallData:
			pure = pureBuiltins[d.Func] && len(d.Kwargs) == 0
		default:
			pure = false
		}
		return pure
	})
	return pure
}

func nonZeroLit(e *hir.Expr) bool {
	lit, ok := e.Data.(hir.LiteralData)
	if !ok {
		return false
	}
	switch lit.Kind {
	case hir.LiteralInt:
		return lit.Int != 0
	case hir.LiteralFloat:
		return lit.Float != 0
	}
	return false
}
