package opt

import (
	"pyrust/internal/hir"
	"pyrust/internal/types"
)

// ConstProp folds constant expressions and replaces reads of locals that
// are bound exactly once, at the top level of their scope, to a numeric or
// boolean literal. Any second binding excludes the name: a loop target, an
// augmented assignment, a parameter or a rebinding in a nested block.
// Returns whether m changed.
func ConstProp(m *hir.Module, rep *Report) bool {
	changed := false
	for _, c := range m.Consts {
		var n int
		c.Value, n = foldExpr(c.Value)
		rep.Folded += n
		changed = changed || n > 0
	}
	for _, sc := range scopes(m) {
		for {
			n := foldBlock(sc.body, rep) + propagate(m, sc, rep)
			if n == 0 {
				break
			}
			changed = true
		}
	}
	return changed
}

func foldBlock(b *hir.Block, rep *Report) int {
	total := 0
	hir.WalkBlock(b, func(s *hir.Stmt) bool {
		mapValues(s, func(e *hir.Expr) *hir.Expr {
			out, n := foldExpr(e)
			total += n
			return out
		})
		return true
	})
	rep.Folded += total
	return total
}

func propagate(m *hir.Module, sc scope, rep *Report) int {
	u := scanUsage(sc)
	stmts := sc.body.Stmts
	total := 0
	for i, s := range stmts {
		d, ok := s.Data.(hir.AssignData)
		if !ok || d.Aug {
			continue
		}
		name := hir.NameOf(d.Target)
		if name == "" || u.binds[name] != 1 {
			continue
		}
		lit, ok := literalOf(d.Value)
		if !ok || !propagatable(lit, d.Annot) {
			continue
		}
		repl := map[string]func(*hir.Expr) *hir.Expr{
			name: func(use *hir.Expr) *hir.Expr {
				total++
				return m.NewExpr(hir.ExprLiteral, use.Span, lit)
			},
		}
		later := &hir.Block{Stmts: stmts[i+1:]}
		hir.WalkBlock(later, func(x *hir.Stmt) bool {
			mapValues(x, func(e *hir.Expr) *hir.Expr { return substitute(e, repl) })
			return true
		})
	}
	rep.Propagated += total
	return total
}

// propagatable limits propagation to value types whose literal has the
// same meaning at every use. An annotation that widens the literal (x:
// float = 1) keeps the variable.
func propagatable(lit hir.LiteralData, annot *types.Type) bool {
	switch lit.Kind {
	case hir.LiteralInt, hir.LiteralFloat, hir.LiteralBool:
	default:
		return false
	}
	return annot == nil || annot.Equal(lit.Type())
}
