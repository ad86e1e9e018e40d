package opt

import (
	"github.com/hashicorp/go-set/v3"

	"pyrust/internal/hir"
	"pyrust/internal/typeflow"
	"pyrust/internal/types"
)

type occurrence struct {
	stmt int
	expr *hir.Expr
}

// CSE hoists arithmetic that a block evaluates more than once into a
// temporary assigned just before the first use. Only expressions evaluated
// unconditionally count: operands of and/or, conditional expressions,
// lambdas, comprehensions and loop conditions are skipped, and each block
// is handled on its own. Returns whether m changed.
func CSE(m *hir.Module, tf *typeflow.Result, rep *Report) bool {
	changed := false
	for _, sc := range scopes(m) {
		u := scanUsage(sc)
		for _, b := range allBlocks(sc.body) {
			for hoist(m, tf, b, u) {
				rep.Hoisted++
				changed = true
			}
		}
	}
	return changed
}

func allBlocks(b *hir.Block) []*hir.Block {
	out := []*hir.Block{b}
	hir.WalkBlock(b, func(s *hir.Stmt) bool {
		out = append(out, hir.SubBlocks(s)...)
		return true
	})
	return out
}

// hoist performs one elimination in b, choosing the largest repeated
// expression.
func hoist(m *hir.Module, tf *typeflow.Result, b *hir.Block, u *usage) bool {
	occs := make(map[string][]occurrence)
	var order []string
	for i, s := range b.Stmts {
		for _, root := range cseRoots(s) {
			candidates(root, tf, func(x *hir.Expr) {
				key := hir.ExprString(x)
				if _, seen := occs[key]; !seen {
					order = append(order, key)
				}
				occs[key] = append(occs[key], occurrence{stmt: i, expr: x})
			})
		}
	}

	var best []occurrence
	for _, key := range order {
		list := stablePrefix(b, occs[key])
		if len(list) < 2 {
			continue
		}
		if best == nil || exprSize(list[0].expr) > exprSize(best[0].expr) {
			best = list
		}
	}
	if best == nil {
		return false
	}

	first := best[0]
	tmp := u.fresh("__cse")
	targets := set.New[*hir.Expr](len(best))
	for _, o := range best {
		targets.Insert(o.expr)
	}
	replace := func(e *hir.Expr) *hir.Expr {
		return replaceNodes(e, targets, func(x *hir.Expr) *hir.Expr {
			return m.NewExpr(hir.ExprName, x.Span, hir.NameData{Name: tmp})
		})
	}
	for i := first.stmt; i <= best[len(best)-1].stmt; i++ {
		hir.MapStmtExprs(b.Stmts[i], replace)
	}

	def := &hir.Stmt{
		Kind: hir.StmtAssign,
		Span: first.expr.Span,
		Data: hir.AssignData{
			Target: m.NewExpr(hir.ExprName, first.expr.Span, hir.NameData{Name: tmp}),
			Value:  first.expr,
		},
	}
	stmts := make([]*hir.Stmt, 0, len(b.Stmts)+1)
	stmts = append(stmts, b.Stmts[:first.stmt]...)
	stmts = append(stmts, def)
	b.Stmts = append(stmts, b.Stmts[first.stmt:]...)
	return true
}

// stablePrefix keeps the leading occurrences whose operands are not
// rebound between the first and the last of them.
func stablePrefix(b *hir.Block, list []occurrence) []occurrence {
	if len(list) < 2 {
		return nil
	}
	operands := set.New[string](0)
	collectReads(list[0].expr, operands)
	end := 1
	for end < len(list) {
		clean := true
		for i := list[end-1].stmt; i < list[end].stmt; i++ {
			if rebinds(b.Stmts[i], operands) {
				clean = false
				break
			}
		}
		if !clean {
			break
		}
		end++
	}
	return list[:end]
}

func rebinds(s *hir.Stmt, names *set.Set[string]) bool {
	bound := stmtBindSet(s)
	for _, name := range names.Slice() {
		if bound.Contains(name) {
			return true
		}
	}
	return false
}

func cseRoots(s *hir.Stmt) []*hir.Expr {
	if s.Kind == hir.StmtWhile {
		return nil
	}
	return valueExprs(s)
}

// candidates calls fn for each eligible subexpression of e that is always
// evaluated when e is.
func candidates(e *hir.Expr, tf *typeflow.Result, fn func(*hir.Expr)) {
	switch d := e.Data.(type) {
	case hir.LambdaData, hir.CompData:
		return
	case hir.IfExpData:
		candidates(d.Cond, tf, fn)
		return
	case hir.BinaryData:
		if d.Op.IsLogical() {
			candidates(d.Left, tf, fn)
			return
		}
	}
	if eligible(e, tf) {
		fn(e)
	}
	for _, c := range hir.Children(e) {
		candidates(c, tf, fn)
	}
}

// eligible accepts arithmetic over names and literals with a numeric or
// boolean type. Division and exponentiation need a non-zero literal
// divisor so hoisting cannot move a raise.
func eligible(e *hir.Expr, tf *typeflow.Result) bool {
	if e.Kind != hir.ExprBinary && e.Kind != hir.ExprUnary {
		return false
	}
	t := tf.TypeOf(e)
	if !t.IsNumeric() && t.Kind != types.Bool {
		return false
	}
	ok, names := true, 0
	hir.InspectExpr(e, func(x *hir.Expr) bool {
		switch d := x.Data.(type) {
		case hir.NameData:
			names++
		case hir.LiteralData, hir.UnaryData:
		case hir.BinaryData:
			switch d.Op {
			case hir.OpAnd, hir.OpOr:
				ok = false
			case hir.OpDiv, hir.OpFloorDiv, hir.OpMod, hir.OpPow:
				ok = nonZeroLit(d.Right)
			}
		default:
			ok = false
		}
		return ok
	})
	return ok && names > 0 && exprSize(e) >= 3
}

func replaceNodes(e *hir.Expr, targets *set.Set[*hir.Expr], mk func(*hir.Expr) *hir.Expr) *hir.Expr {
	if e == nil {
		return nil
	}
	if targets.Contains(e) {
		return mk(e)
	}
	hir.MapChildren(e, func(c *hir.Expr) *hir.Expr { return replaceNodes(c, targets, mk) })
	return e
}
