package opt

import (
	"pyrust/internal/hir"
)

// DeadCode removes statements that never run and stores nobody reads:
// statements after return, raise, break or continue; branches under a
// constant condition; assignments to locals that are never read, keeping
// the right-hand side when it has effects; and pure expression
// statements. Returns whether m changed.
func DeadCode(m *hir.Module, rep *Report) bool {
	changed := false
	for _, sc := range scopes(m) {
		for {
			n := prune(sc.body, rep) + deadStores(sc, rep)
			if n == 0 {
				break
			}
			changed = true
		}
	}
	return changed
}

func isJump(s *hir.Stmt) bool {
	switch s.Kind {
	case hir.StmtReturn, hir.StmtRaise, hir.StmtBreak, hir.StmtContinue:
		return true
	}
	return false
}

func constCond(e *hir.Expr) (value, ok bool) {
	lit, ok := literalOf(e)
	if !ok || lit.Kind != hir.LiteralBool {
		return false, false
	}
	return lit.Bool, true
}

func prune(b *hir.Block, rep *Report) int {
	if b == nil {
		return 0
	}
	n := 0
	out := make([]*hir.Stmt, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		switch d := s.Data.(type) {
		case hir.IfData:
			if v, ok := constCond(d.Cond); ok {
				n++
				rep.Unreachable++
				branch := d.Else
				if v {
					branch = d.Then
				}
				if branch != nil {
					n += prune(branch, rep)
					out = append(out, branch.Stmts...)
				}
				continue
			}
		case hir.WhileData:
			if v, ok := constCond(d.Cond); ok && !v {
				n++
				rep.Unreachable++
				continue
			}
		}
		for _, sub := range hir.SubBlocks(s) {
			n += prune(sub, rep)
		}
		out = append(out, s)
	}
	for i, s := range out {
		if isJump(s) && i < len(out)-1 {
			dropped := len(out) - i - 1
			n += dropped
			rep.Unreachable += dropped
			out = out[:i+1]
			break
		}
	}
	b.Stmts = out
	return n
}

func deadStores(sc scope, rep *Report) int {
	u := scanUsage(sc)
	n := 0
	var visit func(b *hir.Block)
	visit = func(b *hir.Block) {
		if b == nil {
			return
		}
		out := make([]*hir.Stmt, 0, len(b.Stmts))
		for _, s := range b.Stmts {
			for _, sub := range hir.SubBlocks(s) {
				visit(sub)
			}
			keep, dead := deadStore(s, u)
			if !dead {
				out = append(out, s)
				continue
			}
			n++
			if keep != nil {
				out = append(out, keep)
			}
		}
		b.Stmts = out
	}
	visit(sc.body)
	rep.DeadStores += n
	return n
}

// deadStore reports whether s can go. keep is the statement that replaces
// it, nil when nothing needs to run.
func deadStore(s *hir.Stmt, u *usage) (keep *hir.Stmt, dead bool) {
	switch d := s.Data.(type) {
	case hir.AssignData:
		if d.Aug || !onlyNames(d.Target) {
			return nil, false
		}
		read := false
		targetNames(d.Target, func(name string) {
			read = read || u.reads.Contains(name)
		})
		if read {
			return nil, false
		}
		if isPure(d.Value) {
			return nil, true
		}
		return &hir.Stmt{Kind: hir.StmtExpr, Span: s.Span, Data: hir.ExprStmtData{Expr: d.Value}}, true
	case hir.ExprStmtData:
		return nil, d.Expr.Kind != hir.ExprYield && isPure(d.Expr)
	}
	return nil, false
}

func onlyNames(t *hir.Expr) bool {
	switch t.Kind {
	case hir.ExprName:
		return true
	case hir.ExprTuple, hir.ExprList:
		for _, el := range t.Data.(hir.SeqData).Elems {
			if !onlyNames(el) {
				return false
			}
		}
		return true
	}
	return false
}
