package codegen

import (
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/rust"
	"pyrust/internal/types"
)

// comprehension lowers a comprehension to a block that fills a fresh
// collection in nested for loops. Generator expressions turn the filled
// Vec into an iterator.
func (fc *fnCtx) comprehension(e *hir.Expr, d hir.CompData, t *types.Type) (value, error) {
	if t == nil {
		t = types.UnknownT
	}
	acc := fc.fresh("comp")
	ctor, push := "Vec::new", "push"
	switch e.Kind {
	case hir.ExprSetComp:
		fc.g.use("std::collections::HashSet")
		ctor, push = "HashSet::new", "insert"
	case hir.ExprDictComp:
		fc.g.use("std::collections::HashMap")
		ctor, push = "HashMap::new", "insert"
	}

	var bound []string
	defer func() {
		for _, n := range bound {
			fc.scoped[n]--
		}
	}()

	var loop func(i int) (rust.Stmt, error)
	loop = func(i int) (rust.Stmt, error) {
		if i == len(d.For) {
			var args []rust.Expr
			if e.Kind == hir.ExprDictComp {
				k, err := fc.expr(d.Key)
				if err != nil {
					return nil, err
				}
				v, err := fc.expr(d.Elem)
				if err != nil {
					return nil, err
				}
				args = []rust.Expr{fc.coerce(k, t.Elem()), fc.coerce(v, t.Value())}
			} else {
				v, err := fc.expr(d.Elem)
				if err != nil {
					return nil, err
				}
				args = []rust.Expr{fc.coerce(v, t.Elem())}
			}
			return rust.Semi(rust.M(rust.P(acc), push, args...)), nil
		}
		f := d.For[i]
		it, err := fc.iterOf(f.Iter)
		if err != nil {
			return nil, err
		}
		pat, err := targetPat(f.Target)
		if err != nil {
			return nil, err
		}
		forEachName(f.Target, func(n string) {
			fc.scoped[n]++
			bound = append(bound, n)
		})
		conds := make([]rust.Expr, len(f.Ifs))
		for j, c := range f.Ifs {
			if conds[j], err = fc.cond(c); err != nil {
				return nil, err
			}
		}
		inner, err := loop(i + 1)
		if err != nil {
			return nil, err
		}
		for j := len(conds) - 1; j >= 0; j-- {
			inner = rust.Semi(&rust.If{Cond: conds[j], Then: &rust.Block{Stmts: []rust.Stmt{inner}}})
		}
		return rust.Semi(&rust.For{Pat: pat, Iter: it, Body: &rust.Block{Stmts: []rust.Stmt{inner}}}), nil
	}
	body, err := loop(0)
	if err != nil {
		return value{}, err
	}
	var tail rust.Expr = rust.P(acc)
	if e.Kind == hir.ExprGenerator {
		tail = rust.M(tail, "into_iter")
	}
	block := &rust.Block{
		Stmts: []rust.Stmt{&rust.Let{Pat: &rust.Ident{Name: acc, Mut: true}, Value: rust.C(ctor)}, body},
		Tail:  tail,
	}
	return temp(&rust.BlockExpr{Block: block}, t), nil
}

// targetPat turns a loop target into a binding pattern.
func targetPat(t *hir.Expr) (rust.Pat, error) {
	switch t.Kind {
	case hir.ExprName:
		return rust.Var(rust.EscapeIdent(hir.NameOf(t))), nil
	case hir.ExprTuple:
		elems := t.Data.(hir.SeqData).Elems
		out := &rust.TuplePat{Elems: make([]rust.Pat, len(elems))}
		for i, el := range elems {
			p, err := targetPat(el)
			if err != nil {
				return nil, err
			}
			out.Elems[i] = p
		}
		return out, nil
	}
	return nil, diag.Errorf(diag.CodeGenError, t.Span, "loop target %s", hir.ExprString(t))
}
