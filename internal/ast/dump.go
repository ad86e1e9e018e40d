package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders a node as a compact S-expression. Spans are omitted so the
// output is stable for tests and the `pyrust ast` debug view.
func Dump(n Node) string {
	var d dumper
	d.node(n)
	return d.b.String()
}

type dumper struct {
	b strings.Builder
}

func (d *dumper) w(format string, args ...any) {
	fmt.Fprintf(&d.b, format, args...)
}

func (d *dumper) list(items []Expr) {
	d.w("[")
	for i, e := range items {
		if i > 0 {
			d.w(" ")
		}
		d.node(e)
	}
	d.w("]")
}

func (d *dumper) body(stmts []Stmt) {
	d.w("[")
	for i, s := range stmts {
		if i > 0 {
			d.w(" ")
		}
		d.node(s)
	}
	d.w("]")
}

func (d *dumper) opt(e Expr) {
	if e == nil {
		d.w("_")
		return
	}
	d.node(e)
}

func (d *dumper) gens(gs []*Comprehension) {
	for _, g := range gs {
		d.w(" (for ")
		d.node(g.Target)
		d.w(" ")
		d.node(g.Iter)
		for _, c := range g.Ifs {
			d.w(" (if ")
			d.node(c)
			d.w(")")
		}
		d.w(")")
	}
}

func (d *dumper) args(a *Arguments) {
	d.w("(")
	for i, p := range a.Args {
		if i > 0 {
			d.w(" ")
		}
		d.w("%s", p.Name)
		if p.Annotation != nil {
			d.w(":")
			d.node(p.Annotation)
		}
		if def := a.Default(i); def != nil {
			d.w("=")
			d.node(def)
		}
	}
	if a.VarArg != nil {
		d.w(" *%s", a.VarArg.Name)
	}
	for _, p := range a.KwOnly {
		d.w(" %s", p.Name)
	}
	if a.KwArg != nil {
		d.w(" **%s", a.KwArg.Name)
	}
	d.w(")")
}

func (d *dumper) node(n Node) {
	switch n := n.(type) {
	case *Module:
		d.w("(module ")
		d.body(n.Body)
		d.w(")")
	case *Name:
		d.w("%s", n.ID)
	case *Constant:
		switch n.Kind {
		case ConstStr:
			d.w("%s", strconv.Quote(n.Value))
		case ConstBytes:
			d.w("b%s", strconv.Quote(n.Value))
		case ConstEllipsis:
			d.w("...")
		default:
			d.w("%s", n.Value)
		}
	case *JoinedStr:
		d.w("(fstr")
		for _, p := range n.Parts {
			if p.Expr == nil {
				d.w(" %s", strconv.Quote(p.Lit))
				continue
			}
			d.w(" {")
			d.node(p.Expr)
			if p.Conv != 0 {
				d.w("!%c", p.Conv)
			}
			if p.Spec != "" {
				d.w(":%s", p.Spec)
			}
			d.w("}")
		}
		d.w(")")
	case *BinOp:
		d.w("(%s ", n.Op)
		d.node(n.Left)
		d.w(" ")
		d.node(n.Right)
		d.w(")")
	case *UnaryOp:
		d.w("(%s ", n.Op)
		d.node(n.Operand)
		d.w(")")
	case *BoolOp:
		d.w("(%s", n.Op)
		for _, v := range n.Values {
			d.w(" ")
			d.node(v)
		}
		d.w(")")
	case *Compare:
		d.w("(cmp ")
		d.node(n.Left)
		for i, op := range n.Ops {
			d.w(" %s ", op)
			d.node(n.Comparators[i])
		}
		d.w(")")
	case *Call:
		d.w("(call ")
		d.node(n.Func)
		for _, a := range n.Args {
			d.w(" ")
			d.node(a)
		}
		for _, k := range n.Keywords {
			d.w(" %s=", k.Name)
			d.node(k.Value)
		}
		d.w(")")
	case *Attribute:
		d.w("(. ")
		d.node(n.Value)
		d.w(" %s)", n.Attr)
	case *Subscript:
		d.w("(index ")
		d.node(n.Value)
		d.w(" ")
		d.node(n.Index)
		d.w(")")
	case *Slice:
		d.w("(slice ")
		d.opt(n.Lower)
		d.w(" ")
		d.opt(n.Upper)
		d.w(" ")
		d.opt(n.Step)
		d.w(")")
	case *List:
		d.w("(list ")
		d.list(n.Elts)
		d.w(")")
	case *Tuple:
		d.w("(tuple ")
		d.list(n.Elts)
		d.w(")")
	case *Set:
		d.w("(set ")
		d.list(n.Elts)
		d.w(")")
	case *Dict:
		d.w("(dict")
		for i := range n.Keys {
			d.w(" ")
			d.opt(n.Keys[i])
			d.w(":")
			d.node(n.Values[i])
		}
		d.w(")")
	case *ListComp:
		d.w("(listcomp ")
		d.node(n.Elt)
		d.gens(n.Generators)
		d.w(")")
	case *SetComp:
		d.w("(setcomp ")
		d.node(n.Elt)
		d.gens(n.Generators)
		d.w(")")
	case *DictComp:
		d.w("(dictcomp ")
		d.node(n.Key)
		d.w(":")
		d.node(n.Value)
		d.gens(n.Generators)
		d.w(")")
	case *GeneratorExp:
		d.w("(genexp ")
		d.node(n.Elt)
		d.gens(n.Generators)
		d.w(")")
	case *Lambda:
		d.w("(lambda ")
		d.args(n.Args)
		d.w(" ")
		d.node(n.Body)
		d.w(")")
	case *IfExp:
		d.w("(ifexp ")
		d.node(n.Test)
		d.w(" ")
		d.node(n.Body)
		d.w(" ")
		d.node(n.OrElse)
		d.w(")")
	case *Await:
		d.w("(await ")
		d.node(n.Value)
		d.w(")")
	case *Yield:
		d.w("(yield ")
		d.opt(n.Value)
		d.w(")")
	case *YieldFrom:
		d.w("(yield-from ")
		d.node(n.Value)
		d.w(")")
	case *Starred:
		d.w("(* ")
		d.node(n.Value)
		d.w(")")
	case *NamedExpr:
		d.w("(:= %s ", n.Target.ID)
		d.node(n.Value)
		d.w(")")

	case *FunctionDef:
		if n.IsAsync {
			d.w("(async-def %s ", n.Name)
		} else {
			d.w("(def %s ", n.Name)
		}
		d.args(n.Args)
		if n.Returns != nil {
			d.w(" -> ")
			d.node(n.Returns)
		}
		for _, dec := range n.Decorators {
			d.w(" @")
			d.node(dec)
		}
		d.w(" ")
		d.body(n.Body)
		d.w(")")
	case *ClassDef:
		d.w("(class %s ", n.Name)
		d.list(n.Bases)
		for _, dec := range n.Decorators {
			d.w(" @")
			d.node(dec)
		}
		d.w(" ")
		d.body(n.Body)
		d.w(")")
	case *Return:
		d.w("(return ")
		d.opt(n.Value)
		d.w(")")
	case *Delete:
		d.w("(del ")
		d.list(n.Targets)
		d.w(")")
	case *Assign:
		d.w("(= ")
		d.list(n.Targets)
		d.w(" ")
		d.node(n.Value)
		d.w(")")
	case *AugAssign:
		d.w("(%s= ", n.Op)
		d.node(n.Target)
		d.w(" ")
		d.node(n.Value)
		d.w(")")
	case *AnnAssign:
		d.w("(: ")
		d.node(n.Target)
		d.w(" ")
		d.node(n.Annotation)
		d.w(" ")
		d.opt(n.Value)
		d.w(")")
	case *For:
		d.w("(for ")
		d.node(n.Target)
		d.w(" ")
		d.node(n.Iter)
		d.w(" ")
		d.body(n.Body)
		if len(n.OrElse) > 0 {
			d.w(" else ")
			d.body(n.OrElse)
		}
		d.w(")")
	case *While:
		d.w("(while ")
		d.node(n.Test)
		d.w(" ")
		d.body(n.Body)
		if len(n.OrElse) > 0 {
			d.w(" else ")
			d.body(n.OrElse)
		}
		d.w(")")
	case *If:
		d.w("(if ")
		d.node(n.Test)
		d.w(" ")
		d.body(n.Body)
		if len(n.OrElse) > 0 {
			d.w(" else ")
			d.body(n.OrElse)
		}
		d.w(")")
	case *With:
		d.w("(with")
		for _, it := range n.Items {
			d.w(" ")
			d.node(it.Context)
			if it.Vars != nil {
				d.w(" as ")
				d.node(it.Vars)
			}
		}
		d.w(" ")
		d.body(n.Body)
		d.w(")")
	case *Raise:
		d.w("(raise ")
		d.opt(n.Exc)
		d.w(")")
	case *Try:
		d.w("(try ")
		d.body(n.Body)
		for _, h := range n.Handlers {
			d.w(" (except ")
			d.opt(h.Type)
			if h.Name != "" {
				d.w(" as %s", h.Name)
			}
			d.w(" ")
			d.body(h.Body)
			d.w(")")
		}
		if len(n.FinalBody) > 0 {
			d.w(" finally ")
			d.body(n.FinalBody)
		}
		d.w(")")
	case *Assert:
		d.w("(assert ")
		d.node(n.Test)
		d.w(" ")
		d.opt(n.Msg)
		d.w(")")
	case *Import:
		d.w("(import")
		for _, a := range n.Names {
			d.w(" %s", a.Name)
			if a.AsName != "" {
				d.w(" as %s", a.AsName)
			}
		}
		d.w(")")
	case *ImportFrom:
		d.w("(from %s%s import", strings.Repeat(".", n.Level), n.Module)
		for _, a := range n.Names {
			d.w(" %s", a.Name)
			if a.AsName != "" {
				d.w(" as %s", a.AsName)
			}
		}
		d.w(")")
	case *Global:
		d.w("(global %s)", strings.Join(n.Names, " "))
	case *Nonlocal:
		d.w("(nonlocal %s)", strings.Join(n.Names, " "))
	case *ExprStmt:
		d.node(n.Value)
	case *Pass:
		d.w("pass")
	case *Break:
		d.w("break")
	case *Continue:
		d.w("continue")
	case nil:
		d.w("_")
	default:
		d.w("<%T>", n)
	}
}
