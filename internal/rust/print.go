package rust

import (
	"slices"
	"strings"

	"pyrust/internal/types"
)

// Operator precedence, loosest first.
const (
	precAssign = iota + 1 // = op= closures return break
	precRange
	precOr
	precAnd
	precCmp
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdd
	precMul
	precCast
	precUnary
	precPostfix
	precAtom
)

var binPrec = map[string]int{
	"||": precOr, "&&": precAnd,
	"==": precCmp, "!=": precCmp, "<": precCmp, "<=": precCmp, ">": precCmp, ">=": precCmp,
	"|": precBitOr, "^": precBitXor, "&": precBitAnd, "<<": precShift, ">>": precShift,
	"+": precAdd, "-": precAdd, "*": precMul, "/": precMul, "%": precMul,
}

func exprPrec(e Expr) int {
	switch x := e.(type) {
	case *Lit:
		if strings.HasPrefix(x.Text, "-") {
			return precUnary
		}
		return precAtom
	case *Unary, *Ref:
		return precUnary
	case *Cast:
		return precCast
	case *Binary:
		if p, ok := binPrec[x.Op]; ok {
			return p
		}
		return precAssign
	case *Call, *MethodCall, *FieldExpr, *Index, *Try:
		return precPostfix
	case *Closure, *Return, *Break, *Assign:
		return precAssign
	case *If, *Match, *BlockExpr, *Loop, *While, *For:
		// Block-like expressions are parenthesized as operands.
		return precAssign
	case *Range:
		return precRange
	}
	return precAtom
}

type printer struct {
	w *writer
}

// Print renders f as Rust source text.
func Print(f *File) string {
	p := &printer{w: newWriter()}
	p.file(f)
	return p.w.String()
}

// PrintItem renders a single item.
func PrintItem(it Item) string {
	p := &printer{w: newWriter()}
	p.item(it)
	return p.w.String()
}

// PrintExpr renders e on the current line; nested blocks span lines.
func PrintExpr(e Expr) string {
	p := &printer{w: newWriter()}
	p.expr(e, 0)
	return p.w.String()
}

// TypeString renders a Rust type, "()" for nil.
func TypeString(t *types.RustType) string {
	if t == nil {
		return "()"
	}
	return t.String()
}

func (p *printer) file(f *File) {
	for _, h := range f.Header {
		if h == "" {
			p.w.Line("//")
			continue
		}
		p.w.Line("// " + h)
	}
	for _, a := range f.Attrs {
		p.w.Line("#![" + a + "]")
	}
	uses := slices.Clone(f.Uses)
	slices.Sort(uses)
	uses = slices.Compact(uses)
	if len(uses) > 0 {
		p.w.Blank()
		for _, u := range uses {
			p.w.Line("use " + u + ";")
		}
	}
	for _, it := range f.Items {
		p.w.Blank()
		p.item(it)
	}
}

func (p *printer) doc(text string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			p.w.Line("///")
		} else {
			p.w.Line("/// " + line)
		}
	}
}

func (p *printer) item(it Item) {
	switch x := it.(type) {
	case *Const:
		p.doc(x.Doc)
		p.w.WriteString("pub const " + x.Name + ": " + TypeString(x.Type) + " = ")
		p.expr(x.Value, 0)
		p.w.WriteString(";")
		p.w.Newline()
	case *Struct:
		p.doc(x.Doc)
		if len(x.Derives) > 0 {
			p.w.Line("#[derive(" + strings.Join(x.Derives, ", ") + ")]")
		}
		if len(x.Fields) == 0 {
			p.w.Line("pub struct " + x.Name + " {}")
			return
		}
		p.w.Line("pub struct " + x.Name + " {")
		p.w.Indent()
		for _, f := range x.Fields {
			p.w.Line("pub " + f.Name + ": " + TypeString(f.Type) + ",")
		}
		p.w.Dedent()
		p.w.Line("}")
	case *Impl:
		head := "impl " + x.Type
		if x.Trait != "" {
			head = "impl " + x.Trait + " for " + x.Type
		}
		if len(x.Assoc) == 0 && len(x.Fns) == 0 {
			p.w.Line(head + " {}")
			return
		}
		p.w.Line(head + " {")
		p.w.Indent()
		for _, a := range x.Assoc {
			p.w.Line("type " + a.Name + " = " + TypeString(a.Type) + ";")
		}
		for i, fn := range x.Fns {
			if i > 0 || len(x.Assoc) > 0 {
				p.w.Blank()
			}
			p.fn(fn)
		}
		p.w.Dedent()
		p.w.Line("}")
	case *Fn:
		p.fn(x)
	case *RawItem:
		for _, line := range strings.Split(strings.TrimRight(x.Text, "\n"), "\n") {
			if line == "" {
				p.w.Newline()
				continue
			}
			p.w.Line(line)
		}
	}
}

func (p *printer) fn(f *Fn) {
	p.doc(f.Doc)
	for _, a := range f.Attrs {
		p.w.Line("#[" + a + "]")
	}
	var sb strings.Builder
	if f.Pub {
		sb.WriteString("pub ")
	}
	if f.Async {
		sb.WriteString("async ")
	}
	sb.WriteString("fn " + f.Name)
	if len(f.Generics) > 0 {
		sb.WriteString("<" + strings.Join(f.Generics, ", ") + ">")
	}
	params := make([]string, 0, len(f.Params)+1)
	if f.Receiver != "" {
		params = append(params, f.Receiver)
	}
	for _, prm := range f.Params {
		s := prm.Name + ": " + TypeString(prm.Type)
		if prm.Mut {
			s = "mut " + s
		}
		params = append(params, s)
	}
	sb.WriteString("(" + strings.Join(params, ", ") + ")")
	if f.Ret != nil && f.Ret.Kind != types.RUnit {
		sb.WriteString(" -> " + f.Ret.String())
	}
	sb.WriteString(" ")
	p.w.WriteString(sb.String())
	p.block(f.Body)
	p.w.Newline()
}

func (p *printer) block(b *Block) {
	if b == nil || (len(b.Stmts) == 0 && b.Tail == nil) {
		p.w.WriteString("{}")
		return
	}
	p.w.WriteString("{")
	p.w.Newline()
	p.w.Indent()
	for _, s := range b.Stmts {
		p.stmt(s)
	}
	if b.Tail != nil {
		p.expr(b.Tail, 0)
		p.w.Newline()
	}
	p.w.Dedent()
	p.w.WriteString("}")
}

func (p *printer) stmt(s Stmt) {
	switch x := s.(type) {
	case *Let:
		p.w.WriteString("let ")
		p.pat(x.Pat)
		if x.Type != nil {
			p.w.WriteString(": " + x.Type.String())
		}
		if x.Value != nil {
			p.w.WriteString(" = ")
			p.expr(x.Value, 0)
		}
		p.w.WriteString(";")
	case *ExprStmt:
		p.expr(x.X, 0)
		if !IsBlockLike(x.X) {
			p.w.WriteString(";")
		}
	case *Comment:
		p.w.WriteString("// " + x.Text)
	}
	p.w.Newline()
}

func (p *printer) pat(pt Pat) {
	switch x := pt.(type) {
	case *Ident:
		if x.Ref {
			p.w.WriteString("ref ")
		}
		if x.Mut {
			p.w.WriteString("mut ")
		}
		p.w.WriteString(x.Name)
	case *Wild:
		p.w.WriteString("_")
	case *TuplePat:
		p.w.WriteString("(")
		for i, el := range x.Elems {
			if i > 0 {
				p.w.WriteString(", ")
			}
			p.pat(el)
		}
		if len(x.Elems) == 1 {
			p.w.WriteString(",")
		}
		p.w.WriteString(")")
	case *LitPat:
		p.w.WriteString(x.Text)
	case *VariantPat:
		p.w.WriteString(x.Path)
		if len(x.Elems) > 0 {
			p.w.WriteString("(")
			for i, el := range x.Elems {
				if i > 0 {
					p.w.WriteString(", ")
				}
				p.pat(el)
			}
			p.w.WriteString(")")
		}
	}
}

func (p *printer) list(xs []Expr) {
	for i, x := range xs {
		if i > 0 {
			p.w.WriteString(", ")
		}
		p.expr(x, 0)
	}
}

func label(l string) string {
	if l == "" {
		return ""
	}
	return "'" + l + ": "
}

// expr prints e, parenthesized when it binds looser than min.
func (p *printer) expr(e Expr, min int) {
	if exprPrec(e) < min {
		p.w.WriteString("(")
		p.expr(e, 0)
		p.w.WriteString(")")
		return
	}
	switch x := e.(type) {
	case *Lit:
		p.w.WriteString(x.Text)
	case *Path:
		p.w.WriteString(x.Name)
	case *Unary:
		p.w.WriteString(x.Op)
		p.expr(x.X, precUnary)
	case *Ref:
		p.w.WriteString("&")
		if x.Mut {
			p.w.WriteString("mut ")
		}
		p.expr(x.X, precUnary)
	case *Binary:
		prec := exprPrec(x)
		left, right := prec, prec+1
		if prec == precCmp {
			left = prec + 1
		}
		if _, isCast := x.L.(*Cast); isCast && (x.Op == "<" || x.Op == "<<") {
			left = precAtom
		}
		p.expr(x.L, left)
		p.w.WriteString(" " + x.Op + " ")
		p.expr(x.R, right)
	case *Cast:
		p.expr(x.X, precCast)
		p.w.WriteString(" as " + TypeString(x.Type))
	case *Call:
		p.expr(x.Func, precPostfix)
		p.w.WriteString("(")
		p.list(x.Args)
		p.w.WriteString(")")
	case *MethodCall:
		p.expr(x.Recv, precPostfix)
		p.w.WriteString("." + x.Method)
		if x.Turbo != "" {
			p.w.WriteString("::<" + x.Turbo + ">")
		}
		p.w.WriteString("(")
		p.list(x.Args)
		p.w.WriteString(")")
	case *FieldExpr:
		p.expr(x.X, precPostfix)
		p.w.WriteString("." + x.Name)
	case *Index:
		p.expr(x.X, precPostfix)
		p.w.WriteString("[")
		p.expr(x.Index, 0)
		p.w.WriteString("]")
	case *Macro:
		open, closing := "(", ")"
		if x.Brackets {
			open, closing = "[", "]"
		}
		p.w.WriteString(x.Name + "!" + open)
		p.list(x.Args)
		p.w.WriteString(closing)
	case *Try:
		p.expr(x.X, precPostfix)
		p.w.WriteString("?")
	case *Paren:
		p.w.WriteString("(")
		p.expr(x.X, 0)
		p.w.WriteString(")")
	case *Tuple:
		p.w.WriteString("(")
		p.list(x.Elems)
		if len(x.Elems) == 1 {
			p.w.WriteString(",")
		}
		p.w.WriteString(")")
	case *Array:
		p.w.WriteString("[")
		p.list(x.Elems)
		p.w.WriteString("]")
	case *StructLit:
		if len(x.Fields) == 0 {
			p.w.WriteString(x.Name + " {}")
			return
		}
		p.w.WriteString(x.Name + " { ")
		for i, f := range x.Fields {
			if i > 0 {
				p.w.WriteString(", ")
			}
			if path, ok := f.Value.(*Path); ok && path.Name == f.Name {
				p.w.WriteString(f.Name)
				continue
			}
			p.w.WriteString(f.Name + ": ")
			p.expr(f.Value, 0)
		}
		p.w.WriteString(" }")
	case *Closure:
		if x.Move {
			p.w.WriteString("move ")
		}
		p.w.WriteString("|" + strings.Join(x.Params, ", ") + "| ")
		p.expr(x.Body, precAssign)
	case *BlockExpr:
		p.w.WriteString(label(x.Label))
		p.block(x.Block)
	case *If:
		p.w.WriteString("if ")
		p.cond(x.Cond)
		p.w.WriteString(" ")
		p.block(x.Then)
		if x.Else != nil {
			p.w.WriteString(" else ")
			p.expr(x.Else, 0)
		}
	case *While:
		p.w.WriteString(label(x.Label) + "while ")
		p.cond(x.Cond)
		p.w.WriteString(" ")
		p.block(x.Body)
	case *Loop:
		p.w.WriteString(label(x.Label) + "loop ")
		p.block(x.Body)
	case *For:
		p.w.WriteString(label(x.Label) + "for ")
		p.pat(x.Pat)
		p.w.WriteString(" in ")
		p.cond(x.Iter)
		p.w.WriteString(" ")
		p.block(x.Body)
	case *Match:
		p.w.WriteString("match ")
		p.cond(x.X)
		p.w.WriteString(" {")
		p.w.Newline()
		p.w.Indent()
		for _, arm := range x.Arms {
			p.pat(arm.Pat)
			if arm.Guard != nil {
				p.w.WriteString(" if ")
				p.expr(arm.Guard, 0)
			}
			p.w.WriteString(" => ")
			p.expr(arm.Body, precAssign)
			p.w.WriteString(",")
			p.w.Newline()
		}
		p.w.Dedent()
		p.w.WriteString("}")
	case *Return:
		p.w.WriteString("return")
		if x.X != nil {
			p.w.WriteString(" ")
			p.expr(x.X, precAssign)
		}
	case *Break:
		p.w.WriteString("break")
		if x.Label != "" {
			p.w.WriteString(" '" + x.Label)
		}
		if x.X != nil {
			p.w.WriteString(" ")
			p.expr(x.X, precAssign)
		}
	case *Continue:
		p.w.WriteString("continue")
		if x.Label != "" {
			p.w.WriteString(" '" + x.Label)
		}
	case *Assign:
		op := x.Op
		if op == "" {
			op = "="
		}
		p.expr(x.L, precAssign+1)
		p.w.WriteString(" " + op + " ")
		p.expr(x.R, precAssign)
	case *Range:
		if x.Lo != nil {
			p.expr(x.Lo, precRange+1)
		}
		if x.Inclusive {
			p.w.WriteString("..=")
		} else {
			p.w.WriteString("..")
		}
		if x.Hi != nil {
			p.expr(x.Hi, precRange+1)
		}
	}
}

// cond prints the head expression of if, while, for and match, where a
// struct literal must be parenthesized.
func (p *printer) cond(e Expr) {
	if _, ok := e.(*StructLit); ok {
		p.w.WriteString("(")
		p.expr(e, 0)
		p.w.WriteString(")")
		return
	}
	p.expr(e, 0)
}
