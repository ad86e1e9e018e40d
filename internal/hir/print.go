package hir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DumpOptions configures HIR dumping. The hooks let analysis passes
// append their side-table facts without hir depending on them.
type DumpOptions struct {
	ParamNote func(f *Func, index int) string
	FuncNote  func(f *Func) string
}

// Printer is used to dump HIR to text format.
type Printer struct {
	w      io.Writer
	indent int
	opts   DumpOptions
	err    error
}

// NewPrinter creates a new HIR printer.
func NewPrinter(w io.Writer, opts DumpOptions) *Printer {
	return &Printer{w: w, opts: opts}
}

// Dump writes the HIR module to the writer.
func Dump(w io.Writer, m *Module) error {
	return DumpWithOptions(w, m, DumpOptions{})
}

// DumpWithOptions writes a formatted HIR module to w.
func DumpWithOptions(w io.Writer, m *Module, opts DumpOptions) error {
	p := NewPrinter(w, opts)
	p.PrintModule(m)
	return p.err
}

// DumpString renders m with default options.
func DumpString(m *Module) string {
	var sb strings.Builder
	_ = Dump(&sb, m)
	return sb.String()
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) line(format string, args ...any) {
	p.printf("%s", strings.Repeat("  ", p.indent))
	p.printf(format, args...)
	p.printf("\n")
}

// PrintModule prints a complete module.
func (p *Printer) PrintModule(m *Module) {
	p.line("module %s", m.Name)
	for _, imp := range m.Imports {
		if len(imp.Names) > 0 {
			p.line("from %s import %s", imp.Module, strings.Join(imp.Names, ", "))
		} else {
			p.line("import %s", imp.Module)
		}
	}
	for _, c := range m.Consts {
		ann := ""
		if c.Type != nil {
			ann = ": " + c.Type.String()
		}
		p.line("const %s%s = %s", c.Name, ann, ExprString(c.Value))
	}
	for _, c := range m.Classes {
		p.PrintClass(c)
	}
	for _, f := range m.Funcs {
		p.PrintFunc(f)
	}
	if m.Main != nil {
		p.line("main:")
		p.block(m.Main)
	}
}

// PrintClass prints a class with its fields and methods.
func (p *Printer) PrintClass(c *Class) {
	head := "class " + c.Name
	if c.Base != "" {
		head += "(" + c.Base + ")"
	}
	if c.Dataclass {
		head = "@dataclass " + head
	}
	p.line("%s", head)
	p.indent++
	for _, f := range c.Fields {
		ty := "?"
		if f.Type != nil {
			ty = f.Type.String()
		}
		if f.Default != nil {
			p.line("field %s: %s = %s", f.Name, ty, ExprString(f.Default))
		} else {
			p.line("field %s: %s", f.Name, ty)
		}
	}
	for _, m := range c.Methods {
		p.PrintFunc(m)
	}
	p.indent--
}

// PrintFunc prints a function header and body.
func (p *Printer) PrintFunc(f *Func) {
	params := make([]string, 0, len(f.Params)+1)
	if f.Receiver != RecvNone {
		params = append(params, f.Receiver.String())
	}
	for i, prm := range f.Params {
		s := prm.Name
		if prm.Type != nil {
			s += ": " + prm.Type.String()
		}
		if prm.Default != nil {
			s += " = " + ExprString(prm.Default)
		}
		if p.opts.ParamNote != nil {
			if note := p.opts.ParamNote(f, i); note != "" {
				s += " [" + note + "]"
			}
		}
		params = append(params, s)
	}
	head := f.Flags.String() + "def " + f.Name + "(" + strings.Join(params, ", ") + ")"
	if f.Returns != nil {
		head += " -> " + f.Returns.String()
	}
	if p.opts.FuncNote != nil {
		if note := p.opts.FuncNote(f); note != "" {
			head += " [" + note + "]"
		}
	}
	p.line("%s", head)
	p.block(f.Body)
}

func (p *Printer) block(b *Block) {
	p.indent++
	if b.IsEmpty() {
		p.line("pass")
	} else {
		for _, s := range b.Stmts {
			p.stmt(s)
		}
	}
	p.indent--
}

func (p *Printer) stmt(s *Stmt) {
	switch d := s.Data.(type) {
	case AssignData:
		switch {
		case d.Aug:
			p.line("%s %s= %s", ExprString(d.Target), d.Op, ExprString(d.Value))
		case d.Annot != nil:
			p.line("%s: %s = %s", ExprString(d.Target), d.Annot, ExprString(d.Value))
		default:
			p.line("%s = %s", ExprString(d.Target), ExprString(d.Value))
		}
	case ExprStmtData:
		p.line("%s", ExprString(d.Expr))
	case ReturnData:
		if d.Value == nil {
			p.line("return")
		} else {
			p.line("return %s", ExprString(d.Value))
		}
	case IfData:
		p.line("if %s:", ExprString(d.Cond))
		p.block(d.Then)
		if d.Else != nil {
			p.line("else:")
			p.block(d.Else)
		}
	case WhileData:
		p.line("while %s:", ExprString(d.Cond))
		p.block(d.Body)
	case ForData:
		p.line("for %s in %s:", ExprString(d.Target), ExprString(d.Iter))
		p.block(d.Body)
	case BranchData:
		word := "break"
		if s.Kind == StmtContinue {
			word = "continue"
		}
		if d.Label != "" {
			word += " '" + d.Label
		}
		p.line("%s", word)
	case RaiseData:
		switch {
		case d.Reraise:
			p.line("raise")
		case d.Message != nil:
			p.line("raise %s(%s)", d.ExcType, ExprString(d.Message))
		default:
			p.line("raise %s", d.ExcType)
		}
	case WithData:
		if d.Target != "" {
			p.line("with %s as %s:", ExprString(d.Context), d.Target)
		} else {
			p.line("with %s:", ExprString(d.Context))
		}
		p.block(d.Body)
	case TryData:
		p.line("try:")
		p.block(d.Body)
		for _, h := range d.Handlers {
			head := "except"
			if len(h.Types) > 0 {
				head += " " + strings.Join(h.Types, ", ")
			}
			if h.Name != "" {
				head += " as " + h.Name
			}
			p.line("%s:", head)
			p.block(h.Body)
		}
		if d.Else != nil {
			p.line("else:")
			p.block(d.Else)
		}
		if d.Finally != nil {
			p.line("finally:")
			p.block(d.Finally)
		}
	case AssertData:
		if d.Message != nil {
			p.line("assert %s, %s", ExprString(d.Test), ExprString(d.Message))
		} else {
			p.line("assert %s", ExprString(d.Test))
		}
	case PassData:
		p.line("pass")
	default:
		p.line("<%s>", s.Kind)
	}
}

// ExprString renders e in a compact Python-like syntax.
func ExprString(e *Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch d := e.Data.(type) {
	case LiteralData:
		switch d.Kind {
		case LiteralInt, LiteralFloat:
			return d.Text
		case LiteralStr:
			return strconv.Quote(d.Str)
		case LiteralBool:
			if d.Bool {
				return "True"
			}
			return "False"
		}
		return "None"
	case NameData:
		return d.Name
	case BinaryData:
		return "(" + ExprString(d.Left) + " " + d.Op.String() + " " + ExprString(d.Right) + ")"
	case UnaryData:
		return "(" + d.Op.String() + ExprString(d.Operand) + ")"
	case CallData:
		return d.Func + "(" + argList(d.Args, d.Kwargs) + ")"
	case MethodCallData:
		return ExprString(d.Receiver) + "." + d.Method + "(" + argList(d.Args, d.Kwargs) + ")"
	case AttrData:
		return ExprString(d.Object) + "." + d.Name
	case IndexData:
		return ExprString(d.Object) + "[" + ExprString(d.Index) + "]"
	case SliceData:
		s := ExprString(d.Object) + "[" + optExpr(d.Lower) + ":" + optExpr(d.Upper)
		if d.Step != nil {
			s += ":" + ExprString(d.Step)
		}
		return s + "]"
	case BorrowData:
		switch d.Mode {
		case BorrowMut:
			return "&mut " + ExprString(d.Value)
		case BorrowClone:
			return ExprString(d.Value) + ".clone()"
		}
		return "&" + ExprString(d.Value)
	case SeqData:
		inner := joinExprs(d.Elems)
		switch e.Kind {
		case ExprTuple:
			if len(d.Elems) == 1 {
				inner += ","
			}
			return "(" + inner + ")"
		case ExprSet:
			return "{" + inner + "}"
		}
		return "[" + inner + "]"
	case DictData:
		parts := make([]string, len(d.Keys))
		for i := range d.Keys {
			parts[i] = ExprString(d.Keys[i]) + ": " + ExprString(d.Values[i])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case CompData:
		var sb strings.Builder
		if e.Kind == ExprDictComp {
			sb.WriteString(ExprString(d.Key) + ": ")
		}
		sb.WriteString(ExprString(d.Elem))
		for _, f := range d.For {
			sb.WriteString(" for " + ExprString(f.Target) + " in " + ExprString(f.Iter))
			for _, c := range f.Ifs {
				sb.WriteString(" if " + ExprString(c))
			}
		}
		switch e.Kind {
		case ExprListComp:
			return "[" + sb.String() + "]"
		case ExprGenerator:
			return "(" + sb.String() + ")"
		}
		return "{" + sb.String() + "}"
	case LambdaData:
		return "(lambda " + strings.Join(d.Params, ", ") + ": " + ExprString(d.Body) + ")"
	case IfExpData:
		return "(" + ExprString(d.Then) + " if " + ExprString(d.Cond) + " else " + ExprString(d.Else) + ")"
	case AwaitData:
		return "await " + ExprString(d.Value)
	case FStringData:
		var sb strings.Builder
		sb.WriteString(`f"`)
		for _, part := range d.Parts {
			if part.Value == nil {
				sb.WriteString(part.Lit)
				continue
			}
			sb.WriteString("{" + ExprString(part.Value))
			if part.Conv != 0 {
				sb.WriteString("!" + string(part.Conv))
			}
			if part.Spec != "" {
				sb.WriteString(":" + part.Spec)
			}
			sb.WriteString("}")
		}
		sb.WriteString(`"`)
		return sb.String()
	case YieldData:
		if d.Value == nil {
			return "yield"
		}
		return "yield " + ExprString(d.Value)
	}
	return "<" + e.Kind.String() + ">"
}

func optExpr(e *Expr) string {
	if e == nil {
		return ""
	}
	return ExprString(e)
}

func joinExprs(xs []*Expr) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = ExprString(x)
	}
	return strings.Join(parts, ", ")
}

func argList(args []*Expr, kws []Kwarg) string {
	s := joinExprs(args)
	for _, kw := range kws {
		if s != "" {
			s += ", "
		}
		s += kw.Name + "=" + ExprString(kw.Value)
	}
	return s
}
