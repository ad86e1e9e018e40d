package hir

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"pyrust/internal/ast"
	"pyrust/internal/diag"
	"pyrust/internal/source"
	"pyrust/internal/trace"
	"pyrust/internal/types"
)

// Lower converts a parsed Python module into HIR. It stops at the first
// construct with no HIR form and returns a *diag.Error carrying its span.
func Lower(ctx context.Context, mod *ast.Module) (*Module, error) {
	ctx, span := trace.StartSpan(ctx, trace.ScopeStage, "bridge")
	l := &lowerer{
		ctx:      ctx,
		m:        NewModule(moduleName(mod.Path)),
		classes:  make(map[string]bool),
		typeVars: make(map[string]bool),
		modules:  make(map[string]string),
		imported: make(map[string]string),
	}
	l.m.Path = mod.Path
	l.m.File = mod.File
	if err := l.lowerModule(mod); err != nil {
		span.End("error")
		return nil, err
	}
	span.End(l.summary())
	return l.m, nil
}

func moduleName(path string) string {
	if path == "" {
		return "main"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// lowerer holds context for the lowering pass.
type lowerer struct {
	ctx      context.Context
	m        *Module
	classes  map[string]bool   // class names declared in the module
	typeVars map[string]bool   // names bound by TypeVar("T")
	modules  map[string]string // local alias -> std module
	imported map[string]string // name imported from a std module -> qualified name

	fn        *Func // function being lowered, nil at module level
	handlers  int   // depth of enclosing except clauses
	caught    []string
	loopDepth int
	temps     int // synthesized locals issued so far

	scope   map[string]bool        // locals of the body being lowered
	nested  map[string]*liftedFunc // defs visible in that body
	lifting []string               // captures of the def being lifted
	defs    map[string]bool        // module function names in use
}

func (l *lowerer) summary() string {
	return strings.Join([]string{
		plural(len(l.m.Funcs), "func"),
		plural(len(l.m.Classes), "class"),
		plural(len(l.m.Consts), "const"),
	}, ", ")
}

func plural(n int, word string) string {
	s := word + "s"
	if word == "class" {
		s = "classes"
	}
	if n == 1 {
		s = word
	}
	return strconv.Itoa(n) + " " + s
}

// collectDecls records module-level class and TypeVar names so annotations
// can refer to classes declared later in the file.
func (l *lowerer) collectDecls(mod *ast.Module) {
	for _, st := range mod.Body {
		switch s := st.(type) {
		case *ast.ClassDef:
			l.classes[s.Name] = true
		case *ast.FunctionDef:
			if l.defs == nil {
				l.defs = make(map[string]bool)
			}
			l.defs[s.Name] = true
		case *ast.Assign:
			if len(s.Targets) != 1 {
				continue
			}
			name, ok := s.Targets[0].(*ast.Name)
			if !ok {
				continue
			}
			if call, ok := s.Value.(*ast.Call); ok && calleeName(call) == "TypeVar" {
				l.typeVars[name.ID] = true
			}
		}
	}
}

func calleeName(c *ast.Call) string {
	switch f := c.Func.(type) {
	case *ast.Name:
		return f.ID
	case *ast.Attribute:
		if n, ok := f.Value.(*ast.Name); ok {
			if n.ID == "typing" {
				return f.Attr
			}
			return n.ID + "." + f.Attr
		}
	}
	return ""
}

func (l *lowerer) lowerModule(mod *ast.Module) error {
	l.collectDecls(mod)
	body := mod.Body
	if doc, rest := docstring(body); doc != "" {
		l.m.Doc = doc
		body = rest
	}
	for _, st := range body {
		if err := l.lowerTopLevel(st); err != nil {
			return err
		}
	}
	return l.resolveEntry()
}

func (l *lowerer) lowerTopLevel(st ast.Stmt) error {
	switch s := st.(type) {
	case *ast.Import:
		return l.lowerImport(s)
	case *ast.ImportFrom:
		return l.lowerImportFrom(s)
	case *ast.FunctionDef:
		fn, err := l.lowerFunc(s, nil)
		if err != nil {
			return err
		}
		l.m.Funcs = append(l.m.Funcs, fn)
		return nil
	case *ast.ClassDef:
		c, err := l.lowerClass(s)
		if err != nil {
			return err
		}
		l.m.Classes = append(l.m.Classes, c)
		return nil
	case *ast.Assign:
		return l.lowerConstAssign(s)
	case *ast.AnnAssign:
		return l.lowerConstAnnAssign(s)
	case *ast.If:
		if isMainGuard(s.Test) {
			return l.lowerMainGuard(s)
		}
	case *ast.ExprStmt:
		if c, ok := s.Value.(*ast.Constant); ok && (c.Kind == ast.ConstStr || c.Kind == ast.ConstEllipsis) {
			return nil
		}
	case *ast.Pass:
		return nil
	}
	return diag.Unsupported(st.Span(), "module-level statement "+stmtName(st))
}

func (l *lowerer) lowerImport(s *ast.Import) error {
	for _, a := range s.Names {
		switch {
		case IsTypeOnlyModule(a.Name):
			continue
		case IsStdModule(a.Name):
			alias := a.Name
			if a.AsName != "" {
				alias = a.AsName
			}
			l.modules[alias] = a.Name
			l.m.Imports = append(l.m.Imports, &Import{Module: a.Name, Alias: a.AsName, Span: a.Span()})
		default:
			return diag.Unsupported(a.Span(), "import of module "+a.Name)
		}
	}
	return nil
}

func (l *lowerer) lowerImportFrom(s *ast.ImportFrom) error {
	if s.Level > 0 {
		return diag.Unsupported(s.Span(), "relative import")
	}
	if IsTypeOnlyModule(s.Module) {
		return nil
	}
	if !IsStdModule(s.Module) {
		return diag.Unsupported(s.Span(), "import from module "+s.Module)
	}
	imp := &Import{Module: s.Module, Span: s.Span()}
	for _, a := range s.Names {
		if a.Name == "*" {
			return diag.Unsupported(a.Span(), "wildcard import")
		}
		local := a.Name
		if a.AsName != "" {
			local = a.AsName
		}
		l.imported[local] = s.Module + "." + a.Name
		imp.Names = append(imp.Names, a.Name)
	}
	l.m.Imports = append(l.m.Imports, imp)
	return nil
}

func (l *lowerer) lowerConstAssign(s *ast.Assign) error {
	if len(s.Targets) != 1 {
		return diag.Unsupported(s.Span(), "chained module-level assignment")
	}
	name, ok := s.Targets[0].(*ast.Name)
	if !ok {
		return diag.Unsupported(s.Span(), "module-level assignment to "+exprName(s.Targets[0]))
	}
	if l.typeVars[name.ID] {
		return nil
	}
	return l.addConst(name, nil, s.Value, s.Span())
}

func (l *lowerer) lowerConstAnnAssign(s *ast.AnnAssign) error {
	name, ok := s.Target.(*ast.Name)
	if !ok || s.Value == nil {
		return diag.Unsupported(s.Span(), "module-level annotated declaration without value")
	}
	return l.addConst(name, l.annotationType(s.Annotation), s.Value, s.Span())
}

func (l *lowerer) addConst(name *ast.Name, ty *types.Type, value ast.Expr, span source.Span) error {
	if !isConstExpr(value) {
		return diag.Unsupported(value.Span(), "module-level variable "+name.ID+" with non-constant value")
	}
	v, err := l.lowerExpr(value)
	if err != nil {
		return err
	}
	l.m.Consts = append(l.m.Consts, &Const{Name: name.ID, Type: ty, Value: v, Span: span})
	return nil
}

// isConstExpr accepts literals, names of earlier constants and arithmetic
// over them.
func isConstExpr(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.Constant:
		return x.Kind != ast.ConstEllipsis && x.Kind != ast.ConstBytes
	case *ast.Name:
		return true
	case *ast.UnaryOp:
		return isConstExpr(x.Operand)
	case *ast.BinOp:
		return isConstExpr(x.Left) && isConstExpr(x.Right)
	}
	return false
}

func isMainGuard(test ast.Expr) bool {
	cmp, ok := test.(*ast.Compare)
	if !ok || len(cmp.Ops) != 1 || cmp.Ops[0] != ast.Eq {
		return false
	}
	isName := func(e ast.Expr) bool {
		n, ok := e.(*ast.Name)
		return ok && n.ID == "__name__"
	}
	isMain := func(e ast.Expr) bool {
		c, ok := e.(*ast.Constant)
		return ok && c.Kind == ast.ConstStr && c.Value == "__main__"
	}
	return (isName(cmp.Left) && isMain(cmp.Comparators[0])) || (isMain(cmp.Left) && isName(cmp.Comparators[0]))
}

func (l *lowerer) lowerMainGuard(s *ast.If) error {
	if len(s.OrElse) > 0 {
		return diag.Unsupported(s.Span(), "else branch on __main__ guard")
	}
	if l.m.Main != nil {
		return diag.Errorf(diag.ConversionError, s.Span(), "duplicate __main__ guard")
	}
	l.scope = boundNames(s.Body)
	body, err := l.lowerBlock(s.Body, s.Span())
	l.scope, l.nested = nil, nil
	if err != nil {
		return err
	}
	l.m.Main = body
	return nil
}

// resolveEntry decides which function becomes fn main. A guard whose only
// statement calls a parameterless user main() collapses into that function.
func (l *lowerer) resolveEntry() error {
	userMain := l.m.FuncByName("main")
	if l.m.Main == nil {
		return nil
	}
	if userMain == nil {
		return nil
	}
	if len(l.m.Main.Stmts) == 1 && len(userMain.Params) == 0 {
		st := l.m.Main.Stmts[0]
		if st.Kind == StmtExpr {
			call := st.Data.(ExprStmtData).Expr
			if call.Kind == ExprCall && call.Data.(CallData).Func == "main" && len(call.Data.(CallData).Args) == 0 {
				userMain.Flags |= FuncEntry
				l.m.Main = nil
				return nil
			}
		}
	}
	return diag.Errorf(diag.ConversionError, userMain.Span,
		"function main conflicts with the __main__ guard, which also becomes fn main")
}

// docstring splits a leading string literal off a body.
func docstring(body []ast.Stmt) (string, []ast.Stmt) {
	if len(body) == 0 {
		return "", body
	}
	es, ok := body[0].(*ast.ExprStmt)
	if !ok {
		return "", body
	}
	c, ok := es.Value.(*ast.Constant)
	if !ok || c.Kind != ast.ConstStr {
		return "", body
	}
	return strings.TrimSpace(c.Value), body[1:]
}

func stmtName(st ast.Stmt) string {
	switch st.(type) {
	case *ast.Assign, *ast.AugAssign, *ast.AnnAssign:
		return "assignment"
	case *ast.ExprStmt:
		return "expression"
	case *ast.For:
		return "for loop"
	case *ast.While:
		return "while loop"
	case *ast.If:
		return "if"
	case *ast.With:
		return "with"
	case *ast.Try:
		return "try"
	case *ast.Raise:
		return "raise"
	case *ast.Return:
		return "return"
	case *ast.Delete:
		return "del"
	case *ast.Global:
		return "global"
	case *ast.Nonlocal:
		return "nonlocal"
	case *ast.Assert:
		return "assert"
	}
	return "statement"
}

func exprName(e ast.Expr) string {
	switch e.(type) {
	case *ast.Name:
		return "name"
	case *ast.Attribute:
		return "attribute"
	case *ast.Subscript:
		return "subscript"
	case *ast.Tuple:
		return "tuple"
	case *ast.List:
		return "list"
	case *ast.Starred:
		return "starred expression"
	case *ast.Call:
		return "call"
	}
	return "expression"
}
