package hir

import (
	"strings"

	"pyrust/internal/ast"
	"pyrust/internal/diag"
)

// liftedFunc is a def nested in a function body, lowered to a module
// function that receives the enclosing locals it reads as extra
// parameters.
type liftedFunc struct {
	name     string
	captures []string
}

// liftNested lowers a def found inside a function or the __main__ guard.
// Calls to it in the enclosing body pass every captured local by keyword.
// Without nonlocal the def can never rebind those locals, so handing them
// over at each call keeps late binding intact.
func (l *lowerer) liftNested(fd *ast.FunctionDef) error {
	if l.classes[fd.Name] {
		return diag.Errorf(diag.ConversionError, fd.Span(), "nested function %s shadows class %s", fd.Name, fd.Name)
	}
	captures := l.captures(fd)
	for _, c := range captures {
		if c == "self" || c == "cls" {
			return diag.Unsupported(fd.Span(), "nested function "+fd.Name+" reading "+c)
		}
	}
	lifted := l.liftedName(fd.Name)
	if l.nested == nil {
		l.nested = make(map[string]*liftedFunc)
	}
	l.nested[fd.Name] = &liftedFunc{name: lifted, captures: captures}

	saved, loops, handlers, caught := l.fn, l.loopDepth, l.handlers, l.caught
	l.loopDepth, l.handlers, l.caught = 0, 0, nil
	l.lifting = captures
	fn, err := l.lowerFunc(fd, nil)
	l.fn, l.loopDepth, l.handlers, l.caught = saved, loops, handlers, caught
	if err != nil {
		return err
	}
	fn.Name = lifted
	for _, c := range captures {
		fn.Params = append(fn.Params, &Param{Name: c, Span: fd.Span()})
	}
	l.m.Funcs = append(l.m.Funcs, fn)
	return nil
}

// liftedName prefixes name with the enclosing function so sibling
// functions may nest defs of the same name.
func (l *lowerer) liftedName(name string) string {
	prefix := "main"
	if l.fn != nil {
		prefix = l.fn.Name
		if l.fn.Class != "" {
			prefix = strings.ToLower(l.fn.Class) + "_" + prefix
		}
	}
	lifted := strings.TrimLeft(prefix, "_") + "_" + name
	for l.defs[lifted] {
		lifted += "_"
	}
	if l.defs == nil {
		l.defs = make(map[string]bool)
	}
	l.defs[lifted] = true
	return lifted
}

// captures lists, in order of first use, the enclosing locals read by fd,
// including those needed by nested functions fd calls.
func (l *lowerer) captures(fd *ast.FunctionDef) []string {
	own := boundNames(fd.Body)
	for _, a := range fd.Args.Args {
		own[a.Name] = true
	}
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] && !own[name] && l.scope[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, st := range fd.Body {
		ast.Inspect(st, func(n ast.Node) bool {
			switch x := n.(type) {
			case *ast.Name:
				add(x.ID)
			case *ast.Call:
				if f, ok := x.Func.(*ast.Name); ok {
					if lf, ok := l.nested[f.ID]; ok {
						for _, c := range lf.captures {
							add(c)
						}
					}
				}
			}
			return true
		})
	}
	return out
}

// callNested rewrites a call of a lifted function and reports whether
// name was one.
func (l *lowerer) callNested(name string, d *CallData, at *ast.Name) bool {
	lf, ok := l.nested[name]
	if !ok {
		return false
	}
	d.Func = lf.name
	for _, c := range lf.captures {
		d.Kwargs = append(d.Kwargs, Kwarg{Name: c, Value: l.m.NewExpr(ExprName, at.Span(), NameData{Name: c})})
	}
	return true
}

// boundNames collects the variables a function body binds, without
// looking into nested defs, classes and lambdas.
func boundNames(body []ast.Stmt) map[string]bool {
	names := make(map[string]bool)
	var target func(ast.Expr)
	target = func(t ast.Expr) {
		switch x := t.(type) {
		case *ast.Name:
			names[x.ID] = true
		case *ast.Tuple:
			for _, e := range x.Elts {
				target(e)
			}
		case *ast.List:
			for _, e := range x.Elts {
				target(e)
			}
		case *ast.Starred:
			target(x.Value)
		}
	}
	for _, st := range body {
		ast.Inspect(st, func(n ast.Node) bool {
			switch s := n.(type) {
			case *ast.FunctionDef, *ast.ClassDef, *ast.Lambda:
				return false
			case *ast.Assign:
				for _, t := range s.Targets {
					target(t)
				}
			case *ast.AugAssign:
				target(s.Target)
			case *ast.AnnAssign:
				target(s.Target)
			case *ast.For:
				target(s.Target)
			case *ast.With:
				for _, it := range s.Items {
					if it.Vars != nil {
						target(it.Vars)
					}
				}
			case *ast.Try:
				for _, h := range s.Handlers {
					if h.Name != "" {
						names[h.Name] = true
					}
				}
			case *ast.NamedExpr:
				target(s.Target)
			}
			return true
		})
	}
	return names
}
