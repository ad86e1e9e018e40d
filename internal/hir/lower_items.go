package hir

import (
	"pyrust/internal/ast"
	"pyrust/internal/diag"
	"pyrust/internal/trace"
)

// classCtx carries the class being lowered into its methods.
type classCtx struct {
	class  *Class
	fields map[string]bool
}

func decoratorName(e ast.Expr) string {
	switch d := e.(type) {
	case *ast.Name:
		return d.ID
	case *ast.Call:
		return calleeName(d)
	case *ast.Attribute:
		if n, ok := d.Value.(*ast.Name); ok {
			return n.ID + "." + d.Attr
		}
	}
	return "?"
}

// lowerFunc lowers a def. cc is nil for free functions.
func (l *lowerer) lowerFunc(fd *ast.FunctionDef, cc *classCtx) (*Func, error) {
	_, span := trace.StartSpan(l.ctx, trace.ScopeFunction, fd.Name)
	defer span.End("")

	fn := &Func{ID: l.m.newFuncID(), Name: fd.Name, Span: fd.Span()}
	if fd.IsAsync {
		fn.Flags |= FuncAsync
	}
	if cc != nil {
		fn.Class = cc.class.Name
		fn.Flags |= FuncMethod
		fn.Receiver = RecvRef
	}
	for _, dec := range fd.Decorators {
		name := decoratorName(dec)
		switch {
		case cc != nil && name == "staticmethod":
			fn.Receiver = RecvStatic
		case cc != nil && name == "classmethod":
			fn.Receiver = RecvClass
		case cc != nil && name == "property":
			fn.Receiver = RecvProperty
		default:
			return nil, diag.Unsupported(dec.Span(), "decorator @"+name)
		}
	}
	if cc != nil {
		switch fd.Name {
		case "__init__":
			fn.Flags |= FuncInit
		case "__str__", "__repr__":
			fn.Flags |= FuncDunder
		}
	}

	if err := l.lowerParams(fn, fd); err != nil {
		return nil, err
	}
	if fd.Returns != nil {
		fn.Returns = l.annotationType(fd.Returns)
	}

	body := fd.Body
	if doc, rest := docstring(body); doc != "" {
		fn.Doc = doc
		body = rest
	}
	saved, scope, nested := l.fn, l.scope, l.nested
	l.fn = fn
	l.scope = boundNames(body)
	for _, a := range fd.Args.Args {
		l.scope[a.Name] = true
	}
	for _, c := range l.lifting {
		l.scope[c] = true
	}
	l.lifting = nil
	l.nested = make(map[string]*liftedFunc, len(nested))
	for k, v := range nested {
		l.nested[k] = v
	}
	b, err := l.lowerBlock(body, fd.Span())
	l.fn, l.scope, l.nested = saved, scope, nested
	if err != nil {
		return nil, err
	}
	fn.Body = b
	if ContainsYield(b) {
		if fn.Flags.HasFlag(FuncInit) {
			return nil, diag.Unsupported(fd.Span(), "yield inside __init__")
		}
		fn.Flags |= FuncGenerator
	}
	if cc != nil && fn.Receiver == RecvRef && mutatesSelf(b) {
		fn.Receiver = RecvMut
	}
	if fn.Flags.HasFlag(FuncInit) {
		fn.Receiver = RecvMut
	}
	return fn, nil
}

func (l *lowerer) lowerParams(fn *Func, fd *ast.FunctionDef) error {
	args := fd.Args
	if args.VarArg != nil {
		return diag.Unsupported(args.VarArg.Span(), "variadic parameter *"+args.VarArg.Name)
	}
	if args.KwArg != nil {
		return diag.Unsupported(args.KwArg.Span(), "keyword parameter **"+args.KwArg.Name)
	}
	if len(args.KwOnly) > 0 {
		return diag.Unsupported(args.KwOnly[0].Span(), "keyword-only parameter "+args.KwOnly[0].Name)
	}
	start := 0
	if fn.IsMethod() && fn.Receiver != RecvStatic {
		if len(args.Args) == 0 {
			return diag.Errorf(diag.ConversionError, fd.Span(), "method %s has no self parameter", fd.Name)
		}
		start = 1
	}
	for i := start; i < len(args.Args); i++ {
		a := args.Args[i]
		p := &Param{Name: a.Name, Span: a.Span()}
		if a.Annotation != nil {
			p.Type = l.annotationType(a.Annotation)
		}
		if def := args.Default(i); def != nil {
			v, err := l.lowerExpr(def)
			if err != nil {
				return err
			}
			p.Default = v
		}
		fn.Params = append(fn.Params, p)
	}
	return nil
}

// mutatesSelf reports assignments through self or mutating method calls on
// self's fields.
func mutatesSelf(b *Block) bool {
	found := false
	selfField := func(e *Expr) bool {
		for e != nil {
			switch e.Kind {
			case ExprAttr:
				d := e.Data.(AttrData)
				if NameOf(d.Object) == "self" {
					return true
				}
				e = d.Object
			case ExprIndex:
				e = e.Data.(IndexData).Object
			default:
				return false
			}
		}
		return false
	}
	WalkBlock(b, func(s *Stmt) bool {
		if s.Kind == StmtAssign && selfField(s.Data.(AssignData).Target) {
			found = true
		}
		for _, e := range StmtExprs(s) {
			InspectExpr(e, func(x *Expr) bool {
				if x.Kind == ExprMethodCall {
					d := x.Data.(MethodCallData)
					if IsMutatingMethod(d.Method) && selfField(d.Receiver) {
						found = true
					}
				}
				return !found
			})
		}
		return !found
	})
	return found
}

// callsSelf lists the methods called on self in b.
func callsSelf(b *Block) []string {
	var out []string
	InspectBlock(b, func(x *Expr) bool {
		if x.Kind == ExprMethodCall {
			d := x.Data.(MethodCallData)
			if NameOf(d.Receiver) == "self" {
				out = append(out, d.Method)
			}
		}
		return true
	})
	return out
}

func (l *lowerer) lowerClass(cd *ast.ClassDef) (*Class, error) {
	c := &Class{Name: cd.Name, Span: cd.Span()}
	for _, dec := range cd.Decorators {
		if name := decoratorName(dec); name == "dataclass" || name == "dataclasses.dataclass" {
			c.Dataclass = true
			continue
		}
		return nil, diag.Unsupported(dec.Span(), "class decorator @"+decoratorName(dec))
	}
	if len(cd.Keywords) > 0 {
		return nil, diag.Unsupported(cd.Keywords[0].Span(), "class keyword argument")
	}
	var bases []string
	for _, b := range cd.Bases {
		n, ok := b.(*ast.Name)
		if !ok {
			return nil, diag.Unsupported(b.Span(), "class base expression")
		}
		if n.ID != "object" {
			bases = append(bases, n.ID)
		}
	}
	if len(bases) > 1 {
		return nil, diag.Unsupported(cd.Span(), "multiple inheritance")
	}
	var parent *Class
	if len(bases) == 1 {
		c.Base = bases[0]
		if !IsExceptionName(c.Base) {
			parent = l.m.ClassByName(c.Base)
			if parent == nil {
				return nil, diag.Errorf(diag.ConversionError, cd.Bases[0].Span(),
					"base class %s must be declared before %s", c.Base, c.Name)
			}
			c.Base = ""
		}
	}

	body := cd.Body
	if doc, rest := docstring(body); doc != "" {
		c.Doc = doc
		body = rest
	}
	cc := &classCtx{class: c, fields: make(map[string]bool)}
	if parent != nil {
		for _, f := range parent.Fields {
			c.Fields = append(c.Fields, f)
			cc.fields[f.Name] = true
		}
	}
	if err := l.collectClassFields(cc, body); err != nil {
		return nil, err
	}

	for _, st := range body {
		switch s := st.(type) {
		case *ast.FunctionDef:
			fn, err := l.lowerFunc(s, cc)
			if err != nil {
				return nil, err
			}
			c.Methods = append(c.Methods, fn)
		case *ast.AnnAssign, *ast.Pass:
		case *ast.ExprStmt:
			if k, ok := s.Value.(*ast.Constant); !ok || (k.Kind != ast.ConstStr && k.Kind != ast.ConstEllipsis) {
				return nil, diag.Unsupported(st.Span(), "expression in class body")
			}
		default:
			return nil, diag.Unsupported(st.Span(), "class attribute "+stmtName(st))
		}
	}
	if parent != nil {
		for _, pm := range parent.Methods {
			if c.Method(pm.Name) != nil {
				continue
			}
			inherited := l.m.cloneFunc(pm)
			inherited.ID = l.m.newFuncID()
			inherited.Class = c.Name
			c.Methods = append(c.Methods, inherited)
		}
	}
	if c.Dataclass && c.Init() == nil {
		c.Methods = append([]*Func{l.synthesizeInit(c)}, c.Methods...)
	}
	if err := l.checkSelfAttrs(c, cc); err != nil {
		return nil, err
	}
	propagateMutReceivers(c)
	return c, nil
}

// collectClassFields gathers annotated class-body fields and the self.x
// assignments of __init__, in first-seen order.
func (l *lowerer) collectClassFields(cc *classCtx, body []ast.Stmt) error {
	add := func(name string, f *Field) {
		if cc.fields[name] {
			if existing := cc.class.Field(name); existing != nil && existing.Type == nil {
				existing.Type = f.Type
			}
			return
		}
		cc.fields[name] = true
		cc.class.Fields = append(cc.class.Fields, f)
	}
	for _, st := range body {
		ann, ok := st.(*ast.AnnAssign)
		if !ok {
			continue
		}
		n, ok := ann.Target.(*ast.Name)
		if !ok {
			return diag.Unsupported(ann.Span(), "class attribute target")
		}
		f := &Field{Name: n.ID, Type: l.annotationType(ann.Annotation), Span: ann.Span()}
		if ann.Value != nil {
			v, err := l.lowerExpr(ann.Value)
			if err != nil {
				return err
			}
			f.Default = v
		}
		add(n.ID, f)
	}
	for _, st := range body {
		fd, ok := st.(*ast.FunctionDef)
		if !ok || fd.Name != "__init__" {
			continue
		}
		paramTypes := make(map[string]ast.Expr)
		for _, a := range fd.Args.Args {
			if a.Annotation != nil {
				paramTypes[a.Name] = a.Annotation
			}
		}
		var scan func(stmts []ast.Stmt)
		scan = func(stmts []ast.Stmt) {
			for _, s := range stmts {
				switch x := s.(type) {
				case *ast.Assign:
					for _, t := range x.Targets {
						if name := selfAttr(t); name != "" {
							f := &Field{Name: name, Span: t.Span()}
							if v, ok := x.Value.(*ast.Name); ok && paramTypes[v.ID] != nil {
								f.Type = l.annotationType(paramTypes[v.ID])
							}
							add(name, f)
						}
					}
				case *ast.AnnAssign:
					if name := selfAttr(x.Target); name != "" {
						add(name, &Field{Name: name, Type: l.annotationType(x.Annotation), Span: x.Span()})
					}
				case *ast.If:
					scan(x.Body)
					scan(x.OrElse)
				case *ast.For:
					scan(x.Body)
				case *ast.While:
					scan(x.Body)
				}
			}
		}
		scan(fd.Body)
	}
	return nil
}

func selfAttr(e ast.Expr) string {
	a, ok := e.(*ast.Attribute)
	if !ok {
		return ""
	}
	if n, ok := a.Value.(*ast.Name); ok && n.ID == "self" {
		return a.Attr
	}
	return ""
}

// checkSelfAttrs rejects attribute writes to fields __init__ never set.
func (l *lowerer) checkSelfAttrs(c *Class, cc *classCtx) error {
	for _, m := range c.Methods {
		var bad *Expr
		WalkBlock(m.Body, func(s *Stmt) bool {
			if s.Kind != StmtAssign || bad != nil {
				return bad == nil
			}
			t := s.Data.(AssignData).Target
			if t.Kind == ExprAttr {
				d := t.Data.(AttrData)
				if NameOf(d.Object) == "self" && !cc.fields[d.Name] {
					bad = t
				}
			}
			return true
		})
		if bad != nil {
			return diag.Errorf(diag.ConversionError, bad.Span,
				"attribute %s of %s is not initialized in __init__", bad.Data.(AttrData).Name, c.Name)
		}
	}
	return nil
}

// synthesizeInit builds the dataclass constructor: one parameter per field
// and a body assigning each to self.
func (l *lowerer) synthesizeInit(c *Class) *Func {
	fn := &Func{
		ID:       l.m.newFuncID(),
		Name:     "__init__",
		Class:    c.Name,
		Flags:    FuncMethod | FuncInit,
		Receiver: RecvMut,
		Span:     c.Span,
		Body:     &Block{Span: c.Span},
	}
	for _, f := range c.Fields {
		fn.Params = append(fn.Params, &Param{Name: f.Name, Type: f.Type, Default: f.Default, Span: f.Span})
		self := l.m.NewExpr(ExprName, f.Span, NameData{Name: "self"})
		target := l.m.NewExpr(ExprAttr, f.Span, AttrData{Object: self, Name: f.Name})
		value := l.m.NewExpr(ExprName, f.Span, NameData{Name: f.Name})
		fn.Body.Stmts = append(fn.Body.Stmts, &Stmt{
			Kind: StmtAssign,
			Span: f.Span,
			Data: AssignData{Target: target, Value: value},
		})
	}
	return fn
}

// propagateMutReceivers upgrades &self methods that call &mut self methods.
func propagateMutReceivers(c *Class) {
	for changed := true; changed; {
		changed = false
		for _, m := range c.Methods {
			if m.Receiver != RecvRef {
				continue
			}
			for _, callee := range callsSelf(m.Body) {
				if cm := c.Method(callee); cm != nil && cm.Receiver == RecvMut && !cm.Flags.HasFlag(FuncInit) {
					m.Receiver = RecvMut
					changed = true
					break
				}
			}
		}
	}
}
