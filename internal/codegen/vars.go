package codegen

import (
	"github.com/hashicorp/go-set/v3"

	"pyrust/internal/borrow"
	"pyrust/internal/hir"
	"pyrust/internal/types"
)

// frame is one block on the path from the function body to an occurrence.
type frame struct {
	b      *hir.Block
	parent *frame
	owner  *hir.Stmt // statement the block belongs to, nil for the body
	index  int       // index of owner in parent.b
	loop   bool      // body of a while or for loop
}

func (f *frame) depth() int {
	d := 0
	for p := f; p != nil; p = p.parent {
		d++
	}
	return d
}

func (f *frame) within(owner *hir.Stmt) bool {
	for p := f; p != nil; p = p.parent {
		if p.owner == owner {
			return true
		}
	}
	return false
}

type occurrence struct {
	fr     *frame
	index  int // statement index in fr.b
	stmt   *hir.Stmt
	write  bool
	binder bool // for or with target
}

// varInfo says where each local of one body is declared and which names
// need a mutable binding.
type varInfo struct {
	decl   map[*hir.Stmt]*set.Set[string]
	hoist  map[*hir.Block]map[int][]string
	bound  map[*hir.Stmt]*set.Set[string]
	mut    *set.Set[string]
	locals []string
	writes map[string]int
}

func (vi *varInfo) declares(s *hir.Stmt, name string) bool {
	d := vi.decl[s]
	return d != nil && d.Contains(name)
}

func (vi *varInfo) binds(s *hir.Stmt, name string) bool {
	b := vi.bound[s]
	return b != nil && b.Contains(name)
}

type varScanner struct {
	fc     *fnCtx
	params *set.Set[string]
	occ    map[string][]occurrence
	order  []string
	vi     *varInfo
}

// analyzeVars places declarations for the locals of body. Declarations go
// at the first assignment when it sits in the innermost block enclosing
// every use; otherwise the name is hoisted in front of the first statement
// that mentions it, out of any loop body.
func (fc *fnCtx) analyzeVars(body *hir.Block) *varInfo {
	vs := &varScanner{
		fc:     fc,
		params: set.New[string](0),
		occ:    make(map[string][]occurrence),
		vi: &varInfo{
			decl:   make(map[*hir.Stmt]*set.Set[string]),
			hoist:  make(map[*hir.Block]map[int][]string),
			bound:  make(map[*hir.Stmt]*set.Set[string]),
			mut:    set.New[string](0),
			writes: make(map[string]int),
		},
	}
	vs.params.Insert("self")
	if fc.fn != nil {
		for _, p := range fc.fn.Params {
			vs.params.Insert(p.Name)
		}
	}
	vs.block(body, &frame{b: body, index: -1})
	for _, name := range vs.order {
		if vs.vi.writes[name] == 0 {
			continue
		}
		if vs.params.Contains(name) {
			// Parameters are already bound; reassigning one needs `mut`.
			vs.vi.mut.Insert(name)
			continue
		}
		vs.vi.locals = append(vs.vi.locals, name)
		vs.place(name)
	}
	return vs.vi
}

func (vs *varScanner) block(b *hir.Block, fr *frame) {
	if b == nil {
		return
	}
	for i, s := range b.Stmts {
		vs.stmt(s, fr, i)
		loop := s.Kind == hir.StmtWhile || s.Kind == hir.StmtFor
		for _, sub := range hir.SubBlocks(s) {
			vs.block(sub, &frame{b: sub, parent: fr, owner: s, index: i, loop: loop})
		}
	}
}

func (vs *varScanner) record(name string, o occurrence) {
	if _, seen := vs.occ[name]; !seen {
		vs.order = append(vs.order, name)
	}
	vs.occ[name] = append(vs.occ[name], o)
	if o.write {
		vs.vi.writes[name]++
	}
}

func (vs *varScanner) stmt(s *hir.Stmt, fr *frame, i int) {
	at := occurrence{fr: fr, index: i, stmt: s}
	reads := func(e *hir.Expr) {
		vs.reads(e, at)
	}
	switch d := s.Data.(type) {
	case hir.AssignData:
		reads(d.Value)
		if d.Aug {
			reads(d.Target)
			if name := hir.NameOf(d.Target); name != "" {
				w := at
				w.write = true
				vs.record(name, w)
				return
			}
			vs.markMut(d.Target)
			return
		}
		vs.target(d.Target, at)
	case hir.ForData:
		reads(d.Iter)
		if vs.fc.g.tf.TypeOf(d.Iter).Kind == types.Iterator {
			vs.markMut(d.Iter)
		}
		w := at
		w.write, w.binder = true, true
		forEachName(d.Target, func(n string) { vs.record(n, w) })
	case hir.WithData:
		reads(d.Context)
		if d.Target != "" {
			w := at
			w.write, w.binder = true, true
			vs.record(d.Target, w)
		}
	default:
		for _, e := range hir.StmtExprs(s) {
			reads(e)
		}
	}
}

func (vs *varScanner) target(t *hir.Expr, at occurrence) {
	switch t.Kind {
	case hir.ExprName:
		w := at
		w.write = true
		vs.record(hir.NameOf(t), w)
	case hir.ExprTuple:
		for _, el := range t.Data.(hir.SeqData).Elems {
			vs.target(el, at)
		}
	default:
		vs.reads(t, at)
		vs.markMut(t)
	}
}

// reads records every name read in e, skipping names bound by nested
// comprehensions and lambdas, and marks receivers of mutating calls.
func (vs *varScanner) reads(e *hir.Expr, at occurrence) {
	vs.readsScoped(e, at, nil)
}

func (vs *varScanner) readsScoped(e *hir.Expr, at occurrence, shadow *set.Set[string]) {
	if e == nil {
		return
	}
	switch d := e.Data.(type) {
	case hir.NameData:
		if shadow == nil || !shadow.Contains(d.Name) {
			vs.record(d.Name, at)
		}
		return
	case hir.LambdaData:
		inner := set.New[string](0)
		if shadow != nil {
			inner = set.From(shadow.Slice())
		}
		for _, p := range d.Params {
			inner.Insert(p)
		}
		vs.readsScoped(d.Body, at, inner)
		return
	case hir.CompData:
		inner := set.New[string](0)
		if shadow != nil {
			inner = set.From(shadow.Slice())
		}
		for _, f := range d.For {
			vs.readsScoped(f.Iter, at, inner)
			forEachName(f.Target, func(n string) { inner.Insert(n) })
			for _, c := range f.Ifs {
				vs.readsScoped(c, at, inner)
			}
		}
		vs.readsScoped(d.Key, at, inner)
		vs.readsScoped(d.Elem, at, inner)
		return
	case hir.MethodCallData:
		if hir.IsMutatingMethod(d.Method) || vs.fc.mutatingUserMethod(d) {
			vs.markMut(d.Receiver)
		}
	case hir.CallData:
		if d.Func == "next" && len(d.Args) > 0 {
			vs.markMut(d.Args[0])
		}
		if callee := vs.fc.g.m.FuncByName(d.Func); callee != nil {
			for i, a := range d.Args {
				if vs.fc.g.strategy(callee, i) == borrow.BorrowMutable {
					vs.markMut(a)
				}
			}
			for _, kw := range d.Kwargs {
				if vs.fc.g.strategy(callee, callee.ParamIndex(kw.Name)) == borrow.BorrowMutable {
					vs.markMut(kw.Value)
				}
			}
		}
	}
	for _, c := range hir.Children(e) {
		vs.readsScoped(c, at, shadow)
	}
}

// markMut marks the variable an expression is rooted at.
func (vs *varScanner) markMut(e *hir.Expr) {
	if name := rootName(e); name != "" {
		vs.vi.mut.Insert(name)
	}
}

func rootName(e *hir.Expr) string {
	for e != nil {
		switch d := e.Data.(type) {
		case hir.NameData:
			return d.Name
		case hir.AttrData:
			e = d.Object
		case hir.IndexData:
			e = d.Object
		case hir.BorrowData:
			e = d.Value
		default:
			return ""
		}
	}
	return ""
}

func forEachName(t *hir.Expr, fn func(string)) {
	switch t.Kind {
	case hir.ExprName:
		fn(hir.NameOf(t))
	case hir.ExprTuple:
		for _, el := range t.Data.(hir.SeqData).Elems {
			forEachName(el, fn)
		}
	}
}

func (vs *varScanner) place(name string) {
	occ := vs.occ[name]
	vi := vs.vi

	// Loop and with targets used only inside their own statements are
	// bound by those statements.
	var binders []*hir.Stmt
	for _, o := range occ {
		if o.binder {
			binders = append(binders, o.stmt)
		}
	}
	if len(binders) > 0 {
		inside := true
		bodyWrites := false
		for _, o := range occ {
			if o.binder {
				continue
			}
			in := false
			for _, b := range binders {
				if o.fr.within(b) {
					in = true
					break
				}
			}
			if !in {
				inside = false
				break
			}
			bodyWrites = bodyWrites || o.write
		}
		if inside {
			for _, b := range binders {
				bs := vi.bound[b]
				if bs == nil {
					bs = set.New[string](0)
					vi.bound[b] = bs
				}
				bs.Insert(name)
			}
			if bodyWrites {
				vi.mut.Insert(name)
			}
			return
		}
	}
	if vi.writes[name] > 1 {
		vi.mut.Insert(name)
	}

	common := occ[0].fr
	for _, o := range occ[1:] {
		common = commonFrame(common, o.fr)
	}
	first := occ[0]
	if first.fr == common && first.write && !first.binder && plainAssign(first.stmt) {
		d := vi.decl[first.stmt]
		if d == nil {
			d = set.New[string](0)
			vi.decl[first.stmt] = d
		}
		d.Insert(name)
		return
	}

	idx := first.index
	if first.fr != common {
		idx = indexIn(first.fr, common)
	}
	for common.loop && common.parent != nil {
		idx = common.index
		common = common.parent
	}
	vi.mut.Insert(name)
	hs := vi.hoist[common.b]
	if hs == nil {
		hs = make(map[int][]string)
		vi.hoist[common.b] = hs
	}
	hs[idx] = append(hs[idx], name)
}

func plainAssign(s *hir.Stmt) bool {
	d, ok := s.Data.(hir.AssignData)
	return ok && !d.Aug && (d.Target.Kind == hir.ExprName || d.Target.Kind == hir.ExprTuple)
}

func commonFrame(a, b *frame) *frame {
	for a.depth() > b.depth() {
		a = a.parent
	}
	for b.depth() > a.depth() {
		b = b.parent
	}
	for a != b {
		a, b = a.parent, b.parent
	}
	return a
}

// indexIn returns the index, in ancestor's block, of the statement whose
// nested blocks contain fr.
func indexIn(fr, ancestor *frame) int {
	for fr.parent != ancestor {
		fr = fr.parent
	}
	return fr.index
}
