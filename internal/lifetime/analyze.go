package lifetime

import (
	"context"
	"fmt"
	"strconv"

	"pyrust/internal/borrow"
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/trace"
	"pyrust/internal/typeflow"
	"pyrust/internal/types"
)

// Options configures Analyze.
type Options struct {
	// Reporter receives LifetimeForcedOwned warnings. May be nil.
	Reporter diag.Reporter
}

type analyzer struct {
	m    *hir.Module
	tf   *typeflow.Result
	br   *borrow.Result
	opts Options
	res  *Result
}

// Analyze annotates every function of m. Strategies in br are never
// modified; conflicts are recorded in Result.Forced.
func Analyze(ctx context.Context, m *hir.Module, tf *typeflow.Result, br *borrow.Result, opts Options) *Result {
	_, span := trace.StartSpan(ctx, trace.ScopeStage, "lifetime")
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	a := &analyzer{
		m:    m,
		tf:   tf,
		br:   br,
		opts: opts,
		res: &Result{
			Funcs:  make(map[hir.FuncID]*FuncLifetimes),
			Forced: make(map[hir.ParamKey]bool),
		},
	}
	explicit := 0
	for _, fn := range m.AllFuncs() {
		fl := a.function(fn)
		if !fl.Elided {
			explicit++
		}
		a.res.Funcs[fn.ID] = fl
	}
	span.End(fmt.Sprintf("%d funcs, %d explicit, %d forced", len(a.res.Funcs), explicit, len(a.res.Forced)))
	return a.res
}

// Name returns the n-th lifetime name: a, b, ..., z, a1, b1, ...
func Name(n int) string {
	letter := string(rune('a' + n%26))
	if n < 26 {
		return letter
	}
	return letter + strconv.Itoa(n/26)
}

func (a *analyzer) function(fn *hir.Func) *FuncLifetimes {
	fl := &FuncLifetimes{Params: make([]string, len(fn.Params))}

	var ties []int
	cow := false
	for i := range fn.Params {
		d := a.br.Decision(hir.ParamKey{Func: fn.ID, Index: i})
		if d == nil {
			continue
		}
		switch {
		case d.Strategy == borrow.UseCow:
			ties = append(ties, i)
			cow = true
		case d.ReturnTied:
			ties = append(ties, i)
		}
	}
	if len(ties) > 0 {
		if reason := a.conflict(fn, ties, cow); reason != "" {
			for _, i := range ties {
				a.force(fn, i, reason)
			}
			ties = nil
		}
	}

	n := 0
	for i := range fn.Params {
		if a.res.Effective(a.br, hir.ParamKey{Func: fn.ID, Index: i}).IsBorrowed() {
			fl.Params[i] = Name(n)
			n++
		}
	}

	fl.Ties = ties
	if len(ties) > 0 {
		fl.Return = fl.Params[ties[0]]
		fl.Constraints = append(fl.Constraints, Constraint{Kind: Equal, From: ReturnRegion, To: fl.Return})
		for _, i := range ties {
			fl.Constraints = append(fl.Constraints, Constraint{Kind: AtLeast, From: fl.Params[i], To: ReturnRegion})
		}
		for _, i := range ties[1:] {
			fl.Constraints = append(fl.Constraints, Constraint{Kind: Outlives, From: fl.Params[i], To: fl.Return})
		}
	}

	refReceiver := fn.Receiver == hir.RecvRef || fn.Receiver == hir.RecvMut
	switch {
	case fl.Return == "":
		fl.Elided = true
	case n == 1 && !refReceiver:
		fl.Elided = true
	default:
		// With a reference receiver, elision would tie the output to self.
		for _, lt := range fl.Params {
			if lt != "" {
				fl.Generics = append(fl.Generics, lt)
			}
		}
	}
	return fl
}

func (a *analyzer) force(fn *hir.Func, i int, reason string) {
	key := hir.ParamKey{Func: fn.ID, Index: i}
	if a.res.Forced[key] {
		return
	}
	a.res.Forced[key] = true
	diag.ReportWarning(a.opts.Reporter, diag.LifetimeForcedOwned, fn.Params[i].Span,
		fmt.Sprintf("return of %s cannot borrow from %s: %s; passing it by value",
			fn.QualName(), fn.Params[i].Name, reason)).Emit()
}

// conflict explains why the return of fn cannot borrow from ties, or
// returns "".
func (a *analyzer) conflict(fn *hir.Func, ties []int, cow bool) string {
	switch {
	case fn.IsGenerator():
		return "generators own their state"
	case fn.IsAsync():
		return "async functions return owned values"
	case fn.Flags.HasFlag(hir.FuncInit):
		return "constructors return owned values"
	}
	ft := a.tf.Func(fn.ID)
	if ft == nil || ft.Return.Kind != types.Str {
		return "the return type is not a plain string"
	}
	if cow {
		return ""
	}
	tied := make(map[string]bool, len(ties))
	for _, i := range ties {
		tied[fn.Params[i].Name] = true
	}
	reason := ""
	hir.WalkBlock(fn.Body, func(s *hir.Stmt) bool {
		if s.Kind != hir.StmtReturn {
			return true
		}
		v := s.Data.(hir.ReturnData).Value
		if !borrowable(v, tied) {
			reason = "another path returns an owned value"
			return false
		}
		return true
	})
	if reason == "" && !fn.Body.Terminates() {
		reason = "a path falls off the end of the function"
	}
	return reason
}

// borrowable reports return values that can be typed as a reference tied
// to the parameters in tied: the parameters themselves and literals.
func borrowable(e *hir.Expr, tied map[string]bool) bool {
	if e == nil {
		return false
	}
	switch d := e.Data.(type) {
	case hir.NameData:
		return tied[d.Name]
	case hir.LiteralData:
		return d.Kind == hir.LiteralStr
	case hir.IfExpData:
		return borrowable(d.Then, tied) && borrowable(d.Else, tied)
	}
	return false
}
