package borrow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/trace"
	"pyrust/internal/typeflow"
	"pyrust/internal/types"
)

// Options configures Analyze.
type Options struct {
	// Reporter receives BorrowAliasApprox warnings. May be nil.
	Reporter diag.Reporter
	Strings  types.StringStrategy
}

// Result holds one Decision per parameter of every function and method.
type Result struct {
	Params map[hir.ParamKey]*Decision
}

// Decision returns the decision for k, nil when k names no parameter.
func (r *Result) Decision(k hir.ParamKey) *Decision {
	if r == nil {
		return nil
	}
	return r.Params[k]
}

// Strategy returns the strategy for k, Owned when unknown.
func (r *Result) Strategy(k hir.ParamKey) Strategy {
	if d := r.Decision(k); d != nil {
		return d.Strategy
	}
	return Owned
}

// Note renders the strategy of parameter i of fn for HIR dumps.
func (r *Result) Note(fn *hir.Func, i int) string {
	d := r.Decision(hir.ParamKey{Func: fn.ID, Index: i})
	if d == nil {
		return ""
	}
	if d.ReturnTied {
		return d.Strategy.String() + " (return)"
	}
	return d.Strategy.String()
}

// Summary lists the decisions of fn as "a=owned, b=&".
func (r *Result) Summary(fn *hir.Func) string {
	parts := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		parts[i] = p.Name + "=" + r.Strategy(hir.ParamKey{Func: fn.ID, Index: i}).String()
	}
	return strings.Join(parts, ", ")
}

type analyzer struct {
	m     *hir.Module
	tf    *typeflow.Result
	opts  Options
	res   *Result
	scans map[hir.FuncID]*scanner
	calls []callSite
}

// Analyze decides a strategy for every parameter of m.
func Analyze(ctx context.Context, m *hir.Module, tf *typeflow.Result, opts Options) *Result {
	_, span := trace.StartSpan(ctx, trace.ScopeStage, "borrow")
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	a := &analyzer{
		m:     m,
		tf:    tf,
		opts:  opts,
		res:   &Result{Params: make(map[hir.ParamKey]*Decision)},
		scans: make(map[hir.FuncID]*scanner),
	}
	for _, fn := range m.AllFuncs() {
		sc := newScanner(m, tf, fn)
		sc.run()
		a.scans[fn.ID] = sc
		a.calls = append(a.calls, sc.calls...)
		a.decideAll(fn)
	}
	if m.Main != nil {
		// The __main__ guard has no parameters; only its calls matter.
		sc := newScanner(m, tf, &hir.Func{Name: "__main__", Body: m.Main, Span: m.Main.Span})
		sc.run()
		a.calls = append(a.calls, sc.calls...)
	}
	rounds := a.propagate()
	forced := a.checkAliases()
	span.End(fmt.Sprintf("%d params, %d rounds, %d aliased", len(a.res.Params), rounds, forced))
	return a.res
}

func (a *analyzer) decideAll(fn *hir.Func) {
	sc := a.scans[fn.ID]
	for i := range fn.Params {
		a.res.Params[hir.ParamKey{Func: fn.ID, Index: i}] = a.decide(fn, i, sc.usage[i])
	}
}

// decide applies the priority rule: mutation, then copy types, then
// anything that needs ownership, then escapes, then plain reads.
func (a *analyzer) decide(fn *hir.Func, idx int, u *Usage) *Decision {
	key := hir.ParamKey{Func: fn.ID, Index: idx}
	t := a.tf.ParamType(key)
	copyable := a.copyable(key)
	isStr := t.Kind == types.Str
	dec := func(s Strategy, reason string) *Decision {
		return &Decision{Strategy: s, Reason: reason, Usage: u}
	}

	if fn.IsGenerator() {
		return dec(Owned, "captured by generator state")
	}
	if site, ok := u.First(SiteMutate); ok && !copyable {
		return dec(BorrowMutable, "mutated by "+site.Detail)
	}
	switch {
	case copyable:
		return dec(Owned, "copy type")
	case u.Has(SiteRebind):
		return dec(Owned, "rebound")
	case u.Has(SiteStore):
		site, _ := u.First(SiteStore)
		return dec(Owned, "moved into "+site.Detail)
	case u.Has(SiteCapture):
		return dec(Owned, "captured by closure")
	case u.Has(SiteEscape):
		if !isStr {
			return dec(Owned, "escapes via return")
		}
		switch a.opts.Strings {
		case types.AlwaysOwned:
			return dec(Owned, "escapes via return")
		case types.CowByDefault:
			return dec(UseCow, "returned")
		}
		if u.Has(SiteDerive) {
			return dec(UseCow, "returned unchanged and derived")
		}
		d := dec(BorrowImmutable, "returned by reference")
		d.ReturnTied = true
		return d
	case isStr && a.opts.Strings == types.AlwaysOwned:
		return dec(Owned, "always-owned strings")
	case u.Used():
		return dec(BorrowImmutable, "read only")
	}
	return dec(Owned, "unused")
}

func (a *analyzer) copyable(k hir.ParamKey) bool {
	t := a.tf.ParamType(k)
	return t.IsUnknown() || t.IsCopy()
}

// propagate upgrades a parameter passed directly into a &mut parameter of
// a callee. It runs until no decision changes.
func (a *analyzer) propagate() int {
	rounds := 0
	for {
		rounds++
		dirty := set.New[hir.FuncID](0)
		for _, cs := range a.calls {
			for i, idx := range cs.args {
				if idx < 0 {
					continue
				}
				if a.res.Strategy(hir.ParamKey{Func: cs.callee.ID, Index: i}) != BorrowMutable {
					continue
				}
				key := hir.ParamKey{Func: cs.caller.ID, Index: idx}
				if a.res.Strategy(key) == BorrowMutable || cs.caller.IsGenerator() || a.copyable(key) {
					continue
				}
				u := a.scans[cs.caller.ID].usage[idx]
				u.add(Site{Kind: SiteMutate, Span: cs.span, Detail: cs.callee.QualName()})
				dirty.Insert(cs.caller.ID)
			}
		}
		if dirty.Size() == 0 || rounds > len(a.scans)+1 {
			return rounds
		}
		for _, fn := range a.m.AllFuncs() {
			if dirty.Contains(fn.ID) {
				a.decideAll(fn)
			}
		}
	}
}

// checkAliases forces Owned on &mut parameters that receive the same
// variable as another parameter of the same call.
func (a *analyzer) checkAliases() int {
	forced := set.New[hir.ParamKey](0)
	for _, cs := range a.calls {
		byName := make(map[string][]int)
		for i, name := range cs.names {
			if name != "" {
				byName[name] = append(byName[name], i)
			}
		}
		names := make([]string, 0, len(byName))
		for name, idxs := range byName {
			if len(idxs) > 1 {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			idxs := byName[name]
			for _, i := range idxs {
				key := hir.ParamKey{Func: cs.callee.ID, Index: i}
				d := a.res.Params[key]
				if d == nil || d.Strategy != BorrowMutable {
					continue
				}
				d.Strategy = Owned
				d.Reason = "aliased at a call site"
				if forced.Insert(key) {
					diag.ReportWarning(a.opts.Reporter, diag.BorrowAliasApprox, cs.span,
						fmt.Sprintf("%s is passed to several parameters of %s; parameter %s is passed by value",
							name, cs.callee.QualName(), cs.callee.Params[i].Name)).Emit()
				}
			}
		}
	}
	return forced.Size()
}
