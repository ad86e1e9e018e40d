// Package opt rewrites HIR with semantics-preserving optimizations:
// constant propagation and folding, dead-code elimination, common
// subexpression elimination and inlining. Every pass runs to a fixed point,
// so applying a pass to its own output changes nothing.
package opt

import (
	"context"
	"fmt"

	"pyrust/internal/hir"
	"pyrust/internal/trace"
	"pyrust/internal/typeflow"
)

// Level selects which passes run.
type Level int

const (
	LevelNone    Level = iota // no optimization
	LevelBasic                // constant propagation and dead code
	LevelCSE                  // + common subexpressions
	LevelInline               // + inlining
	MaxLevel     = LevelInline
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "O0"
	case LevelBasic:
		return "O1"
	case LevelCSE:
		return "O2"
	case LevelInline:
		return "O3"
	}
	return fmt.Sprintf("O%d", int(l))
}

// InlineConfig bounds the inliner.
type InlineConfig struct {
	// MaxSize is the largest callee body, in expression nodes, that is inlined.
	MaxSize int
	// MaxDepth limits chains of inlined calls.
	MaxDepth int
	// Trivial enables inlining of single-return functions at every call site.
	Trivial bool
	// SingleUse enables inlining of straight-line functions called once.
	SingleUse bool
}

// DefaultInlineConfig returns the inliner defaults.
func DefaultInlineConfig() InlineConfig {
	return InlineConfig{MaxSize: 20, MaxDepth: 3, Trivial: true, SingleUse: true}
}

// Options configures Optimize.
type Options struct {
	Level  Level
	Inline InlineConfig
}

// Report counts the rewrites performed by each pass.
type Report struct {
	Propagated  int // uses replaced by a constant
	Folded      int // expressions folded to literals
	DeadStores  int // assignments removed
	Unreachable int // statements removed after a jump or under a constant condition
	Hoisted     int // common subexpressions moved into temporaries
	Inlined     int // call sites replaced by the callee body
}

// Changed reports whether any pass rewrote the module.
func (r *Report) Changed() bool {
	return r.Propagated+r.Folded+r.DeadStores+r.Unreachable+r.Hoisted+r.Inlined > 0
}

func (r *Report) String() string {
	return fmt.Sprintf("propagated=%d folded=%d dead=%d unreachable=%d hoisted=%d inlined=%d",
		r.Propagated, r.Folded, r.DeadStores, r.Unreachable, r.Hoisted, r.Inlined)
}

// Optimize returns an optimized copy of m. The input module is not
// modified; expression ids survive, so tf keeps describing the nodes that
// were not rewritten. Rewritten nodes get fresh ids and need a new type
// flow run.
func Optimize(ctx context.Context, m *hir.Module, tf *typeflow.Result, opts Options) (*hir.Module, *Report) {
	rep := &Report{}
	if opts.Level <= LevelNone {
		return m, rep
	}
	if opts.Inline.MaxSize == 0 && opts.Inline.MaxDepth == 0 {
		opts.Inline = DefaultInlineConfig()
	}
	_, span := trace.StartSpan(ctx, trace.ScopeStage, "opt")
	out := m.Clone()

	ConstProp(out, rep)
	DeadCode(out, rep)
	if opts.Level >= LevelCSE {
		CSE(out, tf, rep)
	}
	if opts.Level >= LevelInline {
		Inline(out, tf, opts.Inline, rep)
	}
	span.End(opts.Level.String() + " " + rep.String())
	return out, rep
}

// scope is one body the passes work on: a function or the main guard.
type scope struct {
	fn   *hir.Func // nil for the main guard
	body *hir.Block
}

func scopes(m *hir.Module) []scope {
	var out []scope
	for _, fn := range m.AllFuncs() {
		out = append(out, scope{fn: fn, body: fn.Body})
	}
	if m.Main != nil {
		out = append(out, scope{body: m.Main})
	}
	return out
}
