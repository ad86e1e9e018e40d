// Package verify runs the optional contract checks on generated source.
//
// Basic checks re-validate the emitted text and confirm that every lowered
// signature agrees with the parameter decisions that produced it. Strict
// checks add warnings for functions that may fall off their end and reject
// constructs generated code must never contain.
package verify

import (
	"errors"
	"fmt"
	"strings"

	"pyrust/internal/borrow"
	"pyrust/internal/diag"
	"pyrust/internal/hir"
	"pyrust/internal/lifetime"
	"pyrust/internal/rust"
	"pyrust/internal/source"
	"pyrust/internal/typeflow"
	"pyrust/internal/types"
)

// Level selects which checks Run performs.
type Level uint8

const (
	LevelNone Level = iota
	LevelBasic
	LevelStrict
)

func (l Level) String() string {
	switch l {
	case LevelBasic:
		return "basic"
	case LevelStrict:
		return "strict"
	}
	return "none"
}

// ParseLevel accepts "none", "basic" or "strict".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "none", "off", "":
		return LevelNone, nil
	case "basic":
		return LevelBasic, nil
	case "strict":
		return LevelStrict, nil
	}
	return LevelNone, fmt.Errorf("invalid verification level %q (expected none|basic|strict)", s)
}

// Unit is one generated file together with the analyses it was lowered from.
type Unit struct {
	Module    *hir.Module
	Types     *typeflow.Result
	Borrow    *borrow.Result
	Lifetimes *lifetime.Result
	File      *rust.File
	// Header is the expected first comment line; empty skips the check.
	Header string
}

type checker struct {
	u     *Unit
	out   []diag.Diagnostic
	items map[string]*rust.Fn
	impls map[string]map[string]*rust.Fn
}

// Run checks src, the printed form of u.File, and returns the failures
// found. Errors carry the VerificationFailure code; strict mode may add
// warnings.
func Run(u *Unit, src string, level Level) []diag.Diagnostic {
	if level == LevelNone || u == nil {
		return nil
	}
	c := &checker{u: u}
	c.index()
	c.text(src)
	c.decisions()
	c.signatures()
	if level >= LevelStrict {
		c.fallthroughs()
		c.forbidden(src)
	}
	return c.out
}

func (c *checker) errorf(sp source.Span, format string, args ...any) {
	c.out = append(c.out, diag.NewError(diag.VerificationFailure, sp, fmt.Sprintf(format, args...)))
}

func (c *checker) warnf(sp source.Span, format string, args ...any) {
	c.out = append(c.out, diag.New(diag.SevWarning, diag.VerificationFailure, sp, fmt.Sprintf(format, args...)))
}

func (c *checker) index() {
	c.items = make(map[string]*rust.Fn)
	c.impls = make(map[string]map[string]*rust.Fn)
	if c.u.File == nil {
		return
	}
	for _, it := range c.u.File.Items {
		switch x := it.(type) {
		case *rust.Fn:
			c.items[x.Name] = x
		case *rust.Impl:
			if x.Trait != "" {
				continue
			}
			fns := c.impls[x.Type]
			if fns == nil {
				fns = make(map[string]*rust.Fn)
				c.impls[x.Type] = fns
			}
			for _, fn := range x.Fns {
				fns[fn.Name] = fn
			}
		}
	}
}

func (c *checker) text(src string) {
	if c.u.Header != "" {
		first, _, _ := strings.Cut(src, "\n")
		if first != "// "+c.u.Header {
			c.errorf(source.Span{}, "generated file does not start with the header comment")
		}
	}
	if err := rust.Validate(src); err != nil {
		var se *rust.SyntaxError
		if errors.As(err, &se) {
			c.errorf(source.Span{}, "generated source is malformed at line %d, column %d: %s", se.Line, se.Col, se.Msg)
			return
		}
		c.errorf(source.Span{}, "generated source is malformed: %v", err)
	}
}

// decisions confirms every parameter received a borrowing decision.
func (c *checker) decisions() {
	if c.u.Module == nil {
		return
	}
	for _, fn := range c.u.Module.AllFuncs() {
		for i, p := range fn.Params {
			if c.u.Borrow.Decision(hir.ParamKey{Func: fn.ID, Index: i}) == nil {
				c.errorf(p.Span, "parameter %s of %s has no borrowing decision", p.Name, fn.QualName())
			}
		}
	}
}

// lowered finds the Rust function generated for fn.
func (c *checker) lowered(fn *hir.Func) (*rust.Fn, bool) {
	if fn.Flags.HasFlag(hir.FuncEntry) {
		return c.items["main"], true
	}
	name := rust.EscapeIdent(fn.Name)
	if !fn.IsMethod() {
		f, ok := c.items[name]
		return f, ok
	}
	if fn.Flags.HasFlag(hir.FuncInit) {
		name = "new"
	} else if fn.Flags.HasFlag(hir.FuncDunder) {
		return nil, false
	}
	for _, cls := range c.u.Module.Classes {
		if cls.Method(fn.Name) == fn {
			f, ok := c.impls[cls.Name][name]
			return f, ok
		}
	}
	return nil, false
}

// signatures checks parameter order and passing modes of every lowered
// function against the analyses.
func (c *checker) signatures() {
	if c.u.Module == nil || c.u.File == nil {
		return
	}
	for _, fn := range c.u.Module.AllFuncs() {
		if fn.IsMethod() && fn.IsGenerator() {
			continue
		}
		out, ok := c.lowered(fn)
		if !ok {
			continue
		}
		if out == nil {
			c.errorf(fn.Span, "function %s was not emitted", fn.QualName())
			continue
		}
		if len(out.Params) != len(fn.Params) {
			c.errorf(fn.Span, "%s takes %d parameters, emitted with %d", fn.QualName(), len(fn.Params), len(out.Params))
			continue
		}
		for i, p := range fn.Params {
			got := out.Params[i]
			if got.Name != rust.EscapeIdent(p.Name) {
				c.errorf(p.Span, "parameter %d of %s is %s, emitted as %s", i, fn.QualName(), p.Name, got.Name)
				continue
			}
			want := borrow.Owned
			if !fn.IsGenerator() {
				want = c.u.Lifetimes.Effective(c.u.Borrow, hir.ParamKey{Func: fn.ID, Index: i})
			}
			if !passes(got.Type, want) {
				c.errorf(p.Span, "parameter %s of %s is %s but emitted as %s", p.Name, fn.QualName(), want, rust.TypeString(got.Type))
			}
		}
	}
}

// passes reports whether a parameter of type t is passed the way s says.
func passes(t *types.RustType, s borrow.Strategy) bool {
	ref := t != nil && (t.Kind == types.RReference || t.Kind == types.RStr)
	mut := ref && t.Kind == types.RReference && t.Mutable
	switch s {
	case borrow.BorrowImmutable, borrow.UseCow:
		return ref && !mut
	case borrow.BorrowMutable:
		return mut
	}
	return !ref
}

// fallthroughs warns about functions with a return type whose body can
// reach its end. Lowering closes those bodies with unreachable!().
func (c *checker) fallthroughs() {
	if c.u.Module == nil || c.u.Types == nil {
		return
	}
	for _, fn := range c.u.Module.AllFuncs() {
		if fn.IsGenerator() || fn.Flags.HasFlag(hir.FuncInit) || fn.Body.Terminates() {
			continue
		}
		ft := c.u.Types.Func(fn.ID)
		if ft == nil || ft.Return == nil {
			continue
		}
		switch ft.Return.Kind {
		case types.None, types.Optional, types.Unknown:
			continue
		}
		c.warnf(fn.Span, "%s returns %s but control may reach the end of its body", fn.QualName(), ft.Return)
	}
}

var forbiddenTokens = []string{"unsafe ", "std::mem::transmute", "#![no_std]"}

func (c *checker) forbidden(src string) {
	for _, tok := range forbiddenTokens {
		if strings.Contains(src, tok) {
			c.errorf(source.Span{}, "generated source contains %q", strings.TrimSpace(tok))
		}
	}
	if c.u.File == nil {
		return
	}
	for _, u := range c.u.File.Uses {
		if !strings.HasPrefix(u, "std::") {
			c.errorf(source.Span{}, "use of non-std path %s", u)
		}
	}
}
