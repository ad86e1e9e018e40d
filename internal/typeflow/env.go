// Package typeflow infers Python-side types for HIR expressions and
// bindings that carry no annotation.
//
// Inference is usage-pattern based: literal shapes, a table of builtin
// signatures, method tables per receiver type and the declared types of
// sub-expressions. Each function is iterated to a fixed point bounded by
// Options.MaxIterations; whatever is still Unknown afterwards stays Unknown
// and later stages treat it conservatively.
package typeflow

import (
	"sort"
	"strings"

	"pyrust/internal/types"
)

// Env is the type environment of one function scope. Comprehensions and
// lambdas open child scopes.
type Env struct {
	parent   *Env
	vars     map[string]*types.Type
	declared map[string]bool
	order    []string
}

// NewEnv creates a scope nested in parent (nil for a function scope).
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, vars: make(map[string]*types.Type), declared: make(map[string]bool)}
}

// Lookup resolves name through enclosing scopes.
func (e *Env) Lookup(name string) (*types.Type, bool) {
	for s := e; s != nil; s = s.parent {
		if t, ok := s.vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Type returns the binding type or Unknown.
func (e *Env) Type(name string) *types.Type {
	if t, ok := e.Lookup(name); ok {
		return t
	}
	return types.UnknownT
}

func (e *Env) owner(name string) *Env {
	for s := e; s != nil; s = s.parent {
		if _, ok := s.vars[name]; ok {
			return s
		}
	}
	return nil
}

// Declare binds name with an annotation; later observations cannot widen it.
func (e *Env) Declare(name string, t *types.Type) {
	if _, ok := e.vars[name]; !ok {
		e.order = append(e.order, name)
	}
	e.vars[name] = t
	e.declared[name] = true
}

// Bind merges an observed type into the binding, creating it in the
// current scope when absent.
func (e *Env) Bind(name string, t *types.Type) {
	s := e.owner(name)
	if s == nil {
		e.order = append(e.order, name)
		e.vars[name] = t
		return
	}
	if s.declared[name] {
		s.vars[name] = types.Refine(s.vars[name], t)
		return
	}
	s.vars[name] = types.Join(s.vars[name], t)
}

// BindLocal creates or overwrites name in this scope only.
func (e *Env) BindLocal(name string, t *types.Type) {
	if _, ok := e.vars[name]; !ok {
		e.order = append(e.order, name)
	}
	e.vars[name] = t
}

// Refine fills Unknown parts of an existing binding from t.
func (e *Env) Refine(name string, t *types.Type) bool {
	s := e.owner(name)
	if s == nil {
		return false
	}
	before := s.vars[name]
	s.vars[name] = types.Refine(before, t)
	return !before.Equal(s.vars[name])
}

// IsDeclared reports whether name carries an annotation.
func (e *Env) IsDeclared(name string) bool {
	s := e.owner(name)
	return s != nil && s.declared[name]
}

// Names lists bindings of this scope in first-bound order.
func (e *Env) Names() []string {
	return append([]string(nil), e.order...)
}

// Has reports a binding in this scope.
func (e *Env) Has(name string) bool {
	_, ok := e.vars[name]
	return ok
}

// Snapshot renders the scope deterministically; the fixed-point loop
// compares snapshots.
func (e *Env) Snapshot() string {
	names := make([]string, 0, len(e.vars))
	for n := range e.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, n := range names {
		sb.WriteString(n)
		sb.WriteByte('=')
		sb.WriteString(e.vars[n].String())
		sb.WriteByte(';')
	}
	return sb.String()
}
