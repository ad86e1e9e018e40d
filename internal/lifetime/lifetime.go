// Package lifetime names the lifetimes of borrowed parameters and ties
// reference returns to the parameter they borrow from.
//
// Rust elision is applied first: a signature whose output borrows from a
// single reference input, or whose output borrows nothing, keeps all
// lifetimes implicit. Every other signature names each borrowed input
// explicitly. When no consistent assignment exists the affected
// parameters are forced to Owned and a LifetimeForcedOwned warning is
// reported.
package lifetime

import (
	"fmt"
	"strings"

	"pyrust/internal/borrow"
	"pyrust/internal/hir"
)

// ConstraintKind is the relation between two lifetimes.
type ConstraintKind uint8

const (
	// Outlives is 'from: 'to.
	Outlives ConstraintKind = iota
	// Equal means both names denote one region.
	Equal
	// AtLeast means 'from must stay live while 'to is live.
	AtLeast
)

func (k ConstraintKind) String() string {
	switch k {
	case Outlives:
		return "outlives"
	case Equal:
		return "equal"
	case AtLeast:
		return "at-least"
	default:
		return "?"
	}
}

// ReturnRegion is the symbolic name of a function's returned reference in
// constraints.
const ReturnRegion = "return"

// Constraint relates two lifetimes of one signature. Names carry no quote.
type Constraint struct {
	Kind ConstraintKind
	From string
	To   string
}

func (c Constraint) String() string {
	switch c.Kind {
	case Outlives:
		return "'" + c.From + ": '" + c.To
	case Equal:
		return "'" + c.From + " == '" + c.To
	default:
		return "'" + c.From + " >= '" + c.To
	}
}

// FuncLifetimes is the lifetime annotation of one signature.
type FuncLifetimes struct {
	// Params holds the lifetime of each borrowed parameter, "" for owned.
	Params []string
	// Return is the lifetime of a reference return, "" when the return
	// owns its value.
	Return string
	// Generics lists the lifetime parameters to declare, empty when elided.
	Generics []string
	// Constraints records the relations between the names above.
	Constraints []Constraint
	// Elided is set when the signature prints without explicit lifetimes.
	Elided bool
	// Ties lists the parameters the return borrows from.
	Ties []int
}

// Bounds returns the Outlives constraints between declared lifetimes, in
// the order they should appear in the generic list.
func (f *FuncLifetimes) Bounds() []Constraint {
	var out []Constraint
	for _, c := range f.Constraints {
		if c.Kind == Outlives && c.To != ReturnRegion && c.From != ReturnRegion {
			out = append(out, c)
		}
	}
	return out
}

// Bound returns the outlives bound declared on name, "" when none.
func (f *FuncLifetimes) Bound(name string) string {
	for _, c := range f.Bounds() {
		if c.From == name {
			return c.To
		}
	}
	return ""
}

// Explicit returns the lifetime to print for parameter i.
func (f *FuncLifetimes) Explicit(i int) string {
	if f == nil || f.Elided || i < 0 || i >= len(f.Params) {
		return ""
	}
	return f.Params[i]
}

// ExplicitReturn returns the lifetime to print on the return type.
func (f *FuncLifetimes) ExplicitReturn() string {
	if f == nil || f.Elided {
		return ""
	}
	return f.Return
}

// String renders a compact description, e.g. "<'a, 'b: 'a> -> 'a".
func (f *FuncLifetimes) String() string {
	if f == nil {
		return ""
	}
	var sb strings.Builder
	if f.Elided {
		sb.WriteString("elided")
	} else {
		sb.WriteByte('<')
		for i, g := range f.Generics {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("'" + g)
			if b := f.Bound(g); b != "" {
				sb.WriteString(": '" + b)
			}
		}
		sb.WriteByte('>')
	}
	if f.Return != "" {
		fmt.Fprintf(&sb, " -> '%s", f.Return)
	}
	return sb.String()
}

// Result holds the annotation of every function and the parameters forced
// to Owned.
type Result struct {
	Funcs  map[hir.FuncID]*FuncLifetimes
	Forced map[hir.ParamKey]bool
}

// Func returns the annotation of fn, nil when absent.
func (r *Result) Func(id hir.FuncID) *FuncLifetimes {
	if r == nil {
		return nil
	}
	return r.Funcs[id]
}

// Effective is the final strategy of a parameter after lifetime conflicts.
func (r *Result) Effective(br *borrow.Result, k hir.ParamKey) borrow.Strategy {
	if r != nil && r.Forced[k] {
		return borrow.Owned
	}
	return br.Strategy(k)
}

// Tied reports whether parameter k is returned by reference.
func (r *Result) Tied(k hir.ParamKey) bool {
	f := r.Func(k.Func)
	if f == nil {
		return false
	}
	for _, i := range f.Ties {
		if i == k.Index {
			return true
		}
	}
	return false
}
