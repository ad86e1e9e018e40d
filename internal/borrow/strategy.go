// Package borrow decides how each function parameter is passed in the
// generated Rust: by value, by shared reference, by mutable reference or
// as a Cow<str>.
//
// The analysis is usage based. Every occurrence of a parameter in the body
// is classified into a Site; the sites are folded into a Usage summary and
// the summary is turned into a Decision by a fixed priority rule. When the
// evidence is ambiguous the decision falls back to Owned.
package borrow

import (
	"pyrust/internal/source"
)

// Strategy is the passing mode of one parameter.
type Strategy uint8

const (
	// Owned passes the value by move or copy.
	Owned Strategy = iota
	// BorrowImmutable passes &T.
	BorrowImmutable
	// BorrowMutable passes &mut T.
	BorrowMutable
	// UseCow passes Cow<'a, str>.
	UseCow
)

func (s Strategy) String() string {
	switch s {
	case Owned:
		return "owned"
	case BorrowImmutable:
		return "&"
	case BorrowMutable:
		return "&mut"
	case UseCow:
		return "cow"
	default:
		return "?"
	}
}

// IsBorrowed reports strategies that need a lifetime.
func (s Strategy) IsBorrowed() bool {
	return s != Owned
}

// SiteKind classifies one occurrence of a parameter.
type SiteKind uint8

const (
	SiteRead SiteKind = iota
	// SiteMutate is a call to a mutating method, an index or attribute
	// store through the parameter, or an in-place augmented assignment.
	SiteMutate
	// SiteRebind assigns a new value to the parameter name itself.
	SiteRebind
	// SiteStore moves the value into a container, struct or yield.
	SiteStore
	// SiteEscape returns the parameter unchanged.
	SiteEscape
	// SiteDerive returns a value computed from the parameter.
	SiteDerive
	// SiteCapture uses the parameter inside a lambda.
	SiteCapture
)

func (k SiteKind) String() string {
	switch k {
	case SiteRead:
		return "read"
	case SiteMutate:
		return "mutate"
	case SiteRebind:
		return "rebind"
	case SiteStore:
		return "store"
	case SiteEscape:
		return "escape"
	case SiteDerive:
		return "derive"
	case SiteCapture:
		return "capture"
	default:
		return "?"
	}
}

// Site is one classified occurrence.
type Site struct {
	Kind   SiteKind
	Span   source.Span
	InLoop bool
	Detail string // method name, callee, or empty
}

// Usage summarises the sites of one parameter.
type Usage struct {
	Sites []Site
}

func (u *Usage) add(s Site) {
	u.Sites = append(u.Sites, s)
}

// Has reports whether any site has kind k.
func (u *Usage) Has(k SiteKind) bool {
	if u == nil {
		return false
	}
	for _, s := range u.Sites {
		if s.Kind == k {
			return true
		}
	}
	return false
}

// First returns the first site of kind k.
func (u *Usage) First(k SiteKind) (Site, bool) {
	if u != nil {
		for _, s := range u.Sites {
			if s.Kind == k {
				return s, true
			}
		}
	}
	return Site{}, false
}

// InLoop reports whether any occurrence sits inside a loop body.
func (u *Usage) InLoop() bool {
	if u == nil {
		return false
	}
	for _, s := range u.Sites {
		if s.InLoop {
			return true
		}
	}
	return false
}

// Used reports whether the parameter occurs at all.
func (u *Usage) Used() bool {
	return u != nil && len(u.Sites) > 0
}

// Decision is the strategy chosen for one parameter.
type Decision struct {
	Strategy Strategy
	// ReturnTied marks a borrowed parameter returned by reference; the
	// lifetime analyzer ties the return lifetime to it.
	ReturnTied bool
	// Reason is a short explanation for dumps and tests.
	Reason string
	Usage  *Usage
}
