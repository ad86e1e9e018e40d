package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"pyrust/internal/ast"
	"pyrust/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a parsed file:
// 1) the module span lies within the file content and points at sf
// 2) every node span is ordered, points at sf and lies within the module span
// 3) top-level statements appear in source order without overlapping
func CheckSpanInvariants(mod *ast.Module, sf *source.File) error {
	if mod == nil || sf == nil {
		return fmt.Errorf("nil module or file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	ms := mod.Span()
	if ms.File != sf.ID {
		return fmt.Errorf("module span points to different file id: got=%d want=%d", ms.File, sf.ID)
	}
	if ms.Start > ms.End || ms.End > lenContent {
		return fmt.Errorf("module span %v outside content of %d bytes", ms, lenContent)
	}

	var bad error
	ast.Inspect(mod, func(n ast.Node) bool {
		if bad != nil {
			return false
		}
		sp := n.Span()
		switch {
		case sp.File != sf.ID:
			bad = fmt.Errorf("%T span file mismatch: got=%d want=%d", n, sp.File, sf.ID)
		case sp.End < sp.Start:
			bad = fmt.Errorf("%T span is reversed: %v", n, sp)
		case !ms.Contains(sp):
			bad = fmt.Errorf("%T span %v is outside module span %v", n, sp, ms)
		}
		return bad == nil
	})
	if bad != nil {
		return bad
	}

	var prev source.Span
	for i, st := range mod.Body {
		sp := st.Span()
		if sp.Empty() {
			return fmt.Errorf("empty statement span: %v", sp)
		}
		if i > 0 && sp.Start < prev.End {
			return fmt.Errorf("statement %v overlaps previous %v", sp, prev)
		}
		prev = sp
	}
	return nil
}
