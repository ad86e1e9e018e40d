package diag

import (
	"fmt"
	"sort"
	"strings"

	"pyrust/internal/source"
)

type shortDiagnostic struct {
	sev    string
	code   string
	path   string
	line   uint32
	column uint32
	msg    string
}

// FormatShort renders one stable line per diagnostic:
// "SEVERITY CODE path:line:col message". Used by golden tests and --format=short.
func FormatShort(diags []Diagnostic, fs *source.FileSet) string {
	rendered := make([]shortDiagnostic, 0, len(diags))
	for _, d := range diags {
		sd := shortDiagnostic{sev: d.Severity.String(), code: d.Code.ID(), msg: d.Message}
		if fs != nil {
			if f := fs.Get(d.Primary.File); f != nil {
				start, _ := fs.Resolve(d.Primary)
				sd.path, sd.line, sd.column = f.Path, start.Line, start.Col
			}
		}
		rendered = append(rendered, sd)
	}
	sort.SliceStable(rendered, func(i, j int) bool {
		a, b := rendered[i], rendered[j]
		if a.path != b.path {
			return a.path < b.path
		}
		if a.line != b.line {
			return a.line < b.line
		}
		if a.column != b.column {
			return a.column < b.column
		}
		return a.code < b.code
	})
	var b strings.Builder
	for i, d := range rendered {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.sev, d.code, d.path, d.line, d.column, d.msg)
	}
	return b.String()
}
