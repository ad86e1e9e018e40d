package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"pyrust/internal/diag"
	"pyrust/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info, note, gutter, caret, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue, color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.gutter, p.caret, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty renders the diagnostics of bag in a human-readable form. Items are
// printed in bag order, so callers usually Sort first.
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//	   3 | def f(:
//	     |       ^
//
// followed by the notes of the diagnostic.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	PrettyList(w, bag.Items(), fs, opts)
}

// PrettyList is Pretty over a plain slice.
func PrettyList(w io.Writer, diags []diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range diags {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, p)
	}
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	loc := location(d.Primary, fs, opts.PathMode, opts.BaseDir)
	sev := p.severity(d.Severity)
	fmt.Fprintf(w, "%s: %s %s: %s\n", loc, sev.Sprint(d.Severity.String()), sev.Sprint(d.Code.ID()), p.bold.Sprint(d.Message))
	excerpt(w, d.Primary, fs, int(opts.Context), opts.Width, p)
	for _, n := range d.Notes {
		fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), location(n.Span, fs, opts.PathMode, opts.BaseDir), n.Msg)
		if opts.ShowNotes {
			excerpt(w, n.Span, fs, 0, opts.Width, p)
		}
	}
}

func location(sp source.Span, fs *source.FileSet, mode PathMode, base string) string {
	if fs == nil {
		return "<unknown>"
	}
	f := fs.Get(sp.File)
	if f == nil {
		return "<unknown>"
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", formatPath(f.Path, mode, base), start.Line, start.Col)
}

// excerpt prints the primary line of sp with context lines around it and
// underlines the spanned columns. Spans covering several lines are
// underlined up to the end of their first line.
func excerpt(w io.Writer, sp source.Span, fs *source.FileSet, context int, width uint8, p palette) {
	if fs == nil {
		return
	}
	f := fs.Get(sp.File)
	if f == nil || int(sp.Start) > len(f.Content) {
		return
	}
	start, end := fs.Resolve(sp)
	lines := uint32(len(f.LineIdx) + 1) //nolint:gosec // bounded by the file size check in source
	first := start.Line
	if context > 0 && first > uint32(context) {
		first -= uint32(context)
	} else if context > 0 {
		first = 1
	}
	last := min(start.Line+uint32(max(context, 0)), lines)
	gutter := len(strconv.FormatUint(uint64(last), 10))
	pad := strings.Repeat(" ", gutter)

	for n := first; n <= last; n++ {
		text := f.Line(n)
		shown := clip(expandTabs(text), width)
		fmt.Fprintf(w, " %s %s %s\n", p.gutter.Sprintf("%*d", gutter, n), p.gutter.Sprint("|"), shown)
		if n != start.Line {
			continue
		}
		col := int(start.Col) - 1
		col = min(col, len(text))
		stop := len(text)
		if end.Line == start.Line {
			stop = min(int(end.Col)-1, len(text))
		}
		lead := runewidth.StringWidth(expandTabs(text[:col]))
		span := 0
		if stop > col {
			span = runewidth.StringWidth(expandTabs(text[col:stop]))
		}
		marker := "^"
		if span > 1 {
			marker += strings.Repeat("~", span-1)
		}
		if width > 0 {
			lead = min(lead, int(width))
			if lead+len(marker) > int(width) {
				marker = marker[:max(int(width)-lead, 1)]
			}
		}
		fmt.Fprintf(w, " %s %s %s%s\n", pad, p.gutter.Sprint("|"), strings.Repeat(" ", lead), p.caret.Sprint(marker))
	}
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

func clip(s string, width uint8) string {
	if width == 0 || runewidth.StringWidth(s) <= int(width) {
		return s
	}
	return runewidth.Truncate(s, int(width), "…")
}
