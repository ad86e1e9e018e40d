package rust

import "strings"

// writer accumulates printed text and indents every line it starts.
type writer struct {
	buf         strings.Builder
	indentLevel int
	indentWidth int
	atLineStart bool
}

func newWriter() *writer {
	return &writer{indentWidth: 4, atLineStart: true}
}

func (w *writer) writeIndent() {
	if !w.atLineStart {
		return
	}
	for range w.indentLevel * w.indentWidth {
		w.buf.WriteByte(' ')
	}
	w.atLineStart = false
}

// WriteString writes s, which must not contain a newline.
func (w *writer) WriteString(s string) {
	if s == "" {
		return
	}
	w.writeIndent()
	w.buf.WriteString(s)
}

// Newline ends the current line. Blank lines carry no indentation.
func (w *writer) Newline() {
	w.buf.WriteByte('\n')
	w.atLineStart = true
}

// Line writes s on a line of its own.
func (w *writer) Line(s string) {
	if !w.atLineStart {
		w.Newline()
	}
	w.WriteString(s)
	w.Newline()
}

// Blank writes an empty line unless the output already ends with one.
func (w *writer) Blank() {
	s := w.buf.String()
	if s == "" || strings.HasSuffix(s, "\n\n") {
		return
	}
	if !w.atLineStart {
		w.Newline()
	}
	w.Newline()
}

func (w *writer) Indent() { w.indentLevel++ }
func (w *writer) Dedent() { w.indentLevel-- }

func (w *writer) String() string { return w.buf.String() }
