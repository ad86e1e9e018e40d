// Package lexer turns Python source into tokens, including the synthetic
// NEWLINE, INDENT and DEDENT tokens that carry block structure.
package lexer

import (
	"pyrust/internal/diag"
	"pyrust/internal/source"
	"pyrust/internal/token"
)

const tabWidth = 8

type Lexer struct {
	file     *source.File
	cursor   Cursor
	reporter diag.Reporter

	indents     []int
	depth       int           // open (, [ and { count; newlines inside are ignored
	opens       []token.Token // brackets still open, innermost last
	atLineStart bool
	pending     []token.Token
	last        token.Kind
	done        bool
	inner       bool // sub-range lexing for f-string fields
}

func New(file *source.File, reporter diag.Reporter) *Lexer {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	return &Lexer{
		file:        file,
		cursor:      NewCursor(file),
		reporter:    reporter,
		indents:     []int{0},
		atLineStart: true,
		last:        token.Newline,
	}
}

// NewRange lexes only [start, end) of file as a bracketed expression: no
// indentation tracking and no trailing NEWLINE. Used for f-string fields.
func NewRange(file *source.File, start, end uint32, reporter diag.Reporter) *Lexer {
	lx := New(file, reporter)
	lx.cursor.Off = start
	if end < lx.cursor.limit {
		lx.cursor.limit = end
	}
	lx.depth = 1
	lx.atLineStart = false
	lx.inner = true
	return lx
}

// Tokenize lexes the whole file.
func Tokenize(file *source.File, reporter diag.Reporter) []token.Token {
	lx := New(file, reporter)
	var out []token.Token
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

// Next returns the next token. After EOF it keeps returning EOF.
func (lx *Lexer) Next() token.Token {
	tok := lx.next()
	lx.last = tok.Kind
	return tok
}

func (lx *Lexer) next() token.Token {
	if len(lx.pending) > 0 {
		tok := lx.pending[0]
		lx.pending = lx.pending[1:]
		return tok
	}
	if lx.done {
		return token.Token{Kind: token.EOF, Span: lx.emptySpan()}
	}
	if lx.atLineStart && lx.depth == 0 {
		lx.atLineStart = false
		if lx.handleIndentation() {
			return lx.next()
		}
	}
	lx.skipInlineTrivia()
	if lx.cursor.EOF() {
		return lx.finish()
	}

	ch := lx.cursor.Peek()
	switch {
	case ch == '\n':
		start := lx.cursor.Mark()
		lx.cursor.Bump()
		if lx.depth > 0 {
			return lx.next()
		}
		lx.atLineStart = true
		return token.Token{Kind: token.Newline, Span: lx.cursor.SpanFrom(start)}
	case isStringStart(&lx.cursor):
		return lx.scanString()
	case isIdentStart(ch):
		return lx.scanIdentOrKeyword()
	case isDec(ch), ch == '.' && isDec(lx.cursor.PeekAt(1)):
		return lx.scanNumber()
	default:
		return lx.scanOperator()
	}
}

// handleIndentation measures the indentation of the next logical line and
// queues INDENT/DEDENT tokens. Blank and comment-only lines are skipped.
// It reports true when tokens were queued.
func (lx *Lexer) handleIndentation() bool {
	for {
		col := 0
	measure:
		for !lx.cursor.EOF() {
			switch lx.cursor.Peek() {
			case ' ':
				col++
			case '\t':
				col = (col/tabWidth + 1) * tabWidth
			case '\f':
				col = 0
			default:
				break measure
			}
			lx.cursor.Bump()
		}
		if lx.cursor.EOF() {
			return false
		}
		switch lx.cursor.Peek() {
		case '#':
			for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
				lx.cursor.Bump()
			}
			fallthrough
		case '\n':
			lx.cursor.Bump()
			continue
		case '\\':
			if lx.cursor.PeekAt(1) == '\n' {
				lx.cursor.BumpN(2)
				continue
			}
		}
		return lx.applyIndent(col)
	}
}

func (lx *Lexer) applyIndent(col int) bool {
	top := lx.indents[len(lx.indents)-1]
	sp := lx.emptySpan()
	switch {
	case col > top:
		lx.indents = append(lx.indents, col)
		lx.pending = append(lx.pending, token.Token{Kind: token.Indent, Span: sp})
		return true
	case col < top:
		for len(lx.indents) > 1 && col < lx.indents[len(lx.indents)-1] {
			lx.indents = lx.indents[:len(lx.indents)-1]
			lx.pending = append(lx.pending, token.Token{Kind: token.Dedent, Span: sp})
		}
		if col != lx.indents[len(lx.indents)-1] {
			diag.ReportError(lx.reporter, diag.LexBadIndent, sp,
				"unindent does not match any outer indentation level").Emit()
		}
		return true
	}
	return false
}

// finish emits the trailing NEWLINE and closing DEDENTs once.
func (lx *Lexer) finish() token.Token {
	lx.done = true
	sp := lx.emptySpan()
	if lx.inner {
		lx.pending = append(lx.pending, token.Token{Kind: token.EOF, Span: sp})
		return lx.next()
	}
	if n := len(lx.opens); n > 0 {
		open := lx.opens[n-1]
		diag.ReportError(lx.reporter, diag.LexUnbalancedBracket, open.Span, "'"+open.Text+"' was never closed").Emit()
	}
	if lx.last != token.Newline && lx.last != token.Dedent && lx.last != token.Indent {
		lx.pending = append(lx.pending, token.Token{Kind: token.Newline, Span: sp})
	}
	for len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.pending = append(lx.pending, token.Token{Kind: token.Dedent, Span: sp})
	}
	lx.pending = append(lx.pending, token.Token{Kind: token.EOF, Span: sp})
	return lx.next()
}

// skipInlineTrivia skips spaces, comments and explicit line joins.
func (lx *Lexer) skipInlineTrivia() {
	for !lx.cursor.EOF() {
		switch lx.cursor.Peek() {
		case ' ', '\t', '\f', '\r':
			lx.cursor.Bump()
		case '#':
			for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
				lx.cursor.Bump()
			}
		case '\\':
			if lx.cursor.PeekAt(1) != '\n' {
				return
			}
			lx.cursor.BumpN(2)
		default:
			return
		}
	}
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

func (lx *Lexer) errLex(code diag.Code, sp source.Span, msg string) {
	diag.ReportError(lx.reporter, code, sp, msg).Emit()
}
