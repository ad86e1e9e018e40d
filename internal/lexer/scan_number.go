package lexer

import (
	"strings"

	"pyrust/internal/diag"
	"pyrust/internal/token"
)

func isDec(b byte) bool { return b >= '0' && b <= '9' }

func isHex(b byte) bool {
	return isDec(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// scanNumber scans int and float literals. Underscore separators are
// removed from Text; prefixed literals keep their prefix.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.Int

	if lx.cursor.Peek() == '0' {
		switch lx.cursor.PeekAt(1) | 0x20 {
		case 'x', 'o', 'b':
			lx.cursor.BumpN(2)
			digits := 0
			for !lx.cursor.EOF() && (isHex(lx.cursor.Peek()) || lx.cursor.Peek() == '_') {
				if lx.cursor.Peek() != '_' {
					digits++
				}
				lx.cursor.Bump()
			}
			sp := lx.cursor.SpanFrom(start)
			text := strings.ReplaceAll(lx.cursor.Slice(start), "_", "")
			if digits == 0 {
				lx.errLex(diag.LexBadNumber, sp, "missing digits after integer prefix")
				return token.Token{Kind: token.Invalid, Span: sp, Text: text}
			}
			return token.Token{Kind: token.Int, Span: sp, Text: text}
		}
	}

	lx.scanDigits()
	if lx.cursor.Peek() == '.' && lx.cursor.PeekAt(1) != '.' {
		kind = token.Float
		lx.cursor.Bump()
		lx.scanDigits()
	}
	if b := lx.cursor.Peek(); b == 'e' || b == 'E' {
		next := lx.cursor.PeekAt(1)
		if isDec(next) || ((next == '+' || next == '-') && isDec(lx.cursor.PeekAt(2))) {
			kind = token.Float
			lx.cursor.BumpN(2)
			lx.scanDigits()
		}
	}
	sp := lx.cursor.SpanFrom(start)
	text := strings.ReplaceAll(lx.cursor.Slice(start), "_", "")
	if b := lx.cursor.Peek(); b == 'j' || b == 'J' {
		lx.cursor.Bump()
		sp = lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexBadNumber, sp, "complex literals are not supported")
		return token.Token{Kind: token.Invalid, Span: sp, Text: text}
	}
	if isIdentStart(lx.cursor.Peek()) {
		for !lx.cursor.EOF() && isIdentContinue(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		sp = lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexBadNumber, sp, "invalid number literal")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.cursor.Slice(start)}
	}
	return token.Token{Kind: kind, Span: sp, Text: text}
}

func (lx *Lexer) scanDigits() {
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if !isDec(b) && !(b == '_' && isDec(lx.cursor.PeekAt(1))) {
			return
		}
		lx.cursor.Bump()
	}
}
