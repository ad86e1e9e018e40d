package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"pyrust/internal/diag"
	"pyrust/internal/token"
)

// isStringStart recognizes an optional r/b/u/f prefix followed by a quote.
func isStringStart(c *Cursor) bool {
	n := prefixLen(c)
	q := c.PeekAt(n)
	return q == '\'' || q == '"'
}

func prefixLen(c *Cursor) uint32 {
	var n uint32
	for n < 2 {
		switch c.PeekAt(n) | 0x20 {
		case 'r', 'b', 'u', 'f':
			n++
			continue
		}
		break
	}
	return n
}

func (lx *Lexer) scanString() token.Token {
	start := lx.cursor.Mark()
	n := prefixLen(&lx.cursor)
	prefix := strings.ToLower(string(lx.file.Content[start : start+n]))
	lx.cursor.BumpN(n)
	raw := strings.Contains(prefix, "r")
	isF := strings.Contains(prefix, "f")

	quote := lx.cursor.Peek()
	triple := lx.cursor.PeekAt(1) == quote && lx.cursor.PeekAt(2) == quote
	width := uint32(1)
	if triple {
		width = 3
	}
	lx.cursor.BumpN(width)
	bodyStart := lx.cursor.Mark()

	for {
		if lx.cursor.EOF() {
			sp := lx.cursor.SpanFrom(start)
			lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
			return token.Token{Kind: token.Invalid, Span: sp, Text: lx.cursor.Slice(start)}
		}
		b := lx.cursor.Peek()
		if b == '\\' {
			lx.cursor.BumpN(2)
			continue
		}
		if b == '\n' && !triple {
			sp := lx.cursor.SpanFrom(start)
			lx.errLex(diag.LexUnterminatedString, sp, "newline in string literal")
			return token.Token{Kind: token.Invalid, Span: sp, Text: lx.cursor.Slice(start)}
		}
		if b == quote && (!triple || (lx.cursor.PeekAt(1) == quote && lx.cursor.PeekAt(2) == quote)) {
			break
		}
		lx.cursor.Bump()
	}
	body := string(lx.file.Content[bodyStart:lx.cursor.Off])
	lx.cursor.BumpN(width)
	sp := lx.cursor.SpanFrom(start)

	if isF {
		return token.Token{Kind: token.FString, Span: sp, Text: body, Raw: raw}
	}
	if raw {
		return token.Token{Kind: token.String, Span: sp, Text: body}
	}
	return token.Token{Kind: token.String, Span: sp, Text: Unescape(body)}
}

// Unescape decodes Python backslash escapes. Unknown escapes are kept
// verbatim, as Python does.
func Unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\n':
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[s[i]]
			if i+width < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32); err == nil {
					b.WriteRune(rune(v))
					i += width
					continue
				}
			}
			b.WriteByte('\\')
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteRune(r)
			i += size - 1
		}
	}
	return b.String()
}
