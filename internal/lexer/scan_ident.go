package lexer

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"pyrust/internal/diag"
	"pyrust/internal/token"
)

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= utf8.RuneSelf
}

func isIdentContinue(b byte) bool {
	return isIdentStart(b) || isDec(b)
}

// scanIdentOrKeyword scans an identifier. Non-ASCII identifiers are
// NFKC-normalized, so "ﬁle" and "file" name the same variable.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()
	ascii := true
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b < utf8.RuneSelf {
			if !isIdentContinue(b) {
				break
			}
			lx.cursor.Bump()
			continue
		}
		r, size := utf8.DecodeRune(lx.file.Content[lx.cursor.Off:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r) {
			break
		}
		ascii = false
		lx.cursor.BumpN(uint32(size)) //nolint:gosec // size <= 4
	}
	sp := lx.cursor.SpanFrom(start)
	if sp.Empty() {
		// a stray non-letter rune
		_, size := utf8.DecodeRune(lx.file.Content[lx.cursor.Off:])
		lx.cursor.BumpN(uint32(size)) //nolint:gosec // size <= 4
		sp = lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, "invalid character in identifier")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.cursor.Slice(start)}
	}
	text := lx.cursor.Slice(start)
	if !ascii {
		text = norm.NFKC.String(text)
	}
	if kw, ok := token.LookupKeyword(text); ok {
		return token.Token{Kind: kw, Span: sp, Text: text}
	}
	return token.Token{Kind: token.Name, Span: sp, Text: text}
}
