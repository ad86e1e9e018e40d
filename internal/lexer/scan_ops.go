package lexer

import (
	"pyrust/internal/diag"
	"pyrust/internal/token"
)

// operators ordered longest first so prefix matching picks the longest.
var operators = []struct {
	text string
	kind token.Kind
}{
	{"**=", token.DoubleStarAssign}, {"//=", token.DoubleSlashAssign},
	{"<<=", token.ShlAssign}, {">>=", token.ShrAssign}, {"...", token.Ellipsis},
	{"**", token.DoubleStar}, {"//", token.DoubleSlash}, {"<<", token.Shl},
	{">>", token.Shr}, {"<=", token.LtEq}, {">=", token.GtEq},
	{"==", token.EqEq}, {"!=", token.NotEq}, {"->", token.Arrow},
	{":=", token.Walrus}, {"+=", token.PlusAssign}, {"-=", token.MinusAssign},
	{"*=", token.StarAssign}, {"/=", token.SlashAssign}, {"%=", token.PercentAssign},
	{"&=", token.AmpAssign}, {"|=", token.PipeAssign}, {"^=", token.CaretAssign},
	{"@=", token.AtAssign},
	{"+", token.Plus}, {"-", token.Minus}, {"*", token.Star}, {"/", token.Slash},
	{"%", token.Percent}, {"@", token.At}, {"&", token.Amp}, {"|", token.Pipe},
	{"^", token.Caret}, {"~", token.Tilde}, {"<", token.Lt}, {">", token.Gt},
	{"(", token.LParen}, {")", token.RParen}, {"[", token.LBracket},
	{"]", token.RBracket}, {"{", token.LBrace}, {"}", token.RBrace},
	{",", token.Comma}, {":", token.Colon}, {".", token.Dot},
	{";", token.Semicolon}, {"=", token.Assign},
}

func (lx *Lexer) scanOperator() token.Token {
	start := lx.cursor.Mark()
	for _, op := range operators {
		if !lx.cursor.HasPrefix(op.text) {
			continue
		}
		lx.cursor.BumpN(uint32(len(op.text))) //nolint:gosec // operator length <= 3
		tok := token.Token{Kind: op.kind, Span: lx.cursor.SpanFrom(start), Text: op.text}
		switch op.kind {
		case token.LParen, token.LBracket, token.LBrace:
			lx.depth++
			lx.opens = append(lx.opens, tok)
		case token.RParen, token.RBracket, token.RBrace:
			if lx.depth == 0 {
				lx.errLex(diag.LexUnbalancedBracket, tok.Span, "unmatched '"+op.text+"'")
			} else {
				lx.depth--
				if n := len(lx.opens); n > 0 {
					lx.opens = lx.opens[:n-1]
				}
			}
		}
		return tok
	}
	lx.cursor.Bump()
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnknownChar, sp, "unexpected character "+lx.cursor.Slice(start))
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.cursor.Slice(start)}
}
