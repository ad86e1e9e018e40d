package parser

import (
	"strings"

	"pyrust/internal/ast"
	"pyrust/internal/diag"
	"pyrust/internal/lexer"
	"pyrust/internal/source"
	"pyrust/internal/token"
)

// parseStrings joins adjacent string literals. Any f-string in the run turns
// the result into a JoinedStr.
func (p *Parser) parseStrings() ast.Expr {
	start := p.peek().Span
	var parts []ast.FStringPart
	formatted := false
	for p.atAny(token.String, token.FString) {
		tok := p.advance()
		if tok.Kind == token.String {
			parts = appendLit(parts, tok.Text)
			continue
		}
		formatted = true
		for _, part := range p.parseFStringBody(tok) {
			if part.Expr == nil {
				parts = appendLit(parts, part.Lit)
			} else {
				parts = append(parts, part)
			}
		}
	}
	sp := p.spanFrom(start)
	if !formatted {
		var lit string
		if len(parts) > 0 {
			lit = parts[0].Lit
		}
		return &ast.Constant{Pos: ast.Pos{Sp: sp}, Kind: ast.ConstStr, Value: lit}
	}
	return &ast.JoinedStr{Pos: ast.Pos{Sp: sp}, Parts: parts}
}

func appendLit(parts []ast.FStringPart, lit string) []ast.FStringPart {
	if n := len(parts); n > 0 && parts[n-1].Expr == nil {
		parts[n-1].Lit += lit
		return parts
	}
	return append(parts, ast.FStringPart{Lit: lit})
}

// bodyOffset locates the first byte after the opening quotes of tok.
func (p *Parser) bodyOffset(tok token.Token) uint32 {
	off := tok.Span.Start
	prefix := uint32(0)
	for off+prefix < tok.Span.End {
		c := p.file.Content[off+prefix] | 0x20
		if c != 'f' && c != 'r' && c != 'b' && c != 'u' {
			break
		}
		prefix++
	}
	quotes := uint32(1)
	if tok.Span.Len() == prefix+uint32(len(tok.Text))+6 { //nolint:gosec // body length bounded by file size
		quotes = 3
	}
	return off + prefix + quotes
}

func (p *Parser) parseFStringBody(tok token.Token) []ast.FStringPart {
	body := tok.Text
	base := p.bodyOffset(tok)
	var parts []ast.FStringPart
	var lit strings.Builder
	flush := func() {
		if lit.Len() == 0 {
			return
		}
		text := lit.String()
		if !tok.Raw {
			text = lexer.Unescape(text)
		}
		parts = append(parts, ast.FStringPart{Lit: text})
		lit.Reset()
	}
	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case c == '{' && i+1 < len(body) && body[i+1] == '{':
			lit.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(body) && body[i+1] == '}':
			lit.WriteByte('}')
			i += 2
		case c == '}':
			p.errAt(diag.SynUnexpectedToken, tok.Span, "single '}' is not allowed in f-string")
			return parts
		case c == '{':
			flush()
			part, next, ok := p.parseFStringField(tok, body, base, i+1)
			if !ok {
				return parts
			}
			parts = append(parts, part)
			i = next
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return parts
}

// parseFStringField parses one replacement field starting after '{' and
// returns the index just past its closing '}'.
func (p *Parser) parseFStringField(tok token.Token, body string, base uint32, i int) (ast.FStringPart, int, bool) {
	exprEnd := -1
	depth := 0
	var quote byte
	j := i
scan:
	for ; j < len(body); j++ {
		c := body[j]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				exprEnd = j
				break scan
			}
			depth--
		case '!':
			if depth == 0 && j+1 < len(body) && body[j+1] != '=' {
				exprEnd = j
				break scan
			}
		case ':':
			if depth == 0 {
				exprEnd = j
				break scan
			}
		}
	}
	if exprEnd < 0 {
		p.errAt(diag.SynUnclosedParen, tok.Span, "expected '}' in f-string")
		return ast.FStringPart{}, 0, false
	}
	if strings.TrimSpace(body[i:exprEnd]) == "" {
		p.errAt(diag.SynUnexpectedToken, tok.Span, "empty expression in f-string")
		return ast.FStringPart{}, 0, false
	}
	expr, ok := p.parseSubExpr(base+uint32(i), base+uint32(exprEnd)) //nolint:gosec // offsets inside the token
	if !ok {
		return ast.FStringPart{}, 0, false
	}
	part := ast.FStringPart{Expr: expr}
	j = exprEnd
	if body[j] == '!' && j+1 < len(body) {
		part.Conv = body[j+1]
		j += 2
	}
	if j < len(body) && body[j] == ':' {
		specStart := j + 1
		nest := 0
		for j = specStart; j < len(body); j++ {
			if body[j] == '{' {
				nest++
			} else if body[j] == '}' {
				if nest == 0 {
					break
				}
				nest--
			}
		}
		part.Spec = body[specStart:j]
	}
	if j >= len(body) || body[j] != '}' {
		p.errAt(diag.SynUnclosedParen, tok.Span, "expected '}' in f-string")
		return ast.FStringPart{}, 0, false
	}
	return part, j + 1, true
}

// parseSubExpr parses the file range [start, end) as a standalone expression.
func (p *Parser) parseSubExpr(start, end uint32) (ast.Expr, bool) {
	before := p.errors
	lx := lexer.NewRange(p.file, start, end, p.rep)
	sub := &Parser{file: p.file, bag: p.bag, rep: p.rep, opts: p.opts}
	for {
		t := lx.Next()
		sub.toks = append(sub.toks, t)
		if t.Kind == token.EOF {
			break
		}
	}
	e := sub.parseTestListStarExpr()
	if !sub.at(token.EOF) {
		sub.errAt(diag.SynUnexpectedToken, source.Span{File: p.file.ID, Start: start, End: end}, "invalid expression in f-string")
	}
	p.errors += sub.errors
	return e, p.errors == before
}
