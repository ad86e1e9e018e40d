package parser

import (
	"fmt"

	"pyrust/internal/ast"
	"pyrust/internal/diag"
	"pyrust/internal/source"
	"pyrust/internal/token"
)

// startsExpr reports whether the current token can begin an expression.
func (p *Parser) startsExpr() bool {
	switch p.peek().Kind {
	case token.Name, token.Int, token.Float, token.String, token.FString,
		token.KwNone, token.KwTrue, token.KwFalse, token.LParen, token.LBracket,
		token.LBrace, token.Minus, token.Plus, token.Tilde, token.KwNot,
		token.KwLambda, token.KwAwait, token.Ellipsis, token.Star, token.KwYield:
		return true
	}
	return false
}

// parseTestListStarExpr parses "a, *b, c" into a Tuple when a comma is
// present and into the single element otherwise.
func (p *Parser) parseTestListStarExpr() ast.Expr {
	start := p.peek().Span
	first := p.parseTestOrStar()
	if !p.at(token.Comma) {
		return first
	}
	elts := []ast.Expr{first}
	for p.accept(token.Comma) {
		if !p.startsExpr() {
			break
		}
		elts = append(elts, p.parseTestOrStar())
	}
	return &ast.Tuple{Pos: ast.Pos{Sp: p.spanFrom(start)}, Elts: elts}
}

func (p *Parser) parseTestOrStar() ast.Expr {
	if p.at(token.Star) {
		start := p.advance().Span
		v := p.parseBitOr()
		return &ast.Starred{Pos: ast.Pos{Sp: p.spanFrom(start)}, Value: v}
	}
	return p.parseNamedExprTest()
}

// parseTargetList parses a for-loop target list, which stops before 'in'.
func (p *Parser) parseTargetList() ast.Expr {
	start := p.peek().Span
	elts := p.parseExprListElems()
	if len(elts) == 1 && !p.toks[p.pos-1].Is(token.Comma) {
		return elts[0]
	}
	return &ast.Tuple{Pos: ast.Pos{Sp: p.spanFrom(start)}, Elts: elts}
}

// parseTarget parses a single with-item target.
func (p *Parser) parseTarget() ast.Expr {
	return p.parseBitOr()
}

// parseExprListElems parses "expr, expr, ..." without comparison operators
// so that the 'in' of a for statement is left alone.
func (p *Parser) parseExprListElems() []ast.Expr {
	var elts []ast.Expr
	for {
		if p.at(token.Star) {
			start := p.advance().Span
			v := p.parseBitOr()
			elts = append(elts, &ast.Starred{Pos: ast.Pos{Sp: p.spanFrom(start)}, Value: v})
		} else {
			elts = append(elts, p.parseBitOr())
		}
		if !p.at(token.Comma) {
			return elts
		}
		p.advance()
		if p.atAny(token.KwIn, token.Assign, token.Newline, token.RParen, token.RBracket) {
			return elts
		}
	}
}

func (p *Parser) parseNamedExprTest() ast.Expr {
	if p.at(token.Name) && p.peekAt(1).Kind == token.Walrus {
		tok := p.advance()
		p.advance()
		val := p.parseTest()
		return &ast.NamedExpr{
			Pos:    ast.Pos{Sp: p.spanFrom(tok.Span)},
			Target: &ast.Name{Pos: ast.Pos{Sp: tok.Span}, ID: tok.Text},
			Value:  val,
		}
	}
	return p.parseTest()
}

func (p *Parser) parseTest() ast.Expr {
	if p.at(token.KwLambda) {
		return p.parseLambda()
	}
	start := p.peek().Span
	body := p.parseOrTest()
	if !p.at(token.KwIf) {
		return body
	}
	p.advance()
	test := p.parseOrTest()
	if _, ok := p.expect(token.KwElse, diag.SynUnexpectedToken); !ok {
		return body
	}
	orElse := p.parseTest()
	return &ast.IfExp{Pos: ast.Pos{Sp: p.spanFrom(start)}, Test: test, Body: body, OrElse: orElse}
}

// parseTestNoCond parses a test without a conditional expression, as used
// by comprehension filters.
func (p *Parser) parseTestNoCond() ast.Expr {
	if p.at(token.KwLambda) {
		return p.parseLambda()
	}
	return p.parseOrTest()
}

func (p *Parser) parseLambda() ast.Expr {
	start := p.advance().Span
	args := p.parseParams(token.Colon, false)
	if _, ok := p.expect(token.Colon, diag.SynExpectColon); !ok {
		return &ast.Lambda{Pos: ast.Pos{Sp: start}, Args: args}
	}
	body := p.parseTest()
	return &ast.Lambda{Pos: ast.Pos{Sp: p.spanFrom(start)}, Args: args, Body: body}
}

func (p *Parser) parseOrTest() ast.Expr {
	return p.parseBoolOp(token.KwOr, ast.Or, p.parseAndTest)
}

func (p *Parser) parseAndTest() ast.Expr {
	return p.parseBoolOp(token.KwAnd, ast.And, p.parseNotTest)
}

func (p *Parser) parseBoolOp(k token.Kind, op ast.BoolOpKind, next func() ast.Expr) ast.Expr {
	start := p.peek().Span
	first := next()
	if !p.at(k) {
		return first
	}
	values := []ast.Expr{first}
	for p.accept(k) {
		values = append(values, next())
	}
	return &ast.BoolOp{Pos: ast.Pos{Sp: p.spanFrom(start)}, Op: op, Values: values}
}

func (p *Parser) parseNotTest() ast.Expr {
	if p.at(token.KwNot) {
		start := p.advance().Span
		operand := p.parseNotTest()
		return &ast.UnaryOp{Pos: ast.Pos{Sp: p.spanFrom(start)}, Op: ast.Not, Operand: operand}
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() ast.Expr {
	start := p.peek().Span
	left := p.parseBitOr()
	var ops []ast.CmpOpKind
	var comps []ast.Expr
	for {
		op, ok := p.compareOp()
		if !ok {
			break
		}
		ops = append(ops, op)
		comps = append(comps, p.parseBitOr())
	}
	if len(ops) == 0 {
		return left
	}
	return &ast.Compare{Pos: ast.Pos{Sp: p.spanFrom(start)}, Left: left, Ops: ops, Comparators: comps}
}

func (p *Parser) compareOp() (ast.CmpOpKind, bool) {
	switch p.peek().Kind {
	case token.EqEq:
		p.advance()
		return ast.Eq, true
	case token.NotEq:
		p.advance()
		return ast.NotEq, true
	case token.Lt:
		p.advance()
		return ast.Lt, true
	case token.LtEq:
		p.advance()
		return ast.LtE, true
	case token.Gt:
		p.advance()
		return ast.Gt, true
	case token.GtEq:
		p.advance()
		return ast.GtE, true
	case token.KwIn:
		p.advance()
		return ast.In, true
	case token.KwIs:
		p.advance()
		if p.accept(token.KwNot) {
			return ast.IsNot, true
		}
		return ast.Is, true
	case token.KwNot:
		if p.peekAt(1).Kind == token.KwIn {
			p.advance()
			p.advance()
			return ast.NotIn, true
		}
	}
	return 0, false
}

// binary operator precedence levels, loosest first.
var binaryLevels = [][]token.Kind{
	{token.Pipe},
	{token.Caret},
	{token.Amp},
	{token.Shl, token.Shr},
	{token.Plus, token.Minus},
	{token.Star, token.Slash, token.DoubleSlash, token.Percent, token.At},
}

func (p *Parser) parseBitOr() ast.Expr { return p.parseBinaryLevel(0) }

func (p *Parser) parseBinaryLevel(level int) ast.Expr {
	if level == len(binaryLevels) {
		return p.parseFactor()
	}
	start := p.peek().Span
	left := p.parseBinaryLevel(level + 1)
	for p.atAny(binaryLevels[level]...) {
		op := binOpFor(p.advance().Kind)
		right := p.parseBinaryLevel(level + 1)
		left = &ast.BinOp{Pos: ast.Pos{Sp: p.spanFrom(start)}, Op: op, Left: left, Right: right}
	}
	return left
}

func binOpFor(k token.Kind) ast.BinOpKind {
	switch k {
	case token.Plus:
		return ast.Add
	case token.Minus:
		return ast.Sub
	case token.Star:
		return ast.Mult
	case token.At:
		return ast.MatMult
	case token.Slash:
		return ast.Div
	case token.DoubleSlash:
		return ast.FloorDiv
	case token.Percent:
		return ast.Mod
	case token.DoubleStar:
		return ast.Pow
	case token.Shl:
		return ast.LShift
	case token.Shr:
		return ast.RShift
	case token.Pipe:
		return ast.BitOr
	case token.Caret:
		return ast.BitXor
	case token.Amp:
		return ast.BitAnd
	}
	panic(fmt.Sprintf("not a binary operator: %s", k))
}

func (p *Parser) parseFactor() ast.Expr {
	var op ast.UnaryOpKind
	switch p.peek().Kind {
	case token.Plus:
		op = ast.UAdd
	case token.Minus:
		op = ast.USub
	case token.Tilde:
		op = ast.Invert
	default:
		return p.parsePower()
	}
	start := p.advance().Span
	operand := p.parseFactor()
	return &ast.UnaryOp{Pos: ast.Pos{Sp: p.spanFrom(start)}, Op: op, Operand: operand}
}

func (p *Parser) parsePower() ast.Expr {
	start := p.peek().Span
	var base ast.Expr
	if p.at(token.KwAwait) {
		p.advance()
		v := p.parsePrimary()
		base = &ast.Await{Pos: ast.Pos{Sp: p.spanFrom(start)}, Value: v}
	} else {
		base = p.parsePrimary()
	}
	if p.accept(token.DoubleStar) {
		exp := p.parseFactor()
		return &ast.BinOp{Pos: ast.Pos{Sp: p.spanFrom(start)}, Op: ast.Pow, Left: base, Right: exp}
	}
	return base
}

func (p *Parser) parsePrimary() ast.Expr {
	start := p.peek().Span
	e := p.parseAtom()
	for {
		switch p.peek().Kind {
		case token.LParen:
			p.advance()
			args, kws := p.parseCallArgs()
			p.expect(token.RParen, diag.SynUnclosedParen)
			e = &ast.Call{Pos: ast.Pos{Sp: p.spanFrom(start)}, Func: e, Args: args, Keywords: kws}
		case token.LBracket:
			p.advance()
			idx := p.parseSubscriptList()
			p.expect(token.RBracket, diag.SynUnclosedParen)
			e = &ast.Subscript{Pos: ast.Pos{Sp: p.spanFrom(start)}, Value: e, Index: idx}
		case token.Dot:
			p.advance()
			name, ok := p.expect(token.Name, diag.SynExpectIdentifier)
			if !ok {
				return e
			}
			e = &ast.Attribute{Pos: ast.Pos{Sp: p.spanFrom(start)}, Value: e, Attr: name.Text}
		default:
			return e
		}
	}
}

func (p *Parser) parseCallArgs() ([]ast.Expr, []*ast.Keyword) {
	var args []ast.Expr
	var kws []*ast.Keyword
	for !p.at(token.RParen) && !p.at(token.EOF) {
		start := p.peek().Span
		switch {
		case p.at(token.DoubleStar):
			p.advance()
			v := p.parseTest()
			kws = append(kws, &ast.Keyword{Pos: ast.Pos{Sp: p.spanFrom(start)}, Value: v})
		case p.at(token.Star):
			p.advance()
			v := p.parseTest()
			args = append(args, &ast.Starred{Pos: ast.Pos{Sp: p.spanFrom(start)}, Value: v})
		case p.at(token.Name) && p.peekAt(1).Kind == token.Assign:
			name := p.advance().Text
			p.advance()
			v := p.parseTest()
			kws = append(kws, &ast.Keyword{Pos: ast.Pos{Sp: p.spanFrom(start)}, Name: name, Value: v})
		default:
			v := p.parseNamedExprTest()
			if p.atAny(token.KwFor, token.KwAsync) {
				gens := p.parseCompFor()
				v = &ast.GeneratorExp{Pos: ast.Pos{Sp: p.spanFrom(start)}, Elt: v, Generators: gens}
			}
			args = append(args, v)
		}
		if !p.accept(token.Comma) {
			break
		}
	}
	return args, kws
}

func (p *Parser) parseSubscriptList() ast.Expr {
	start := p.peek().Span
	first := p.parseSubscript()
	if !p.at(token.Comma) {
		return first
	}
	elts := []ast.Expr{first}
	for p.accept(token.Comma) {
		if p.at(token.RBracket) {
			break
		}
		elts = append(elts, p.parseSubscript())
	}
	return &ast.Tuple{Pos: ast.Pos{Sp: p.spanFrom(start)}, Elts: elts}
}

func (p *Parser) parseSubscript() ast.Expr {
	start := p.peek().Span
	var lower ast.Expr
	if !p.at(token.Colon) {
		lower = p.parseTest()
		if !p.at(token.Colon) {
			return lower
		}
	}
	p.advance()
	s := &ast.Slice{Lower: lower}
	if !p.atAny(token.Colon, token.RBracket, token.Comma) {
		s.Upper = p.parseTest()
	}
	if p.accept(token.Colon) && !p.atAny(token.RBracket, token.Comma) {
		s.Step = p.parseTest()
	}
	s.Sp = p.spanFrom(start)
	return s
}

func (p *Parser) parseCompFor() []*ast.Comprehension {
	var gens []*ast.Comprehension
	for p.atAny(token.KwFor, token.KwAsync) {
		start := p.peek().Span
		isAsync := p.accept(token.KwAsync)
		p.expect(token.KwFor, diag.SynUnexpectedToken)
		c := &ast.Comprehension{IsAsync: isAsync, Target: p.parseTargetList()}
		p.checkTarget(c.Target)
		p.expect(token.KwIn, diag.SynUnexpectedToken)
		c.Iter = p.parseOrTest()
		for p.accept(token.KwIf) {
			c.Ifs = append(c.Ifs, p.parseTestNoCond())
		}
		c.Sp = p.spanFrom(start)
		gens = append(gens, c)
	}
	return gens
}

func (p *Parser) parseYield() ast.Expr {
	start := p.advance().Span
	if p.accept(token.KwFrom) {
		v := p.parseTest()
		return &ast.YieldFrom{Pos: ast.Pos{Sp: p.spanFrom(start)}, Value: v}
	}
	var v ast.Expr
	if p.startsExpr() && !p.at(token.KwYield) {
		v = p.parseTestListStarExpr()
	}
	return &ast.Yield{Pos: ast.Pos{Sp: p.spanFrom(start)}, Value: v}
}

func (p *Parser) parseAtom() ast.Expr {
	tok := p.peek()
	sp := tok.Span
	switch tok.Kind {
	case token.Name:
		p.advance()
		return &ast.Name{Pos: ast.Pos{Sp: sp}, ID: tok.Text}
	case token.Int:
		p.advance()
		return &ast.Constant{Pos: ast.Pos{Sp: sp}, Kind: ast.ConstInt, Value: tok.Text}
	case token.Float:
		p.advance()
		return &ast.Constant{Pos: ast.Pos{Sp: sp}, Kind: ast.ConstFloat, Value: tok.Text}
	case token.KwNone:
		p.advance()
		return &ast.Constant{Pos: ast.Pos{Sp: sp}, Kind: ast.ConstNone, Value: "None"}
	case token.KwTrue, token.KwFalse:
		p.advance()
		return &ast.Constant{Pos: ast.Pos{Sp: sp}, Kind: ast.ConstBool, Value: tok.Text}
	case token.Ellipsis:
		p.advance()
		return &ast.Constant{Pos: ast.Pos{Sp: sp}, Kind: ast.ConstEllipsis, Value: "..."}
	case token.String, token.FString:
		return p.parseStrings()
	case token.KwYield:
		return p.parseYield()
	case token.LParen:
		return p.parseParenAtom()
	case token.LBracket:
		return p.parseListAtom()
	case token.LBrace:
		return p.parseBraceAtom()
	}
	p.unexpected()
	p.advance()
	return &ast.Constant{Pos: ast.Pos{Sp: sp}, Kind: ast.ConstNone, Value: "None"}
}

func (p *Parser) parseParenAtom() ast.Expr {
	start := p.advance().Span
	if p.accept(token.RParen) {
		return &ast.Tuple{Pos: ast.Pos{Sp: p.spanFrom(start)}}
	}
	if p.at(token.KwYield) {
		y := p.parseYield()
		p.expect(token.RParen, diag.SynUnclosedParen)
		return y
	}
	first := p.parseTestOrStar()
	if p.atAny(token.KwFor, token.KwAsync) {
		gens := p.parseCompFor()
		p.expect(token.RParen, diag.SynUnclosedParen)
		return &ast.GeneratorExp{Pos: ast.Pos{Sp: p.spanFrom(start)}, Elt: first, Generators: gens}
	}
	if p.accept(token.RParen) {
		return first
	}
	elts := []ast.Expr{first}
	for p.accept(token.Comma) {
		if p.at(token.RParen) {
			break
		}
		elts = append(elts, p.parseTestOrStar())
	}
	p.expect(token.RParen, diag.SynUnclosedParen)
	return &ast.Tuple{Pos: ast.Pos{Sp: p.spanFrom(start)}, Elts: elts}
}

func (p *Parser) parseListAtom() ast.Expr {
	start := p.advance().Span
	if p.accept(token.RBracket) {
		return &ast.List{Pos: ast.Pos{Sp: p.spanFrom(start)}}
	}
	first := p.parseTestOrStar()
	if p.atAny(token.KwFor, token.KwAsync) {
		gens := p.parseCompFor()
		p.expect(token.RBracket, diag.SynUnclosedParen)
		return &ast.ListComp{Pos: ast.Pos{Sp: p.spanFrom(start)}, Elt: first, Generators: gens}
	}
	elts := p.continueElems(first, token.RBracket)
	return &ast.List{Pos: ast.Pos{Sp: p.spanFrom(start)}, Elts: elts}
}

func (p *Parser) continueElems(first ast.Expr, end token.Kind) []ast.Expr {
	elts := []ast.Expr{first}
	for p.accept(token.Comma) {
		if p.at(end) {
			break
		}
		elts = append(elts, p.parseTestOrStar())
	}
	p.expect(end, diag.SynUnclosedParen)
	return elts
}

func (p *Parser) parseBraceAtom() ast.Expr {
	start := p.advance().Span
	if p.accept(token.RBrace) {
		return &ast.Dict{Pos: ast.Pos{Sp: p.spanFrom(start)}}
	}
	if p.at(token.DoubleStar) {
		return p.parseDictRest(start, nil, nil)
	}
	first := p.parseTestOrStar()
	if !p.at(token.Colon) {
		if p.atAny(token.KwFor, token.KwAsync) {
			gens := p.parseCompFor()
			p.expect(token.RBrace, diag.SynUnclosedParen)
			return &ast.SetComp{Pos: ast.Pos{Sp: p.spanFrom(start)}, Elt: first, Generators: gens}
		}
		elts := p.continueElems(first, token.RBrace)
		return &ast.Set{Pos: ast.Pos{Sp: p.spanFrom(start)}, Elts: elts}
	}
	p.advance()
	val := p.parseTest()
	if p.atAny(token.KwFor, token.KwAsync) {
		gens := p.parseCompFor()
		p.expect(token.RBrace, diag.SynUnclosedParen)
		return &ast.DictComp{Pos: ast.Pos{Sp: p.spanFrom(start)}, Key: first, Value: val, Generators: gens}
	}
	return p.parseDictRest(start, []ast.Expr{first}, []ast.Expr{val})
}

// parseDictRest continues a dict display; a nil key marks a **mapping entry.
func (p *Parser) parseDictRest(start source.Span, keys, values []ast.Expr) ast.Expr {
	if len(keys) > 0 && !p.accept(token.Comma) {
		p.expect(token.RBrace, diag.SynUnclosedParen)
		return &ast.Dict{Pos: ast.Pos{Sp: p.spanFrom(start)}, Keys: keys, Values: values}
	}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if p.accept(token.DoubleStar) {
			keys = append(keys, nil)
			values = append(values, p.parseBitOr())
		} else {
			k := p.parseTest()
			p.expect(token.Colon, diag.SynExpectColon)
			keys = append(keys, k)
			values = append(values, p.parseTest())
		}
		if !p.accept(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, diag.SynUnclosedParen)
	return &ast.Dict{Pos: ast.Pos{Sp: p.spanFrom(start)}, Keys: keys, Values: values}
}
