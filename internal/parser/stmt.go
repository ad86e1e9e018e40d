package parser

import (
	"pyrust/internal/ast"
	"pyrust/internal/diag"
	"pyrust/internal/source"
	"pyrust/internal/token"
)

// parseStmtsUntil parses statements until end (EOF or Dedent) is reached.
func (p *Parser) parseStmtsUntil(end token.Kind) []ast.Stmt {
	var out []ast.Stmt
	for !p.at(end) && !p.at(token.EOF) {
		if p.accept(token.Newline) {
			continue
		}
		if p.at(token.Indent) {
			p.errAt(diag.SynExpectIndent, p.peek().Span, "unexpected indent")
			p.advance()
			continue
		}
		before := p.errors
		stmts := p.parseStatement()
		if p.errors > before {
			p.resync()
			continue
		}
		out = append(out, stmts...)
	}
	return out
}

func (p *Parser) parseStatement() []ast.Stmt {
	start := p.peek().Span
	switch p.peek().Kind {
	case token.KwIf:
		return one(p.parseIf())
	case token.KwWhile:
		return one(p.parseWhile())
	case token.KwFor:
		return one(p.parseFor(start, false))
	case token.KwTry:
		return one(p.parseTry())
	case token.KwWith:
		return one(p.parseWith(start, false))
	case token.KwDef:
		return one(p.parseFunctionDef(start, nil, false))
	case token.KwClass:
		return one(p.parseClassDef(start, nil))
	case token.At:
		return one(p.parseDecorated())
	case token.KwAsync:
		p.advance()
		switch p.peek().Kind {
		case token.KwDef:
			return one(p.parseFunctionDef(start, nil, true))
		case token.KwFor:
			return one(p.parseFor(start, true))
		case token.KwWith:
			return one(p.parseWith(start, true))
		}
		p.unexpected()
		return nil
	}
	return p.parseSimpleStmts()
}

func one(s ast.Stmt) []ast.Stmt {
	if s == nil {
		return nil
	}
	return []ast.Stmt{s}
}

// parseBlock parses ':' followed by an indented suite or a same-line
// statement list.
func (p *Parser) parseBlock() []ast.Stmt {
	if _, ok := p.expect(token.Colon, diag.SynExpectColon); !ok {
		return nil
	}
	if !p.accept(token.Newline) {
		return p.parseSimpleStmts()
	}
	if !p.at(token.Indent) {
		p.errAt(diag.SynExpectIndent, p.peek().Span, "expected an indented block")
		return nil
	}
	p.advance()
	body := p.parseStmtsUntil(token.Dedent)
	p.accept(token.Dedent)
	if len(body) == 0 {
		p.errAt(diag.SynExpectIndent, p.prevSpan(), "expected an indented block")
	}
	return body
}

func (p *Parser) parseSimpleStmts() []ast.Stmt {
	var out []ast.Stmt
	for {
		s := p.parseSmallStmt()
		if s == nil {
			return out
		}
		out = append(out, s)
		if !p.accept(token.Semicolon) {
			break
		}
		if p.atAny(token.Newline, token.EOF) {
			break
		}
	}
	if !p.accept(token.Newline) && !p.at(token.EOF) {
		p.unexpected()
	}
	return out
}

func (p *Parser) parseSmallStmt() ast.Stmt {
	tok := p.peek()
	start := tok.Span
	switch tok.Kind {
	case token.KwPass:
		p.advance()
		return &ast.Pass{Pos: ast.Pos{Sp: start}}
	case token.KwBreak:
		p.advance()
		return &ast.Break{Pos: ast.Pos{Sp: start}}
	case token.KwContinue:
		p.advance()
		return &ast.Continue{Pos: ast.Pos{Sp: start}}
	case token.KwReturn:
		p.advance()
		var val ast.Expr
		if !p.atAny(token.Newline, token.Semicolon, token.EOF) {
			val = p.parseTestListStarExpr()
		}
		return &ast.Return{Pos: ast.Pos{Sp: p.spanFrom(start)}, Value: val}
	case token.KwRaise:
		p.advance()
		r := &ast.Raise{}
		if !p.atAny(token.Newline, token.Semicolon, token.EOF) {
			r.Exc = p.parseTest()
			if p.accept(token.KwFrom) {
				r.Cause = p.parseTest()
			}
		}
		r.Sp = p.spanFrom(start)
		return r
	case token.KwGlobal, token.KwNonlocal:
		p.advance()
		names := p.parseNameList()
		if tok.Kind == token.KwGlobal {
			return &ast.Global{Pos: ast.Pos{Sp: p.spanFrom(start)}, Names: names}
		}
		return &ast.Nonlocal{Pos: ast.Pos{Sp: p.spanFrom(start)}, Names: names}
	case token.KwDel:
		p.advance()
		targets := p.parseExprListElems()
		for _, t := range targets {
			p.checkTarget(t)
		}
		return &ast.Delete{Pos: ast.Pos{Sp: p.spanFrom(start)}, Targets: targets}
	case token.KwAssert:
		p.advance()
		a := &ast.Assert{Test: p.parseTest()}
		if p.accept(token.Comma) {
			a.Msg = p.parseTest()
		}
		a.Sp = p.spanFrom(start)
		return a
	case token.KwImport:
		return p.parseImport()
	case token.KwFrom:
		return p.parseImportFrom()
	}
	return p.parseExprStmt()
}

func (p *Parser) parseNameList() []string {
	var names []string
	for {
		tok, ok := p.expect(token.Name, diag.SynExpectIdentifier)
		if !ok {
			return names
		}
		names = append(names, tok.Text)
		if !p.accept(token.Comma) {
			return names
		}
	}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	start := p.peek().Span
	first := p.parseTestListStarExpr()
	if first == nil {
		return nil
	}
	switch {
	case p.at(token.Colon):
		p.advance()
		p.checkTarget(first)
		ann := p.parseTest()
		var val ast.Expr
		if p.accept(token.Assign) {
			val = p.parseAssignValue()
		}
		return &ast.AnnAssign{Pos: ast.Pos{Sp: p.spanFrom(start)}, Target: first, Annotation: ann, Value: val}
	case p.peek().Kind.IsAugAssign():
		op := binOpFor(p.advance().Kind.AugBase())
		p.checkTarget(first)
		val := p.parseAssignValue()
		return &ast.AugAssign{Pos: ast.Pos{Sp: p.spanFrom(start)}, Target: first, Op: op, Value: val}
	case p.at(token.Assign):
		targets := []ast.Expr{first}
		var val ast.Expr
		for p.accept(token.Assign) {
			val = p.parseAssignValue()
			if p.at(token.Assign) {
				targets = append(targets, val)
			}
		}
		for _, t := range targets {
			p.checkTarget(t)
		}
		return &ast.Assign{Pos: ast.Pos{Sp: p.spanFrom(start)}, Targets: targets, Value: val}
	}
	return &ast.ExprStmt{Pos: ast.Pos{Sp: p.spanFrom(start)}, Value: first}
}

func (p *Parser) parseAssignValue() ast.Expr {
	if p.at(token.KwYield) {
		return p.parseYield()
	}
	return p.parseTestListStarExpr()
}

// checkTarget reports expressions that cannot appear on the left of '='.
func (p *Parser) checkTarget(e ast.Expr) {
	switch t := e.(type) {
	case *ast.Name, *ast.Attribute, *ast.Subscript:
	case *ast.Starred:
		p.checkTarget(t.Value)
	case *ast.Tuple:
		for _, el := range t.Elts {
			p.checkTarget(el)
		}
	case *ast.List:
		for _, el := range t.Elts {
			p.checkTarget(el)
		}
	default:
		p.errAt(diag.SynBadAssignTarget, e.Span(), "cannot assign to expression")
	}
}

func (p *Parser) parseImport() ast.Stmt {
	start := p.advance().Span
	imp := &ast.Import{}
	for {
		aStart := p.peek().Span
		name := p.parseDottedName()
		if name == "" {
			return nil
		}
		alias := &ast.Alias{Name: name}
		if p.accept(token.KwAs) {
			tok, _ := p.expect(token.Name, diag.SynExpectIdentifier)
			alias.AsName = tok.Text
		}
		alias.Sp = p.spanFrom(aStart)
		imp.Names = append(imp.Names, alias)
		if !p.accept(token.Comma) {
			break
		}
	}
	imp.Sp = p.spanFrom(start)
	return imp
}

func (p *Parser) parseImportFrom() ast.Stmt {
	start := p.advance().Span
	imp := &ast.ImportFrom{}
	for p.atAny(token.Dot, token.Ellipsis) {
		if p.advance().Kind == token.Ellipsis {
			imp.Level += 3
		} else {
			imp.Level++
		}
	}
	if !p.at(token.KwImport) {
		imp.Module = p.parseDottedName()
	}
	if _, ok := p.expect(token.KwImport, diag.SynUnexpectedToken); !ok {
		return nil
	}
	if p.at(token.Star) {
		tok := p.advance()
		imp.Names = []*ast.Alias{{Pos: ast.Pos{Sp: tok.Span}, Name: "*"}}
		imp.Sp = p.spanFrom(start)
		return imp
	}
	paren := p.accept(token.LParen)
	for {
		tok, ok := p.expect(token.Name, diag.SynExpectIdentifier)
		if !ok {
			return nil
		}
		alias := &ast.Alias{Name: tok.Text}
		if p.accept(token.KwAs) {
			as, _ := p.expect(token.Name, diag.SynExpectIdentifier)
			alias.AsName = as.Text
		}
		alias.Sp = p.spanFrom(tok.Span)
		imp.Names = append(imp.Names, alias)
		if !p.accept(token.Comma) || (paren && p.at(token.RParen)) {
			break
		}
	}
	if paren {
		p.expect(token.RParen, diag.SynUnclosedParen)
	}
	imp.Sp = p.spanFrom(start)
	return imp
}

func (p *Parser) parseDottedName() string {
	tok, ok := p.expect(token.Name, diag.SynExpectIdentifier)
	if !ok {
		return ""
	}
	name := tok.Text
	for p.at(token.Dot) && p.peekAt(1).Kind == token.Name {
		p.advance()
		name += "." + p.advance().Text
	}
	return name
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.advance().Span
	s := &ast.If{Test: p.parseNamedExprTest()}
	s.Body = p.parseBlock()
	switch p.peek().Kind {
	case token.KwElif:
		s.OrElse = one(p.parseIf())
	case token.KwElse:
		p.advance()
		s.OrElse = p.parseBlock()
	}
	s.Sp = p.spanFrom(start)
	return s
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.advance().Span
	s := &ast.While{Test: p.parseNamedExprTest()}
	s.Body = p.parseBlock()
	if p.accept(token.KwElse) {
		s.OrElse = p.parseBlock()
	}
	s.Sp = p.spanFrom(start)
	return s
}

func (p *Parser) parseFor(start source.Span, isAsync bool) ast.Stmt {
	p.advance()
	s := &ast.For{IsAsync: isAsync, Target: p.parseTargetList()}
	p.checkTarget(s.Target)
	if _, ok := p.expect(token.KwIn, diag.SynUnexpectedToken); !ok {
		return nil
	}
	s.Iter = p.parseTestListStarExpr()
	s.Body = p.parseBlock()
	if p.accept(token.KwElse) {
		s.OrElse = p.parseBlock()
	}
	s.Sp = p.spanFrom(start)
	return s
}

func (p *Parser) parseTry() ast.Stmt {
	start := p.advance().Span
	s := &ast.Try{Body: p.parseBlock()}
	for p.at(token.KwExcept) {
		hStart := p.advance().Span
		h := &ast.ExceptHandler{}
		if !p.at(token.Colon) {
			h.Type = p.parseTest()
			if p.accept(token.KwAs) {
				tok, _ := p.expect(token.Name, diag.SynExpectIdentifier)
				h.Name = tok.Text
			}
		}
		h.Body = p.parseBlock()
		h.Sp = p.spanFrom(hStart)
		s.Handlers = append(s.Handlers, h)
	}
	if p.accept(token.KwElse) {
		s.OrElse = p.parseBlock()
	}
	if p.accept(token.KwFinally) {
		s.FinalBody = p.parseBlock()
	}
	if len(s.Handlers) == 0 && s.FinalBody == nil {
		p.errAt(diag.SynUnexpectedToken, p.peek().Span, "expected 'except' or 'finally' block")
	}
	s.Sp = p.spanFrom(start)
	return s
}

func (p *Parser) parseWith(start source.Span, isAsync bool) ast.Stmt {
	p.advance()
	s := &ast.With{IsAsync: isAsync}
	for {
		item := &ast.WithItem{Context: p.parseTest()}
		if p.accept(token.KwAs) {
			item.Vars = p.parseTarget()
			p.checkTarget(item.Vars)
		}
		s.Items = append(s.Items, item)
		if !p.accept(token.Comma) {
			break
		}
	}
	s.Body = p.parseBlock()
	s.Sp = p.spanFrom(start)
	return s
}

func (p *Parser) parseDecorated() ast.Stmt {
	start := p.peek().Span
	var decorators []ast.Expr
	for p.accept(token.At) {
		decorators = append(decorators, p.parseNamedExprTest())
		p.expect(token.Newline, diag.SynUnexpectedToken)
	}
	switch p.peek().Kind {
	case token.KwDef:
		return p.parseFunctionDef(start, decorators, false)
	case token.KwAsync:
		p.advance()
		return p.parseFunctionDef(start, decorators, true)
	case token.KwClass:
		return p.parseClassDef(start, decorators)
	}
	p.unexpected()
	return nil
}

func (p *Parser) parseFunctionDef(start source.Span, decorators []ast.Expr, isAsync bool) ast.Stmt {
	if _, ok := p.expect(token.KwDef, diag.SynUnexpectedToken); !ok {
		return nil
	}
	name, ok := p.expect(token.Name, diag.SynExpectIdentifier)
	if !ok {
		return nil
	}
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken); !ok {
		return nil
	}
	fn := &ast.FunctionDef{Name: name.Text, Decorators: decorators, IsAsync: isAsync}
	fn.Args = p.parseParams(token.RParen, true)
	if _, ok := p.expect(token.RParen, diag.SynUnclosedParen); !ok {
		return nil
	}
	if p.accept(token.Arrow) {
		fn.Returns = p.parseTest()
	}
	fn.Body = p.parseBlock()
	fn.Sp = p.spanFrom(start)
	return fn
}

func (p *Parser) parseClassDef(start source.Span, decorators []ast.Expr) ast.Stmt {
	p.advance()
	name, ok := p.expect(token.Name, diag.SynExpectIdentifier)
	if !ok {
		return nil
	}
	c := &ast.ClassDef{Name: name.Text, Decorators: decorators}
	if p.accept(token.LParen) {
		c.Bases, c.Keywords = p.parseCallArgs()
		p.expect(token.RParen, diag.SynUnclosedParen)
	}
	c.Body = p.parseBlock()
	c.Sp = p.spanFrom(start)
	return c
}

// parseParams parses a def or lambda parameter list up to end. Annotations
// are only allowed for def.
func (p *Parser) parseParams(end token.Kind, annotated bool) *ast.Arguments {
	args := &ast.Arguments{}
	kwOnly := false
	for !p.at(end) && !p.at(token.EOF) {
		switch {
		case p.at(token.DoubleStar):
			p.advance()
			args.KwArg = p.parseParam(annotated)
		case p.at(token.Star):
			p.advance()
			kwOnly = true
			if p.at(token.Name) {
				args.VarArg = p.parseParam(annotated)
			}
		case p.at(token.Slash):
			// positional-only marker carries no meaning here
			p.advance()
		default:
			param := p.parseParam(annotated)
			if param == nil {
				return args
			}
			var def ast.Expr
			if p.accept(token.Assign) {
				def = p.parseTest()
			}
			if kwOnly {
				args.KwOnly = append(args.KwOnly, param)
				args.KwDefaults = append(args.KwDefaults, def)
			} else {
				args.Args = append(args.Args, param)
				if def != nil {
					args.Defaults = append(args.Defaults, def)
				} else if len(args.Defaults) > 0 {
					p.errAt(diag.SynUnexpectedToken, param.Sp, "non-default argument follows default argument")
				}
			}
		}
		if !p.accept(token.Comma) {
			break
		}
	}
	return args
}

func (p *Parser) parseParam(annotated bool) *ast.Arg {
	tok, ok := p.expect(token.Name, diag.SynExpectIdentifier)
	if !ok {
		return nil
	}
	arg := &ast.Arg{Name: tok.Text}
	if annotated && p.accept(token.Colon) {
		arg.Annotation = p.parseTest()
	}
	arg.Sp = p.spanFrom(tok.Span)
	return arg
}
