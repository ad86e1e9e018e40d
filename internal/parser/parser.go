// Package parser builds an ast.Module from Python source. It is a
// hand-written recursive-descent parser over the lexer's token stream.
package parser

import (
	"fmt"
	"slices"

	"pyrust/internal/ast"
	"pyrust/internal/diag"
	"pyrust/internal/lexer"
	"pyrust/internal/source"
	"pyrust/internal/token"
)

type Options struct {
	// MaxErrors stops parsing after this many errors; 0 means unlimited.
	MaxErrors int
	// Reporter receives diagnostics in addition to the result bag.
	Reporter diag.Reporter
}

type Result struct {
	Module *ast.Module
	Bag    *diag.Bag
}

type Parser struct {
	file   *source.File
	toks   []token.Token
	pos    int
	bag    *diag.Bag
	rep    diag.Reporter
	opts   Options
	errors int
}

// errBail aborts parsing once MaxErrors is reached.
type errBail struct{}

// ParseFile lexes and parses one file of fs.
func ParseFile(fs *source.FileSet, id source.FileID, opts Options) Result {
	f := fs.Get(id)
	if f == nil {
		bag := diag.NewBag(1)
		bag.Add(diag.NewError(diag.DriverIO, source.Span{File: id}, fmt.Sprintf("unknown file id %d", id)))
		return Result{Bag: bag}
	}
	p := newParser(f, opts)
	p.toks = lexer.Tokenize(f, p.rep)
	mod := &ast.Module{File: id, Path: f.Path}
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(errBail); !ok {
					panic(r)
				}
			}
		}()
		mod.Body = p.parseStmtsUntil(token.EOF)
	}()
	end := uint32(len(f.Content)) //nolint:gosec // bounded by FileSet.Add
	mod.Sp = source.Span{File: id, Start: 0, End: end}
	return Result{Module: mod, Bag: p.bag}
}

// ParseString parses src registered under name in fs.
func ParseString(fs *source.FileSet, name, src string, opts Options) Result {
	id := fs.AddVirtual(name, []byte(src))
	return ParseFile(fs, id, opts)
}

func newParser(f *source.File, opts Options) *Parser {
	bag := diag.NewBag(0)
	var rep diag.Reporter = diag.BagReporter{Bag: bag}
	if opts.Reporter != nil {
		rep = fanout{rep, opts.Reporter}
	}
	return &Parser{file: f, bag: bag, rep: rep, opts: opts}
}

type fanout []diag.Reporter

func (f fanout) Report(d diag.Diagnostic) {
	for _, r := range f {
		r.Report(d)
	}
}

func (p *Parser) peek() token.Token { return p.toks[p.pos] }

func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) at(k token.Kind) bool { return p.toks[p.pos].Kind == k }

func (p *Parser) atAny(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.toks[p.pos].Kind)
}

func (p *Parser) advance() token.Token {
	tok := p.toks[p.pos]
	if tok.Kind != token.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) accept(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) prevSpan() source.Span {
	if p.pos == 0 {
		return p.toks[0].Span
	}
	return p.toks[p.pos-1].Span
}

// spanFrom covers from start to the end of the previous token.
func (p *Parser) spanFrom(start source.Span) source.Span {
	return start.Cover(p.prevSpan())
}

func (p *Parser) expect(k token.Kind, code diag.Code) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	tok := p.peek()
	p.errAt(code, tok.Span, fmt.Sprintf("expected %s, found %s", k, tok.Kind))
	return tok, false
}

func (p *Parser) errAt(code diag.Code, sp source.Span, msg string) {
	diag.ReportError(p.rep, code, sp, msg).Emit()
	p.errors++
	if p.opts.MaxErrors > 0 && p.errors >= p.opts.MaxErrors {
		panic(errBail{})
	}
}

func (p *Parser) unexpected() {
	tok := p.peek()
	if tok.Kind == token.EOF {
		p.errAt(diag.SynUnexpectedEOF, tok.Span, "unexpected end of file")
		return
	}
	p.errAt(diag.SynUnexpectedToken, tok.Span, fmt.Sprintf("unexpected %s", tok))
}

// resync skips to the start of the next logical line at the current block
// level.
func (p *Parser) resync() {
	depth := 0
	for !p.at(token.EOF) {
		switch p.advance().Kind {
		case token.Indent:
			depth++
		case token.Dedent:
			depth--
			if depth < 0 {
				p.pos--
				return
			}
		case token.Newline:
			if depth <= 0 && !p.at(token.Indent) {
				return
			}
		}
	}
}
