package rust

import (
	"fmt"
	"strings"
)

// SyntaxError locates a structural defect in generated text.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// placeholders never appear in well-formed output.
var placeholders = []string{"/* unsupported", "todo!(\"pyrust", "<unknown>"}

// Validate checks printed source for balanced delimiters, terminated
// strings and comments, terminated let and use statements and leftover
// placeholder markers. It is a token-level check, not a parser.
func Validate(src string) error {
	v := &validator{src: src, line: 1, col: 1}
	return v.run()
}

type open struct {
	ch        byte
	line, col int
}

type validator struct {
	src       string
	pos       int
	line, col int
	stack     []open
	// pending is the position of a let or use awaiting its semicolon,
	// together with the stack depth it started at.
	pending      *open
	pendingDepth int
	lastWord     string
}

func (v *validator) errorf(line, col int, format string, args ...any) error {
	return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func (v *validator) advance() byte {
	c := v.src[v.pos]
	v.pos++
	if c == '\n' {
		v.line++
		v.col = 1
	} else {
		v.col++
	}
	return c
}

func (v *validator) peek(off int) byte {
	if v.pos+off < len(v.src) {
		return v.src[v.pos+off]
	}
	return 0
}

func (v *validator) run() error {
	for _, ph := range placeholders {
		if i := strings.Index(v.src, ph); i >= 0 {
			line := strings.Count(v.src[:i], "\n") + 1
			col := i - strings.LastIndex(v.src[:i], "\n")
			return v.errorf(line, col, "placeholder %q in output", ph)
		}
	}
	for v.pos < len(v.src) {
		c := v.peek(0)
		line, col := v.line, v.col
		if !isIdentChar(c) && c != ' ' && c != '\t' && c != '\n' {
			v.lastWord = ""
		}
		switch {
		case c == '/' && v.peek(1) == '/':
			for v.pos < len(v.src) && v.peek(0) != '\n' {
				v.advance()
			}
		case c == '/' && v.peek(1) == '*':
			if err := v.blockComment(); err != nil {
				return err
			}
		case c == '"':
			if err := v.str(); err != nil {
				return err
			}
		case c == 'r' && (v.peek(1) == '"' || (v.peek(1) == '#' && v.peek(2) != 0 && (v.peek(2) == '"' || v.peek(2) == '#'))) && !v.identBefore():
			if err := v.rawStr(); err != nil {
				return err
			}
		case c == '\'':
			if err := v.quote(); err != nil {
				return err
			}
		case c == '(' || c == '[' || c == '{':
			v.stack = append(v.stack, open{ch: c, line: line, col: col})
			v.advance()
		case c == ')' || c == ']' || c == '}':
			if len(v.stack) == 0 {
				return v.errorf(line, col, "unexpected %q", c)
			}
			top := v.stack[len(v.stack)-1]
			if closer(top.ch) != c {
				return v.errorf(line, col, "%q closes %q opened at %d:%d", c, top.ch, top.line, top.col)
			}
			v.stack = v.stack[:len(v.stack)-1]
			if v.pending != nil && len(v.stack) < v.pendingDepth {
				return v.errorf(v.pending.line, v.pending.col, "unterminated statement")
			}
			v.advance()
		case c == ';':
			if v.pending != nil && len(v.stack) == v.pendingDepth {
				v.pending = nil
			}
			v.advance()
		case isIdentStart(c):
			word := v.word()
			prev := v.lastWord
			v.lastWord = word
			if prev == "if" || prev == "while" {
				continue
			}
			if (word == "let" || word == "use") && v.pending == nil {
				v.pending = &open{line: line, col: col}
				v.pendingDepth = len(v.stack)
			}
		default:
			v.advance()
		}
	}
	if len(v.stack) > 0 {
		top := v.stack[len(v.stack)-1]
		return v.errorf(top.line, top.col, "unclosed %q", top.ch)
	}
	if v.pending != nil {
		return v.errorf(v.pending.line, v.pending.col, "unterminated statement")
	}
	return nil
}

func closer(c byte) byte {
	switch c {
	case '(':
		return ')'
	case '[':
		return ']'
	}
	return '}'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (v *validator) identBefore() bool {
	return v.pos > 0 && isIdentChar(v.src[v.pos-1])
}

func (v *validator) word() string {
	start := v.pos
	for v.pos < len(v.src) && isIdentChar(v.peek(0)) {
		v.advance()
	}
	// r#ident
	if v.pos-start == 1 && v.src[start] == 'r' && v.peek(0) == '#' && isIdentStart(v.peek(1)) {
		v.advance()
		for v.pos < len(v.src) && isIdentChar(v.peek(0)) {
			v.advance()
		}
	}
	return v.src[start:v.pos]
}

func (v *validator) blockComment() error {
	line, col := v.line, v.col
	depth := 0
	for v.pos < len(v.src) {
		switch {
		case v.peek(0) == '/' && v.peek(1) == '*':
			depth++
			v.advance()
			v.advance()
		case v.peek(0) == '*' && v.peek(1) == '/':
			depth--
			v.advance()
			v.advance()
			if depth == 0 {
				return nil
			}
		default:
			v.advance()
		}
	}
	return v.errorf(line, col, "unterminated block comment")
}

func (v *validator) str() error {
	line, col := v.line, v.col
	v.advance()
	for v.pos < len(v.src) {
		switch v.advance() {
		case '\\':
			if v.pos < len(v.src) {
				v.advance()
			}
		case '"':
			return nil
		}
	}
	return v.errorf(line, col, "unterminated string literal")
}

func (v *validator) rawStr() error {
	line, col := v.line, v.col
	v.advance()
	hashes := 0
	for v.peek(0) == '#' {
		hashes++
		v.advance()
	}
	if v.peek(0) != '"' {
		return v.errorf(line, col, "malformed raw string")
	}
	v.advance()
	end := "\"" + strings.Repeat("#", hashes)
	i := strings.Index(v.src[v.pos:], end)
	if i < 0 {
		return v.errorf(line, col, "unterminated raw string")
	}
	for range i + len(end) {
		v.advance()
	}
	return nil
}

// quote consumes a char literal or a lifetime.
func (v *validator) quote() error {
	line, col := v.line, v.col
	v.advance()
	switch {
	case v.peek(0) == '\\':
		v.advance()
		for v.pos < len(v.src) && v.peek(0) != '\'' && v.peek(0) != '\n' {
			v.advance()
		}
		if v.peek(0) != '\'' {
			return v.errorf(line, col, "unterminated char literal")
		}
		v.advance()
	case v.peek(1) == '\'':
		v.advance()
		v.advance()
	case isIdentStart(v.peek(0)):
		for v.pos < len(v.src) && isIdentChar(v.peek(0)) {
			v.advance()
		}
	default:
		// multi-byte char literal
		for v.pos < len(v.src) && v.peek(0) != '\'' && v.peek(0) != '\n' {
			v.advance()
		}
		if v.peek(0) != '\'' {
			return v.errorf(line, col, "unterminated char literal")
		}
		v.advance()
	}
	return nil
}
