package token

// Kind is the lexical category of a token.
type Kind uint8

const (
	Invalid Kind = iota
	EOF
	Newline
	Indent
	Dedent

	Name
	Int
	Float
	String  // plain, raw or byte string; Text holds the decoded value
	FString // f-string; Text holds the raw body between quotes

	// keywords
	KwFalse
	KwNone
	KwTrue
	KwAnd
	KwAs
	KwAssert
	KwAsync
	KwAwait
	KwBreak
	KwClass
	KwContinue
	KwDef
	KwDel
	KwElif
	KwElse
	KwExcept
	KwFinally
	KwFor
	KwFrom
	KwGlobal
	KwIf
	KwImport
	KwIn
	KwIs
	KwLambda
	KwNonlocal
	KwNot
	KwOr
	KwPass
	KwRaise
	KwReturn
	KwTry
	KwWhile
	KwWith
	KwYield

	// operators and delimiters
	Plus        // +
	Minus       // -
	Star        // *
	DoubleStar  // **
	Slash       // /
	DoubleSlash // //
	Percent     // %
	At          // @
	Amp         // &
	Pipe        // |
	Caret       // ^
	Tilde       // ~
	Shl         // <<
	Shr         // >>
	Lt          // <
	Gt          // >
	LtEq        // <=
	GtEq        // >=
	EqEq        // ==
	NotEq       // !=
	LParen      // (
	RParen      // )
	LBracket    // [
	RBracket    // ]
	LBrace      // {
	RBrace      // }
	Comma       // ,
	Colon       // :
	Dot         // .
	Semicolon   // ;
	Assign      // =
	Arrow       // ->
	Walrus      // :=
	Ellipsis    // ...

	PlusAssign        // +=
	MinusAssign       // -=
	StarAssign        // *=
	SlashAssign       // /=
	DoubleSlashAssign // //=
	PercentAssign     // %=
	DoubleStarAssign  // **=
	AmpAssign         // &=
	PipeAssign        // |=
	CaretAssign       // ^=
	ShlAssign         // <<=
	ShrAssign         // >>=
	AtAssign          // @=
)

var keywords = map[string]Kind{
	"False": KwFalse, "None": KwNone, "True": KwTrue,
	"and": KwAnd, "as": KwAs, "assert": KwAssert, "async": KwAsync,
	"await": KwAwait, "break": KwBreak, "class": KwClass,
	"continue": KwContinue, "def": KwDef, "del": KwDel, "elif": KwElif,
	"else": KwElse, "except": KwExcept, "finally": KwFinally, "for": KwFor,
	"from": KwFrom, "global": KwGlobal, "if": KwIf, "import": KwImport,
	"in": KwIn, "is": KwIs, "lambda": KwLambda, "nonlocal": KwNonlocal,
	"not": KwNot, "or": KwOr, "pass": KwPass, "raise": KwRaise,
	"return": KwReturn, "try": KwTry, "while": KwWhile, "with": KwWith,
	"yield": KwYield,
}

// LookupKeyword returns the keyword kind for ident, if any.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

var kindNames = [...]string{
	Invalid: "invalid", EOF: "end of file", Newline: "newline",
	Indent: "indent", Dedent: "dedent", Name: "name", Int: "integer",
	Float: "float", String: "string", FString: "f-string",
	Plus: "+", Minus: "-", Star: "*", DoubleStar: "**", Slash: "/",
	DoubleSlash: "//", Percent: "%", At: "@", Amp: "&", Pipe: "|",
	Caret: "^", Tilde: "~", Shl: "<<", Shr: ">>", Lt: "<", Gt: ">",
	LtEq: "<=", GtEq: ">=", EqEq: "==", NotEq: "!=", LParen: "(",
	RParen: ")", LBracket: "[", RBracket: "]", LBrace: "{", RBrace: "}",
	Comma: ",", Colon: ":", Dot: ".", Semicolon: ";", Assign: "=",
	Arrow: "->", Walrus: ":=", Ellipsis: "...",
	PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=",
	SlashAssign: "/=", DoubleSlashAssign: "//=", PercentAssign: "%=",
	DoubleStarAssign: "**=", AmpAssign: "&=", PipeAssign: "|=",
	CaretAssign: "^=", ShlAssign: "<<=", ShrAssign: ">>=", AtAssign: "@=",
}

func (k Kind) String() string {
	if k >= KwFalse && k <= KwYield {
		for s, kw := range keywords {
			if kw == k {
				return s
			}
		}
	}
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool { return k >= KwFalse && k <= KwYield }

// IsAugAssign reports whether k is one of the op= operators.
func (k Kind) IsAugAssign() bool { return k >= PlusAssign && k <= AtAssign }

// AugBase maps an augmented assignment to its binary operator.
func (k Kind) AugBase() Kind {
	switch k {
	case PlusAssign:
		return Plus
	case MinusAssign:
		return Minus
	case StarAssign:
		return Star
	case SlashAssign:
		return Slash
	case DoubleSlashAssign:
		return DoubleSlash
	case PercentAssign:
		return Percent
	case DoubleStarAssign:
		return DoubleStar
	case AmpAssign:
		return Amp
	case PipeAssign:
		return Pipe
	case CaretAssign:
		return Caret
	case ShlAssign:
		return Shl
	case ShrAssign:
		return Shr
	case AtAssign:
		return At
	}
	return Invalid
}
