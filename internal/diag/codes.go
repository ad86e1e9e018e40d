package diag

import "fmt"

// Code is a compact diagnostic identifier. The thousands digit groups codes
// by phase: 1 front end and bridge, 2 types, 3 ownership, 4 code generation,
// 5 verification, 6 lexer, 7 parser, 8 driver.
type Code uint16

const (
	UnknownCode Code = 0

	// Front end and bridge.
	UnsupportedConstruct Code = 1001
	ConversionError      Code = 1002
	BridgeArityMismatch  Code = 1003
	BridgeBadTarget      Code = 1004

	// Types.
	TypeMismatch        Code = 2001
	TypeUnknownFallback Code = 2002
	TypeBadAnnotation   Code = 2003

	// Ownership and lifetimes.
	BorrowAliasApprox   Code = 3001
	LifetimeForcedOwned Code = 3002

	// Code generation.
	CodeGenError       Code = 4001
	CodeGenInvalidRust Code = 4002

	// Verification.
	VerificationFailure Code = 5001

	// Lexer.
	LexUnknownChar        Code = 6001
	LexUnterminatedString Code = 6002
	LexBadNumber          Code = 6003
	LexBadIndent          Code = 6004
	LexUnbalancedBracket  Code = 6005

	// Parser.
	SynUnexpectedToken  Code = 7001
	SynExpectIdentifier Code = 7002
	SynExpectColon      Code = 7003
	SynExpectIndent     Code = 7004
	SynUnclosedParen    Code = 7005
	SynBadAssignTarget  Code = 7006
	SynUnexpectedEOF    Code = 7007

	// Driver and configuration.
	DriverBadConfig Code = 8001
	DriverIO        Code = 8002
)

var codeTitles = map[Code]string{
	UnknownCode:           "unknown error",
	UnsupportedConstruct:  "unsupported construct",
	ConversionError:       "conversion error",
	BridgeArityMismatch:   "assignment arity mismatch",
	BridgeBadTarget:       "invalid assignment target",
	TypeMismatch:          "type mismatch",
	TypeUnknownFallback:   "type could not be inferred",
	TypeBadAnnotation:     "malformed type annotation",
	BorrowAliasApprox:     "aliased mutable borrow approximated by ownership",
	LifetimeForcedOwned:   "lifetime conflict resolved by ownership",
	CodeGenError:          "code generation error",
	CodeGenInvalidRust:    "generated source is malformed",
	VerificationFailure:   "verification failure",
	LexUnknownChar:        "unknown character",
	LexUnterminatedString: "unterminated string literal",
	LexBadNumber:          "malformed number literal",
	LexBadIndent:          "inconsistent indentation",
	LexUnbalancedBracket:  "unbalanced bracket",
	SynUnexpectedToken:    "unexpected token",
	SynExpectIdentifier:   "expected identifier",
	SynExpectColon:        "expected ':'",
	SynExpectIndent:       "expected an indented block",
	SynUnclosedParen:      "unclosed delimiter",
	SynBadAssignTarget:    "cannot assign to expression",
	SynUnexpectedEOF:      "unexpected end of file",
	DriverBadConfig:       "invalid configuration",
	DriverIO:              "i/o error",
}

// ID returns the stable textual form, e.g. "PYR1001".
func (c Code) ID() string {
	return fmt.Sprintf("PYR%04d", uint16(c))
}

// Title returns a short human description of the code.
func (c Code) Title() string {
	if t, ok := codeTitles[c]; ok {
		return t
	}
	return codeTitles[UnknownCode]
}

func (c Code) String() string {
	return c.ID()
}

// Kind names the error family a code belongs to.
func (c Code) Kind() string {
	switch {
	case c == UnsupportedConstruct:
		return "UnsupportedConstruct"
	case c >= 1000 && c < 2000:
		return "ConversionError"
	case c >= 2000 && c < 3000:
		return "TypeMismatch"
	case c >= 4000 && c < 5000:
		return "CodeGenError"
	case c >= 5000 && c < 6000:
		return "VerificationFailure"
	case c >= 6000 && c < 8000:
		return "SyntaxError"
	}
	return "Error"
}
