package token

import (
	"fmt"

	"pyrust/internal/source"
)

// Token is one lexeme. Text is the source slice except for String, where it
// holds the decoded literal value.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
	Raw  bool // FString only: escapes are not processed
}

func (t Token) Is(k Kind) bool { return t.Kind == k }

func (t Token) String() string {
	switch t.Kind {
	case Name, Int, Float:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Text)
	case String, FString:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
	}
	return t.Kind.String()
}
