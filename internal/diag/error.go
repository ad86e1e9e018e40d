package diag

import (
	"errors"
	"fmt"

	"pyrust/internal/source"
)

// Error is a fatal diagnostic returned through the error interface.
type Error struct {
	Diag Diagnostic
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Diag.Code.ID(), e.Diag.Code.Kind(), e.Diag.Message)
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, span source.Span, format string, args ...any) *Error {
	return &Error{Diag: NewError(code, span, fmt.Sprintf(format, args...))}
}

// Unsupported reports a construct the transpiler cannot express.
func Unsupported(span source.Span, construct string) *Error {
	return Errorf(UnsupportedConstruct, span, "unsupported construct: %s", construct)
}

// AsDiagnostic extracts the diagnostic carried by err. Errors that do not
// wrap an *Error are reported under fallback.
func AsDiagnostic(err error, fallback Code) *Diagnostic {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		d := de.Diag
		return &d
	}
	d := NewError(fallback, source.Span{}, err.Error())
	return &d
}
