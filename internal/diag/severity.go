package diag

// Severity orders diagnostics. Only SevError stops a file from being
// translated; warnings and notes ride along with the generated Rust.
type Severity uint8

const (
	SevNote Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]struct{ upper, level string }{
	SevNote:    {"NOTE", "note"},
	SevWarning: {"WARNING", "warning"},
	SevError:   {"ERROR", "error"},
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s].upper
	}
	return "UNKNOWN"
}

// Level is the lower-case name rustc and SARIF use for the severity.
func (s Severity) Level() string {
	if int(s) < len(severityNames) {
		return severityNames[s].level
	}
	return "note"
}
