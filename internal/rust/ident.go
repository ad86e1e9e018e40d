package rust

var keywords = map[string]bool{
	"as": true, "async": true, "await": true, "box": true, "break": true, "const": true,
	"continue": true, "dyn": true, "else": true, "enum": true, "extern": true, "false": true,
	"fn": true, "for": true, "if": true, "impl": true, "in": true, "let": true, "loop": true,
	"match": true, "mod": true, "move": true, "mut": true, "pub": true, "ref": true,
	"return": true, "static": true, "struct": true, "trait": true, "true": true, "try": true,
	"type": true, "unsafe": true, "use": true, "where": true, "while": true, "yield": true,
	"abstract": true, "become": true, "do": true, "final": true, "macro": true,
	"override": true, "priv": true, "typeof": true, "unsized": true, "virtual": true,
	"gen": true,
}

// These cannot be raw identifiers.
var reserved = map[string]bool{"self": true, "Self": true, "super": true, "crate": true, "_": true}

// EscapeIdent makes a source-level name usable as a Rust identifier.
func EscapeIdent(name string) string {
	switch {
	case reserved[name]:
		return name + "_"
	case keywords[name]:
		return "r#" + name
	}
	return name
}

// IsKeyword reports whether name is a strict or reserved Rust keyword.
func IsKeyword(name string) bool {
	return keywords[name] || reserved[name]
}
