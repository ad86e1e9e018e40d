// Package fuzztests houses Go fuzz harnesses for the pyrust pipeline. The
// lexer and parser must accept arbitrary bytes without panicking or hanging,
// and every module that parses must either transpile to well-formed Rust or
// fail with a diagnostic.
package fuzztests
