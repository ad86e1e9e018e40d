// Package diag defines the diagnostic model shared by every transpiler phase.
//
// A Diagnostic carries a severity, a stable numeric Code (rendered as
// "PYRnnnn"), a message, a primary source span and optional notes. Phases
// emit diagnostics through a Reporter so they stay decoupled from storage;
// BagReporter collects them into a Bag that can be sorted and deduplicated.
//
// Fatal conditions are surfaced to callers as *Error, which wraps exactly one
// Diagnostic and works with errors.As. Rendering lives in internal/diagfmt.
package diag
