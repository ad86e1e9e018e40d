// Package types holds both type universes of the transpiler: Type, the
// Python-side type attached to HIR, and RustType, the target-side type the
// code generator prints. Map is the single bridge between them.
package types
