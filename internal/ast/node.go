// Package ast is the Python syntax tree handed to the transpiler core. Every
// node carries the source span it was parsed from.
package ast

import "pyrust/internal/source"

type Node interface {
	Span() source.Span
}

type Expr interface {
	Node
	exprNode()
}

type Stmt interface {
	Node
	stmtNode()
}

// Pos is embedded by every node.
type Pos struct {
	Sp source.Span
}

func (p Pos) Span() source.Span { return p.Sp }

// Module is one parsed source file.
type Module struct {
	Pos
	File source.FileID
	Path string
	Body []Stmt
}
