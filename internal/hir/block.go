package hir

import "pyrust/internal/source"

// Block represents a sequence of statements in HIR.
type Block struct {
	Stmts []*Stmt
	Span  source.Span
}

// IsEmpty returns true if the block has no statements.
func (b *Block) IsEmpty() bool {
	return b == nil || len(b.Stmts) == 0
}

// LastStmt returns the last statement in the block, or nil if empty.
func (b *Block) LastStmt() *Stmt {
	if b.IsEmpty() {
		return nil
	}
	return b.Stmts[len(b.Stmts)-1]
}

// Terminates reports whether control never falls off the end of b.
func (b *Block) Terminates() bool {
	last := b.LastStmt()
	if last == nil {
		return false
	}
	switch last.Kind {
	case StmtReturn, StmtRaise, StmtBreak, StmtContinue:
		return true
	case StmtIf:
		d := last.Data.(IfData)
		return d.Else != nil && d.Then.Terminates() && d.Else.Terminates()
	}
	return false
}
