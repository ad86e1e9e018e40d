package lexer

import (
	"fmt"

	"fortio.org/safecast"

	"pyrust/internal/source"
)

// Cursor is a byte position inside one file.
type Cursor struct {
	File  *source.File
	Off   uint32
	limit uint32
}

func NewCursor(f *source.File) Cursor {
	limit, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return Cursor{File: f, limit: limit}
}

func (c *Cursor) EOF() bool { return c.Off >= c.limit }

// Peek returns the current byte or 0 at EOF.
func (c *Cursor) Peek() byte {
	if c.EOF() {
		return 0
	}
	return c.File.Content[c.Off]
}

// PeekAt returns the byte n positions ahead, or 0.
func (c *Cursor) PeekAt(n uint32) byte {
	if c.Off+n >= c.limit {
		return 0
	}
	return c.File.Content[c.Off+n]
}

// HasPrefix reports whether the remaining input starts with s.
func (c *Cursor) HasPrefix(s string) bool {
	if uint64(c.Off)+uint64(len(s)) > uint64(c.limit) {
		return false
	}
	return string(c.File.Content[c.Off:c.Off+uint32(len(s))]) == s //nolint:gosec // bounded above
}

func (c *Cursor) Bump() byte {
	if c.EOF() {
		return 0
	}
	b := c.File.Content[c.Off]
	c.Off++
	return b
}

func (c *Cursor) BumpN(n uint32) {
	c.Off += n
	if c.Off > c.limit {
		c.Off = c.limit
	}
}

func (c *Cursor) Mark() uint32 { return c.Off }

func (c *Cursor) SpanFrom(start uint32) source.Span {
	return source.Span{File: c.File.ID, Start: start, End: c.Off}
}

func (c *Cursor) Slice(start uint32) string {
	return string(c.File.Content[start:c.Off])
}
