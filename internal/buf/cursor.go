package buf

import (
	"errors"
	"fmt"
)

// ErrShortRead is recorded by a Cursor when a read runs past the end of its
// buffer.
var ErrShortRead = errors.New("buf: read past end of buffer")

// Cursor walks forward through a byte slice. It never seeks backwards.
//
// The first failed read records an error; every read after that returns zero
// values, so callers can decode a whole record and check Err once.
type Cursor struct {
	b   []byte
	off int
	err error
}

// NewCursor returns a cursor positioned at off.
func NewCursor(b []byte, off int) *Cursor {
	c := &Cursor{b: b, off: off}
	if off < 0 || off > len(b) {
		c.err = fmt.Errorf("%w: start %d, len %d", ErrShortRead, off, len(b))
	}
	return c
}

// Offset returns the absolute position of the next read.
func (c *Cursor) Offset() int { return c.off }

// Err returns the first read failure, if any.
func (c *Cursor) Err() error { return c.err }

// Remaining reports how many bytes are left.
func (c *Cursor) Remaining() int {
	if c.err != nil {
		return 0
	}
	return len(c.b) - c.off
}

// Bytes returns the next n bytes as a sub-slice of the underlying buffer.
func (c *Cursor) Bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	s, ok := Slice(c.b, c.off, n)
	if !ok {
		c.err = fmt.Errorf("%w: need %d at %d, len %d", ErrShortRead, n, c.off, len(c.b))
		return nil
	}
	c.off += n
	return s
}

// Skip advances past n bytes.
func (c *Cursor) Skip(n int) { c.Bytes(n) }

// U16 reads a little-endian uint16.
func (c *Cursor) U16() uint16 { return U16LE(c.Bytes(2)) }

// U32 reads a little-endian uint32.
func (c *Cursor) U32() uint32 { return U32LE(c.Bytes(4)) }

// U64 reads a little-endian uint64.
func (c *Cursor) U64() uint64 { return U64LE(c.Bytes(8)) }
