package format

import (
	"fmt"

	"github.com/joshuapare/shimkit/internal/buf"
)

// Cell represents a single allocation (free or in-use) within an HBIN.
//
// Cell header layout (little-endian):
//
//	Offset  Size  Description
//	0x00    4     Signed size. Negative => allocated, positive => free.
//	              The absolute value includes the 4-byte header.
//	0x04    ...   Payload. First two bytes form the record tag when allocated.
type Cell struct {
	Offset int  // relative to the first HBIN
	Size   int  // total size including header
	Free   bool // true when the cell is marked as free
	Data   []byte
}

// Tag returns the two-byte record tag, or "" for short payloads.
func (c Cell) Tag() string {
	if len(c.Data) < SignatureSize {
		return ""
	}
	return string(c.Data[:SignatureSize])
}

// ParseCell decodes the cell at off within the hive data (the bytes after
// the base block). The payload aliases data.
func ParseCell(data []byte, off int) (Cell, error) {
	head, ok := buf.Slice(data, off, CellHeaderSize)
	if !ok {
		return Cell{}, fmt.Errorf("cell 0x%x: %w", off, ErrTruncated)
	}
	raw := buf.I32LE(head)
	if raw == 0 {
		return Cell{}, fmt.Errorf("cell 0x%x: zero length", off)
	}
	allocated := raw < 0
	size := int(raw)
	if allocated {
		size = -size
	}
	if size < CellHeaderSize {
		return Cell{}, fmt.Errorf("cell 0x%x: declared size too small (%d)", off, size)
	}
	payload, ok := buf.Slice(data, off+CellHeaderSize, size-CellHeaderSize)
	if !ok {
		return Cell{}, fmt.Errorf("cell 0x%x: %w", off, ErrTruncated)
	}
	return Cell{Offset: off, Size: size, Free: !allocated, Data: payload}, nil
}

// Payload returns the payload of the allocated cell at off.
func Payload(data []byte, off uint32) ([]byte, error) {
	if off == InvalidOffset {
		return nil, fmt.Errorf("cell: %w", ErrNotFound)
	}
	c, err := ParseCell(data, int(off))
	if err != nil {
		return nil, err
	}
	if c.Free {
		return nil, fmt.Errorf("cell 0x%x: %w", off, ErrFreeCell)
	}
	return c.Data, nil
}
