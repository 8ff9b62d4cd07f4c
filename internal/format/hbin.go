package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/shimkit/internal/buf"
)

// HBIN describes a hive bin. Each HBIN begins with a 0x20-byte header:
//
//	Offset  Size  Field
//	0x00    4     'h' 'b' 'i' 'n'
//	0x04    4     Offset of this HBIN relative to the first one
//	0x08    4     Size of HBIN, multiple of 0x1000
//	0x0C    16    Reserved / timestamp
//	0x1C    4     Spare
type HBIN struct {
	FileOffset uint32
	Size       uint32
}

// NextHBIN validates the HBIN header located at off within the hive data
// (the bytes after the base block) and returns it with the offset of the
// next HBIN.
func NextHBIN(data []byte, off int) (HBIN, int, error) {
	head, ok := buf.Slice(data, off, HBINHeaderSize)
	if !ok {
		return HBIN{}, 0, fmt.Errorf("hbin: %w", ErrTruncated)
	}
	if !bytes.Equal(head[:4], HBINSignature) {
		return HBIN{}, 0, fmt.Errorf("hbin at 0x%x: %w", off, ErrSignatureMismatch)
	}
	size := buf.U32LE(head[HBINSizeOffset:])
	if size == 0 || size%HBINAlignment != 0 {
		return HBIN{}, 0, fmt.Errorf("hbin at 0x%x: invalid size %d", off, size)
	}
	next := off + int(size)
	if next > len(data) {
		return HBIN{}, 0, fmt.Errorf("hbin at 0x%x: %w", off, ErrTruncated)
	}
	return HBIN{FileOffset: buf.U32LE(head[HBINFileOffsetField:]), Size: size}, next, nil
}

// CountHBINs walks the bins from the start of data and returns how many
// are well formed, stopping at the first bad one.
func CountHBINs(data []byte) int {
	var n, off int
	for off < len(data) {
		_, next, err := NextHBIN(data, off)
		if err != nil {
			break
		}
		n++
		off = next
	}
	return n
}
