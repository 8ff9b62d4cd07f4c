package shim

import (
	"bytes"
	"errors"

	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/pkg/types"
)

// Windows 10 header:
//
//	Offset  Size  Field
//	0x00    4     Header size (0x30, or 0x34 from the Creators Update on)
//	0x24    4     Entry count (0x30 header)
//	0x28    4     Entry count (0x34 header)
//
// Records follow the header:
//
//	Size  Field
//	4     "10ts"
//	4     Reserved
//	4     Record data size
//	2     Path length in bytes
//	n     Path, UTF-16LE
//	8     Last modified (FILETIME)
//	4     Data size
//	n     Data; the last 4 bytes are 1 when the program executed
//
// There are no insert flags.

var errShortData = errors.New("data too short for executed flag")

func win10Records(b []byte, f Format) records {
	return func(yield func(types.CacheEntry, error) bool) {
		c := buf.NewCursor(b, f.RecordsOffset)
		for pos := 0; ; pos++ {
			start := c.Offset()
			if sig := c.Bytes(tagSize); c.Err() != nil || string(sig) != TagWin10 {
				return
			}
			c.Skip(4)
			c.U32()
			size := int(c.U16())
			rawPath := c.Bytes(size)
			raw := c.U64()
			data := c.Bytes(int(c.U32()))
			if err := c.Err(); err != nil {
				yield(types.CacheEntry{}, corrupt(f.Variant, pos, start, err))
				return
			}
			if len(data) < 4 {
				yield(types.CacheEntry{}, corrupt(f.Variant, pos, start, errShortData))
				return
			}

			path, err := decodePath(rawPath)
			if err != nil {
				yield(types.CacheEntry{}, corrupt(f.Variant, pos, start, err))
				return
			}
			ts, err := Timestamp(raw)
			if err != nil {
				yield(types.CacheEntry{}, corrupt(f.Variant, pos, start, err))
				return
			}

			exec := types.ExecutedNo
			if buf.I32LE(data[len(data)-4:]) == 1 {
				exec = types.ExecutedYes
			}

			e := types.CacheEntry{
				Path:            path,
				PathSize:        size,
				LastModified:    ts,
				LastModifiedRaw: raw,
				Executed:        exec,
				OpaqueData:      bytes.Clone(data),
				RecordSize:      c.Offset() - start,
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}
