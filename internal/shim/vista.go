package shim

import (
	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/pkg/types"
)

// Vista / Server 2003 / Server 2008. The header is the marker and the entry
// count; records follow at offset 8. Paths live elsewhere in the buffer and
// are referenced by absolute offset.
//
// 32-bit record (24 bytes):
//
//	Offset  Size  Field
//	0x00    2     Path length in bytes
//	0x02    2     Max path length (ignored)
//	0x04    4     Path offset
//	0x08    8     Last modified (FILETIME)
//	0x10    4     Insert flags
//	0x14    4     Shim flags (ignored)
//
// 64-bit record (32 bytes):
//
//	Offset  Size  Field
//	0x00    2     Path length in bytes
//	0x02    2     Max path length (ignored)
//	0x04    4     Padding
//	0x08    8     Path offset
//	0x10    8     Last modified (FILETIME)
//	0x18    4     Insert flags
//	0x1C    4     Shim flags (ignored)
const vistaRecordsOffset = 0x08

func vistaRecords(b []byte, f Format, is32 bool) records {
	return func(yield func(types.CacheEntry, error) bool) {
		c := buf.NewCursor(b, f.RecordsOffset)
		for pos := 0; int64(pos) < f.ExpectedCount; pos++ {
			if c.Remaining() == 0 {
				return
			}
			start := c.Offset()
			size := int(c.U16())
			c.Skip(2)
			var pathOff uint64
			if is32 {
				pathOff = uint64(c.U32())
			} else {
				c.Skip(4)
				pathOff = c.U64()
			}
			raw := c.U64()
			flags := c.U32()
			c.Skip(4)
			if err := c.Err(); err != nil {
				yield(types.CacheEntry{}, corrupt(VariantVista, pos, start, err))
				return
			}

			path, err := pathAt(b, pathOff, size)
			if err != nil {
				yield(types.CacheEntry{}, corrupt(VariantVista, pos, start, err))
				return
			}
			ts, err := Timestamp(raw)
			if err != nil {
				yield(types.CacheEntry{}, corrupt(VariantVista, pos, start, err))
				return
			}

			// The 32-bit layout's executed bit is not trusted; only 64-bit
			// records report it.
			exec := types.ExecutedNA
			if !is32 {
				exec = types.ExecutedFromFlags(flags)
			}

			e := types.CacheEntry{
				Path:            path,
				PathSize:        size,
				LastModified:    ts,
				LastModifiedRaw: raw,
				Executed:        exec,
				InsertFlags:     flags,
				RecordSize:      c.Offset() - start,
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}
