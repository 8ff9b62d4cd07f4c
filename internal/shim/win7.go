package shim

import (
	"bytes"

	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/pkg/types"
)

// Windows 7 / Server 2008 R2. The marker and entry count are followed by
// reserved space; records start at offset 128. The layout mirrors Vista with
// a trailing data size and data offset pair.
//
// 32-bit record (32 bytes):
//
//	Offset  Size  Field
//	0x00    2     Path length in bytes
//	0x02    2     Max path length (ignored)
//	0x04    4     Path offset
//	0x08    8     Last modified (FILETIME)
//	0x10    4     Insert flags
//	0x14    4     Shim flags (ignored)
//	0x18    4     Data size
//	0x1C    4     Data offset
//
// 64-bit record (48 bytes):
//
//	Offset  Size  Field
//	0x00    2     Path length in bytes
//	0x02    2     Max path length (ignored)
//	0x04    4     Padding
//	0x08    8     Path offset
//	0x10    8     Last modified (FILETIME)
//	0x18    4     Insert flags
//	0x1C    4     Shim flags (ignored)
//	0x20    8     Data size
//	0x28    8     Data offset
const win7RecordsOffset = 0x80

func win7Records(b []byte, f Format, is32 bool) records {
	return func(yield func(types.CacheEntry, error) bool) {
		c := buf.NewCursor(b, f.RecordsOffset)
		for pos := 0; int64(pos) < f.ExpectedCount; pos++ {
			start := c.Offset()
			size := int(c.U16())
			c.Skip(2)
			var pathOff, dataSize, dataOff uint64
			if is32 {
				pathOff = uint64(c.U32())
			} else {
				c.Skip(4)
				pathOff = c.U64()
			}
			raw := c.U64()
			flags := c.U32()
			c.Skip(4)
			if is32 {
				dataSize = uint64(c.U32())
				dataOff = uint64(c.U32())
			} else {
				dataSize = c.U64()
				dataOff = c.U64()
			}
			if err := c.Err(); err != nil {
				yield(types.CacheEntry{}, corrupt(VariantWin7, pos, start, err))
				return
			}

			path, err := pathAt(b, pathOff, size)
			if err != nil {
				yield(types.CacheEntry{}, corrupt(VariantWin7, pos, start, err))
				return
			}
			ts, err := Timestamp(raw)
			if err != nil {
				yield(types.CacheEntry{}, corrupt(VariantWin7, pos, start, err))
				return
			}

			e := types.CacheEntry{
				Path:            path,
				PathSize:        size,
				LastModified:    ts,
				LastModifiedRaw: raw,
				Executed:        types.ExecutedFromFlags(flags),
				InsertFlags:     flags,
				OpaqueData:      win7Data(b, dataOff, dataSize),
				RecordSize:      c.Offset() - start,
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// win7Data copies the record's data blob when it lies inside the buffer.
// The blob is informational; a bad reference never fails the record.
func win7Data(b []byte, off, size uint64) []byte {
	o, ok1 := toInt(off)
	n, ok2 := toInt(size)
	if !ok1 || !ok2 || n == 0 {
		return nil
	}
	d, ok := buf.Slice(b, o, n)
	if !ok {
		return nil
	}
	return bytes.Clone(d)
}
