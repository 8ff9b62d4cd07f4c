package shim

import (
	"bytes"

	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/pkg/types"
)

// Windows 8.0 / 8.1. There is no header count; records start at offset 128
// and each one opens with a tag ("00ts" on 8.0, "10ts" on 8.1). The first
// record without the tag ends the list.
//
//	Size  Field
//	4     Tag
//	4     Reserved
//	4     Record data size
//	2     Path length in bytes
//	n     Path, UTF-16LE
//	2+n   Package name, length prefixed (8.1 only, skipped)
//	4     Insert flags
//	4     Shim flags (ignored)
//	8     Last modified (FILETIME)
//	4     Data size
//	n     Data
const win8RecordsOffset = 0x80

func win8Records(b []byte, f Format) records {
	tag, withPackage := TagWin80, false
	if f.Variant == VariantWin81 {
		tag, withPackage = TagWin81, true
	}

	return func(yield func(types.CacheEntry, error) bool) {
		c := buf.NewCursor(b, f.RecordsOffset)
		for pos := 0; ; pos++ {
			start := c.Offset()
			if sig := c.Bytes(tagSize); c.Err() != nil || string(sig) != tag {
				return
			}
			c.Skip(4)
			c.U32()
			size := int(c.U16())
			rawPath := c.Bytes(size)
			if withPackage {
				c.Skip(int(c.U16()))
			}
			flags := c.U32()
			c.Skip(4)
			raw := c.U64()
			data := c.Bytes(int(c.U32()))
			if err := c.Err(); err != nil {
				yield(types.CacheEntry{}, corrupt(f.Variant, pos, start, err))
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

			e := types.CacheEntry{
				Path:            path,
				PathSize:        size,
				LastModified:    ts,
				LastModifiedRaw: raw,
				Executed:        types.ExecutedFromFlags(flags),
				InsertFlags:     flags,
				OpaqueData:      bytes.Clone(data),
				RecordSize:      c.Offset() - start,
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}
