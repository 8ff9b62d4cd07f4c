package shim

import (
	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/pkg/types"
)

// Windows XP (32-bit only) header:
//
//	Offset  Size  Field
//	0x000   4     0xDEADBEEF
//	0x004   4     Entry count
//	0x008   4     LRU array size (ignored)
//	0x190   ...   Records
//
// Each record is fixed width:
//
//	Offset  Size  Field
//	0x000   528   Path, UTF-16LE, NUL padded
//	0x210   8     Last modified (FILETIME)
//	0x218   8     File size (ignored)
//	0x220   8     Last update (FILETIME, ignored)
const (
	xpRecordsOffset = 0x190
	xpPathSize      = 528
	xpRecordSize    = 552
)

func xpRecords(b []byte, f Format) records {
	return func(yield func(types.CacheEntry, error) bool) {
		c := buf.NewCursor(b, f.RecordsOffset)
		for pos := 0; int64(pos) < f.ExpectedCount; pos++ {
			if c.Remaining() == 0 {
				return
			}
			start := c.Offset()
			field := c.Bytes(xpPathSize)
			raw := c.U64()
			c.Skip(8)
			c.Skip(8)
			if err := c.Err(); err != nil {
				yield(types.CacheEntry{}, corrupt(VariantXP, pos, start, err))
				return
			}

			ts, err := Timestamp(raw)
			if err != nil {
				yield(types.CacheEntry{}, corrupt(VariantXP, pos, start, err))
				return
			}
			if ts == nil {
				// End of the populated part of the LRU array.
				return
			}
			path, _, err := fixedPath(field)
			if err != nil {
				yield(types.CacheEntry{}, corrupt(VariantXP, pos, start, err))
				return
			}

			e := types.CacheEntry{
				Path:            path,
				PathSize:        xpPathSize, // the whole fixed field is stored
				LastModified:    ts,
				LastModifiedRaw: raw,
				Executed:        types.ExecutedNA,
				RecordSize:      xpRecordSize,
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}
