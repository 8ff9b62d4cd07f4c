package hivegen

import (
	"bytes"

	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/internal/format"
)

// LogPage is a dirty page to put in a log entry. Offset is relative to the
// first HBIN.
type LogPage struct {
	Offset uint32
	Data   []byte
}

// LogEntry is one HvLE record to encode.
type LogEntry struct {
	Sequence         uint32
	HiveBinsDataSize uint32
	Pages            []LogPage
}

// Log encodes a new-format transaction log. The base block copies hive's
// and takes firstSeq as both sequence numbers.
func Log(hive []byte, firstSeq uint32, entries ...LogEntry) []byte {
	out := make([]byte, format.BaseBlockSize)
	copy(out, hive[:format.BaseBlockSize])
	buf.PutU32LE(out, format.REGFTypeOffset, format.REGFTypeLogNew)
	format.SetSequences(out, firstSeq)

	for _, e := range entries {
		size := format.HvLEHeaderSize + len(e.Pages)*format.HvLEPageRefSize
		for _, p := range e.Pages {
			size += len(p.Data)
		}
		size = (size + format.HvLEAlignment - 1) &^ (format.HvLEAlignment - 1)

		rec := make([]byte, size)
		copy(rec, format.HvLESignature)
		buf.PutU32LE(rec, format.HvLESizeOffset, uint32(size))
		buf.PutU32LE(rec, format.HvLESeqOffset, e.Sequence)
		buf.PutU32LE(rec, format.HvLEDataSizeOffset, e.HiveBinsDataSize)
		buf.PutU32LE(rec, format.HvLEPagesOffset, uint32(len(e.Pages)))
		at := format.HvLEHeaderSize + len(e.Pages)*format.HvLEPageRefSize
		for i, p := range e.Pages {
			ref := format.HvLEHeaderSize + i*format.HvLEPageRefSize
			buf.PutU32LE(rec, ref, p.Offset)
			buf.PutU32LE(rec, ref+4, uint32(len(p.Data)))
			copy(rec[at:], p.Data)
			at += len(p.Data)
		}
		out = append(out, rec...)
	}
	return out
}

// DirtyPages returns the 4 KiB pages of fresh's hive bins that differ from
// stale's, as log pages. Pages past the end of stale are always included.
func DirtyPages(stale, fresh []byte) []LogPage {
	var pages []LogPage
	for off := format.HeaderSize; off < len(fresh); off += format.HBINAlignment {
		end := min(off+format.HBINAlignment, len(fresh))
		if end <= len(stale) && bytes.Equal(stale[off:end], fresh[off:end]) {
			continue
		}
		pages = append(pages, LogPage{
			Offset: uint32(off - format.HeaderSize),
			Data:   bytes.Clone(fresh[off:end]),
		})
	}
	return pages
}

// Stale simulates a hive caught mid-write: the base block of fresh with
// primary = secondary+1, and hive bins taken from old (an earlier image of
// the same hive), truncated to old's size.
func Stale(old, fresh []byte, secondary uint32) []byte {
	out := bytes.Clone(old)
	copy(out[:format.HeaderSize], fresh[:format.HeaderSize])
	buf.PutU32LE(out, format.REGFDataSizeOffset, uint32(len(old)-format.HeaderSize))
	buf.PutU32LE(out, format.REGFPrimarySeqOffset, secondary+1)
	buf.PutU32LE(out, format.REGFSecondarySeqOffset, secondary)
	buf.PutU32LE(out, format.REGFCheckSumOffset, format.Checksum(out))
	return out
}
