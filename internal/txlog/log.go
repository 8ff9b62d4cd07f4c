package txlog

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/internal/format"
	"github.com/joshuapare/shimkit/pkg/types"
)

// Page is one dirty page reference with its data. Offset is relative to the
// first HBIN.
type Page struct {
	Offset uint32
	Data   []byte
}

// Entry is one HvLE record.
type Entry struct {
	Sequence         uint32
	HiveBinsDataSize uint32
	Pages            []Page
}

// Log is a parsed transaction log. Entries holds the valid prefix only:
// parsing stops at the first entry that is malformed or breaks the
// sequence.
type Log struct {
	Header  format.Header
	Entries []Entry
}

// FirstSequence is the sequence of the first entry, or the base block's
// secondary sequence when the log is empty.
func (l *Log) FirstSequence() uint32 {
	if len(l.Entries) > 0 {
		return l.Entries[0].Sequence
	}
	return l.Header.SecondarySequence
}

// Parse reads a log file. Page data aliases b.
func Parse(b []byte) (*Log, error) {
	head, err := format.ParseHeader(b)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "transaction log base block", Err: err}
	}
	switch head.Type {
	case format.REGFTypeLog, format.REGFTypeLogAlt, format.REGFTypeLogNew:
	default:
		return nil, &types.Error{
			Kind: types.ErrKindFormat,
			Msg:  fmt.Sprintf("transaction log has file type %d", head.Type),
			Err:  types.ErrNotHive,
		}
	}

	l := &Log{Header: head}
	rest, _ := buf.Slice(b, format.BaseBlockSize, len(b)-format.BaseBlockSize)
	if bytes.HasPrefix(rest, format.DIRTSignature) {
		return nil, &types.Error{Kind: types.ErrKindUnsupported, Msg: "old-format (DIRT) transaction log", Err: types.ErrUnsupported}
	}

	off := format.BaseBlockSize
	next := head.SecondarySequence
	for {
		e, size, ok := parseEntry(b, off)
		if !ok || e.Sequence != next {
			break
		}
		l.Entries = append(l.Entries, e)
		off += size
		next++
	}
	return l, nil
}

// parseEntry decodes the HvLE record at off. ok is false at the end of the
// valid entries, whatever the reason.
func parseEntry(b []byte, off int) (Entry, int, bool) {
	head, ok := buf.Slice(b, off, format.HvLEHeaderSize)
	if !ok || !bytes.Equal(head[:4], format.HvLESignature) {
		return Entry{}, 0, false
	}
	size := int(buf.U32LE(head[format.HvLESizeOffset:]))
	if size < format.HvLEHeaderSize || size%format.HvLEAlignment != 0 {
		return Entry{}, 0, false
	}
	body, ok := buf.Slice(b, off, size)
	if !ok {
		return Entry{}, 0, false
	}

	count := int(buf.U32LE(head[format.HvLEPagesOffset:]))
	refsLen, ok := buf.MulOverflowSafe(count, format.HvLEPageRefSize)
	if !ok || !buf.Has(body, format.HvLEHeaderSize, refsLen) {
		return Entry{}, 0, false
	}

	e := Entry{
		Sequence:         buf.U32LE(head[format.HvLESeqOffset:]),
		HiveBinsDataSize: buf.U32LE(head[format.HvLEDataSizeOffset:]),
		Pages:            make([]Page, 0, count),
	}
	c := buf.NewCursor(body, format.HvLEHeaderSize+refsLen)
	for i := range count {
		ref := body[format.HvLEHeaderSize+i*format.HvLEPageRefSize:]
		pageOff := buf.U32LE(ref)
		pageSize := buf.U32LE(ref[4:])
		if pageSize == 0 || pageSize%format.HBINAlignment != 0 || pageOff%format.HBINAlignment != 0 {
			return Entry{}, 0, false
		}
		data := c.Bytes(int(pageSize))
		if c.Err() != nil {
			return Entry{}, 0, false
		}
		e.Pages = append(e.Pages, Page{Offset: pageOff, Data: data})
	}
	return e, size, true
}
