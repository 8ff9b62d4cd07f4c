package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/shimkit/internal/buf"
)

// ListKind identifies a subkey list variant.
type ListKind int

const (
	ListLI ListKind = iota
	ListLF
	ListLH
	ListRI
)

// DecodeSubkeyList reads the offsets stored in an LI, LF, LH or RI list.
// For RI lists the offsets point at further lists, not at NK cells; the
// kind tells the caller which it got.
//
//	Offset  Size  Field
//	0x00    2     Signature
//	0x02    2     Element count
//	0x04    ...   Elements: 4-byte offset (LI, RI) or offset + hash (LF, LH)
func DecodeSubkeyList(b []byte) ([]uint32, ListKind, error) {
	if len(b) < ListHeaderSize {
		return nil, 0, fmt.Errorf("subkey list: %w", ErrTruncated)
	}
	sig := b[:SignatureSize]
	count := int(buf.U16LE(b[SignatureSize:]))

	var (
		kind   ListKind
		stride = OffsetFieldSize
	)
	switch {
	case bytes.Equal(sig, LISignature):
		kind = ListLI
	case bytes.Equal(sig, LFSignature):
		kind, stride = ListLF, LFEntrySize
	case bytes.Equal(sig, LHSignature):
		kind, stride = ListLH, LFEntrySize
	case bytes.Equal(sig, RISignature):
		kind = ListRI
	default:
		return nil, 0, fmt.Errorf("subkey list %q: %w", sig, ErrSignatureMismatch)
	}

	need, ok := buf.MulOverflowSafe(count, stride)
	if !ok || !buf.Has(b, ListHeaderSize, need) {
		return nil, 0, fmt.Errorf("subkey list: %w", ErrTruncated)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = buf.U32LE(b[ListHeaderSize+i*stride:])
	}
	return out, kind, nil
}

// DecodeValueList decodes a value list containing offsets to VK records.
func DecodeValueList(b []byte, count uint32) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	need, ok := buf.MulOverflowSafe(int(count), OffsetFieldSize)
	if !ok || len(b) < need {
		return nil, fmt.Errorf("value list: %w", ErrTruncated)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = buf.U32LE(b[i*OffsetFieldSize:])
	}
	return out, nil
}
