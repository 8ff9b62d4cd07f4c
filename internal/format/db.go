package format

import (
	"fmt"

	"github.com/joshuapare/shimkit/internal/buf"
)

// DBRecord is a big data record. Values longer than DBChunkSize are split
// into blocks; the record points at a cell holding the block offsets.
//
//	Offset  Size  Field
//	0x00    2     'd' 'b'
//	0x02    2     Number of blocks
//	0x04    4     Offset of the block list cell
//	0x08    4     Unknown
type DBRecord struct {
	NumBlocks       uint16
	BlocklistOffset uint32
}

// DecodeDB decodes a big data record payload.
func DecodeDB(b []byte) (DBRecord, error) {
	if len(b) < DBHeaderSize {
		return DBRecord{}, fmt.Errorf("db: %w (need %d bytes, have %d)", ErrTruncated, DBHeaderSize, len(b))
	}
	if !IsDBRecord(b) {
		return DBRecord{}, fmt.Errorf("db: %w", ErrSignatureMismatch)
	}
	return DBRecord{
		NumBlocks:       buf.U16LE(b[DBCountOffset:]),
		BlocklistOffset: buf.U32LE(b[DBListOffset:]),
	}, nil
}

// IsDBRecord checks if the given cell data starts with the "db" signature.
func IsDBRecord(b []byte) bool {
	return len(b) >= SignatureSize && b[0] == DBSignature[0] && b[1] == DBSignature[1]
}
