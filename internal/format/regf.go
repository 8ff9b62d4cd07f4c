package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/shimkit/internal/buf"
)

// Header captures the base block fields needed to traverse a hive and to
// decide whether its transaction logs must be replayed.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   4    'r' 'e' 'g' 'f'
//	 0x004   4    Primary sequence number
//	 0x008   4    Secondary sequence number
//	 0x00C   8    Last write timestamp (FILETIME)
//	 0x014   4    Major version
//	 0x018   4    Minor version
//	 0x01C   4    Type (0 = primary, 1/2 = old log, 6 = new log)
//	 0x024   4    Offset (relative to first HBIN) of the root cell (NK)
//	 0x028   4    Total size of HBIN data
//	 0x02C   4    Clustering factor
//	 0x030   64   Embedded file name (UTF-16LE, informational)
//	 0x1FC   4    XOR checksum of the preceding 508 bytes
//
// A primary sequence different from the secondary one means a write was in
// flight: the hive is dirty and its logs hold the missing pages.
type Header struct {
	PrimarySequence   uint32
	SecondarySequence uint32
	LastWriteRaw      uint64
	MajorVersion      uint32
	MinorVersion      uint32
	Type              uint32
	RootCellOffset    uint32
	HiveBinsDataSize  uint32
	ClusteringFactor  uint32
	CheckSum          uint32
}

// Dirty reports whether the sequence numbers disagree.
func (h Header) Dirty() bool {
	return h.PrimarySequence != h.SecondarySequence
}

// ParseHeader validates the signature and extracts the base block fields.
// Only the first BaseBlockSize bytes are read, so it also accepts log file
// base blocks. The checksum is read but not verified; see VerifyChecksum.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < BaseBlockSize {
		return Header{}, fmt.Errorf("regf header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:REGFSignatureSize], REGFSignature) {
		return Header{}, fmt.Errorf("regf header: %w", ErrSignatureMismatch)
	}
	return Header{
		PrimarySequence:   buf.U32LE(b[REGFPrimarySeqOffset:]),
		SecondarySequence: buf.U32LE(b[REGFSecondarySeqOffset:]),
		LastWriteRaw:      buf.U64LE(b[REGFTimeStampOffset:]),
		MajorVersion:      buf.U32LE(b[REGFMajorVersionOffset:]),
		MinorVersion:      buf.U32LE(b[REGFMinorVersionOffset:]),
		Type:              buf.U32LE(b[REGFTypeOffset:]),
		RootCellOffset:    buf.U32LE(b[REGFRootCellOffset:]),
		HiveBinsDataSize:  buf.U32LE(b[REGFDataSizeOffset:]),
		ClusteringFactor:  buf.U32LE(b[REGFClusterOffset:]),
		CheckSum:          buf.U32LE(b[REGFCheckSumOffset:]),
	}, nil
}

// Checksum computes the base block checksum of b. Windows reserves 0 and
// 0xFFFFFFFF, mapping them to 1 and 0xFFFFFFFE.
func Checksum(b []byte) uint32 {
	var sum uint32
	for i := range REGFChecksumDwords {
		sum ^= buf.U32LE(b[i*4:])
	}
	switch sum {
	case 0xFFFFFFFF:
		return 0xFFFFFFFE
	case 0:
		return 1
	}
	return sum
}

// VerifyChecksum reports ErrChecksum when the stored checksum is wrong.
func VerifyChecksum(b []byte) error {
	if len(b) < REGFCheckSumOffset+4 {
		return fmt.Errorf("regf checksum: %w", ErrTruncated)
	}
	if got, want := buf.U32LE(b[REGFCheckSumOffset:]), Checksum(b); got != want {
		return fmt.Errorf("regf checksum 0x%08X, computed 0x%08X: %w", got, want, ErrChecksum)
	}
	return nil
}

// SetSequences stamps both sequence numbers and refreshes the checksum, the
// same way a completed write leaves the base block.
func SetSequences(b []byte, seq uint32) {
	buf.PutU32LE(b, REGFPrimarySeqOffset, seq)
	buf.PutU32LE(b, REGFSecondarySeqOffset, seq)
	buf.PutU32LE(b, REGFCheckSumOffset, Checksum(b))
}
