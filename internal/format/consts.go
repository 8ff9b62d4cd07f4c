// Package format houses low-level decoders for the Windows Registry hive file
// format and its transaction logs. Decoders are allocation-free where
// possible and return slices that alias the input.
package format

var (
	// REGFSignature is the four-byte signature at the start of every hive
	// and every transaction log base block.
	REGFSignature = []byte{'r', 'e', 'g', 'f'}

	// HBINSignature is the four-byte signature at the beginning of each hive bin.
	HBINSignature = []byte{'h', 'b', 'i', 'n'}

	// HvLESignature opens each entry of a new-format (Windows 8.1+) log.
	HvLESignature = []byte{'H', 'v', 'L', 'E'}

	// DIRTSignature opens the dirty vector of an old-format log.
	DIRTSignature = []byte{'D', 'I', 'R', 'T'}

	NKSignature = []byte{'n', 'k'}
	VKSignature = []byte{'v', 'k'}

	// LF/LH carry a name hint or hash per element; LI is a plain offset
	// array; RI points at other lists.
	LFSignature = []byte{'l', 'f'}
	LHSignature = []byte{'l', 'h'}
	LISignature = []byte{'l', 'i'}
	RISignature = []byte{'r', 'i'}

	// DBSignature identifies a big data record for values over 16344 bytes.
	DBSignature = []byte{'d', 'b'}
)

const (
	// HeaderSize is the size of the base block. Cell offsets are relative
	// to its end.
	HeaderSize = 0x1000

	// BaseBlockSize is the meaningful prefix of a base block, checksum
	// included. Log files start their entries right after it.
	BaseBlockSize = 0x200

	HBINHeaderSize = 0x20
	CellHeaderSize = 4
	SignatureSize  = 2

	HBINAlignment     = 0x1000
	HBINAlignmentMask = HBINAlignment - 1
	CellAlignment     = 8
	CellAlignmentMask = CellAlignment - 1

	HBINFileOffsetField = 0x04
	HBINSizeOffset      = 0x08

	// InvalidOffset marks an unused cell reference.
	InvalidOffset = 0xFFFFFFFF
)

// Base block (REGF header).
const (
	REGFSignatureSize      = 4
	REGFPrimarySeqOffset   = 0x004
	REGFSecondarySeqOffset = 0x008
	REGFTimeStampOffset    = 0x00C
	REGFMajorVersionOffset = 0x014
	REGFMinorVersionOffset = 0x018
	REGFTypeOffset         = 0x01C
	REGFFormatOffset       = 0x020
	REGFRootCellOffset     = 0x024
	REGFDataSizeOffset     = 0x028
	REGFClusterOffset      = 0x02C
	REGFFileNameOffset     = 0x030
	REGFFileNameSize       = 64
	REGFCheckSumOffset     = 0x1FC

	// The checksum is the XOR of the first 127 dwords.
	REGFChecksumDwords = 127
)

// File types stored at REGFTypeOffset.
const (
	REGFTypePrimary = 0
	REGFTypeLog     = 1 // old format (DIRT)
	REGFTypeLogAlt  = 2 // old format, alternate name
	REGFTypeLogNew  = 6 // HvLE entries
)

// NK (key node) field offsets, relative to the payload start.
const (
	NKFlagsOffset       = 0x02
	NKLastWriteOffset   = 0x04
	NKParentOffset      = 0x10
	NKSubkeyCountOffset = 0x14
	NKSubkeyListOffset  = 0x1C
	NKValueCountOffset  = 0x24
	NKValueListOffset   = 0x28
	NKNameLenOffset     = 0x48
	NKNameOffset        = 0x4C

	NKMinSize = NKNameOffset

	// NKFlagCompressedName marks a name stored as Windows-1252 bytes.
	NKFlagCompressedName = 0x20
)

// VK (value key) field offsets.
const (
	VKNameLenOffset = 0x02
	VKDataLenOffset = 0x04
	VKDataOffOffset = 0x08
	VKTypeOffset    = 0x0C
	VKFlagsOffset   = 0x10
	VKNameOffset    = 0x14

	VKMinSize = VKNameOffset

	// VKFlagASCIIName marks a name stored as Windows-1252 bytes.
	VKFlagASCIIName = 0x0001
	// VKDataInlineBit set in the data length means up to 4 bytes of data
	// live in the data offset field itself.
	VKDataInlineBit  = 0x80000000
	VKDataLengthMask = 0x7FFFFFFF
)

// Subkey and value lists.
const (
	ListHeaderSize  = 4
	OffsetFieldSize = 4
	LFEntrySize     = 8
)

// DB (big data) record.
const (
	DBCountOffset = 0x02
	DBListOffset  = 0x04
	DBHeaderSize  = 0x0C

	// DBChunkSize is the payload of every block except possibly the last.
	DBChunkSize = 16344
	// DBBlockPadding trails each block: the next cell's header.
	DBBlockPadding = 4
)

// HvLE log entry header (new-format logs).
const (
	HvLESizeOffset     = 0x04
	HvLEFlagsOffset    = 0x08
	HvLESeqOffset      = 0x0C
	HvLEDataSizeOffset = 0x10
	HvLEPagesOffset    = 0x14
	HvLEHash1Offset    = 0x18
	HvLEHash2Offset    = 0x20
	HvLEHeaderSize     = 0x28

	// Entries are padded to this granularity.
	HvLEAlignment = 0x200
	// Each dirty page reference is an offset and a size, both relative to
	// the first HBIN.
	HvLEPageRefSize = 8
)

// Sanity limits on counts read from untrusted hives.
const (
	MaxSubkeyCount  = 1 << 20
	MaxValueCount   = 1 << 20
	MaxNameLen      = 0xFFFF
	MaxValueDataLen = 1 << 30
)
