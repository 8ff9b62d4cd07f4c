package shim

import (
	"fmt"

	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/pkg/types"
)

// Leading markers and tags. All multi-byte integers are little-endian.
const (
	MarkerXP    uint32 = 0xDEADBEEF
	MarkerVista uint32 = 0xBADC0FFE
	MarkerWin7  uint32 = 0xBADC0FEE

	TagWin80 = "00ts"
	// Windows 8.1 and 10 share the per-record tag; the header tells them
	// apart. Keep both names.
	TagWin81 = "10ts"
	TagWin10 = "10ts"

	// Windows 10 headers start with their own size, which doubles as the
	// offset of the first record.
	Win10HeaderSize         = 0x30
	Win10CreatorsHeaderSize = 0x34

	// MinBufferSize is the smallest buffer Detect will look at: it must
	// reach the Windows 8 tag at offset 128.
	MinBufferSize = 132
)

const (
	headerCountOffset        = 0x04
	win8TagOffset            = 0x80
	win10CountOffset         = 0x24
	win10CreatorsCountOffset = 0x28
	tagSize                  = 4
)

// Variant identifies one cache layout generation.
type Variant int

const (
	VariantUnknown Variant = iota
	VariantXP
	VariantVista
	VariantWin7
	VariantWin80
	VariantWin81
	VariantWin10
	VariantWin10Creators
)

func (v Variant) String() string {
	switch v {
	case VariantXP:
		return "xp"
	case VariantVista:
		return "vista"
	case VariantWin7:
		return "win7"
	case VariantWin80:
		return "win8.0"
	case VariantWin81:
		return "win8.1"
	case VariantWin10:
		return "win10"
	case VariantWin10Creators:
		return "win10-creators"
	default:
		return "unknown"
	}
}

// countOffset is where the header keeps the entry count.
func countOffset(v Variant) int {
	switch v {
	case VariantWin10:
		return win10CountOffset
	case VariantWin10Creators:
		return win10CreatorsCountOffset
	default:
		return headerCountOffset
	}
}

// Format is what Detect learned from the buffer header.
type Format struct {
	Variant       Variant
	OS            types.OSVersion
	RecordsOffset int   // absolute offset of the first record
	ExpectedCount int64 // header entry count, -1 when the layout has none
}

// Detect identifies the generation of a cache buffer. The first matching rule
// wins: leading marker (XP, Vista, 7), then the tag at offset 128 (8.0, 8.1),
// then the Windows 10 header shape. is32 only refines the OS label.
func Detect(b []byte, is32 bool) (Format, error) {
	if len(b) < MinBufferSize {
		return Format{}, &types.Error{
			Kind: types.ErrKindInsufficientData,
			Msg:  fmt.Sprintf("shim: buffer is %d bytes, need at least %d", len(b), MinBufferSize),
			Err:  types.ErrInsufficientData,
		}
	}

	count := int64(buf.U32LE(b[headerCountOffset:]))
	switch buf.U32LE(b) {
	case MarkerXP:
		return Format{Variant: VariantXP, OS: types.WindowsXP, RecordsOffset: xpRecordsOffset, ExpectedCount: count}, nil
	case MarkerVista:
		return Format{Variant: VariantVista, OS: types.WindowsVistaWin2k3Win2k8, RecordsOffset: vistaRecordsOffset, ExpectedCount: count}, nil
	case MarkerWin7:
		os := types.Windows7x64Windows2008R2
		if is32 {
			os = types.Windows7x86
		}
		return Format{Variant: VariantWin7, OS: os, RecordsOffset: win7RecordsOffset, ExpectedCount: count}, nil
	}

	switch string(b[win8TagOffset : win8TagOffset+tagSize]) {
	case TagWin80:
		return Format{Variant: VariantWin80, OS: types.Windows80Windows2012, RecordsOffset: win8RecordsOffset, ExpectedCount: -1}, nil
	case TagWin81:
		return Format{Variant: VariantWin81, OS: types.Windows81Windows2012R2, RecordsOffset: win8RecordsOffset, ExpectedCount: -1}, nil
	}

	recordsOff := int(buf.U32LE(b))
	f := Format{
		Variant:       VariantWin10,
		OS:            types.Windows10,
		RecordsOffset: recordsOff,
		ExpectedCount: int64(buf.U32LE(b[win10CountOffset:])),
	}
	if recordsOff == Win10CreatorsHeaderSize {
		f.Variant = VariantWin10Creators
		f.OS = types.Windows10Creators
		f.ExpectedCount = int64(buf.U32LE(b[win10CreatorsCountOffset:]))
	}
	if tag, ok := buf.Slice(b, recordsOff, tagSize); ok && string(tag) == TagWin10 {
		return f, nil
	}

	return Format{}, &types.Error{
		Kind: types.ErrKindUnrecognizedFormat,
		Msg:  fmt.Sprintf("shim: unknown leading marker 0x%08X", buf.U32LE(b)),
		Err:  types.ErrUnrecognizedFormat,
	}
}

// Decode detects the generation of b and decodes every record in it.
//
// is32 selects the pointer width for layouts that depend on it; controlSet is
// stamped on each entry. A nil sink discards diagnostics. On error the
// returned cache is empty; the Format is filled in whenever detection
// succeeded.
func Decode(b []byte, is32 bool, controlSet int, sink types.DiagnosticSink) (types.ControlSetCache, Format, error) {
	if sink == nil {
		sink = types.DiscardDiagnostics
	}
	f, err := Detect(b, is32)
	if err != nil {
		return types.ControlSetCache{}, f, err
	}

	var (
		seq records
		p   = tolerant
	)
	switch f.Variant {
	case VariantXP:
		if !is32 {
			return types.ControlSetCache{}, f, &types.Error{
				Kind: types.ErrKindUnsupported,
				Msg:  "shim: 64-bit Windows XP cache",
				Err:  types.ErrUnsupported,
			}
		}
		seq, p = xpRecords(b, f), strict
	case VariantVista:
		seq, p = vistaRecords(b, f, is32), strict
	case VariantWin7:
		seq = win7Records(b, f, is32)
	case VariantWin80, VariantWin81:
		seq = win8Records(b, f)
	case VariantWin10, VariantWin10Creators:
		seq = win10Records(b, f)
	default:
		return types.ControlSetCache{}, f, types.ErrUnrecognizedFormat
	}

	sink.Record(types.Diagnostic{
		Severity:   types.SevInfo,
		Category:   types.DiagHeader,
		Offset:     uint64(f.RecordsOffset),
		Structure:  f.Variant.String(),
		Issue:      "detected " + f.OS.String(),
		ControlSet: controlSet,
	})
	cache, err := collect(seq, f, controlSet, p, sink)
	return cache, f, err
}
