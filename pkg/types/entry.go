package types

import "time"

// -----------------------------------------------------------------------------
// Cache entries
// -----------------------------------------------------------------------------

// Execute is the tri-state "was this program run" indicator. Only some
// generations carry it.
type Execute int

const (
	ExecutedNA  Execute = iota // generation carries no reliable run indicator
	ExecutedYes                // record marked as executed
	ExecutedNo                 // record present but not marked as executed
)

func (e Execute) String() string {
	switch e {
	case ExecutedYes:
		return "Yes"
	case ExecutedNo:
		return "No"
	default:
		return "NA"
	}
}

// MarshalText renders the indicator as Yes/No/NA in JSON and other text encodings.
func (e Execute) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// InsertFlagExecuted is the insert-flag bit that marks a record as executed
// on the generations that expose it.
const InsertFlagExecuted uint32 = 0x2

// ExecutedFromFlags maps the executed bit of an insert-flags mask to Yes/No.
func ExecutedFromFlags(flags uint32) Execute {
	if flags&InsertFlagExecuted != 0 {
		return ExecutedYes
	}
	return ExecutedNo
}

// CacheEntry is one program-path record decoded from a shim cache buffer.
//
// Decoders create entries exactly once. Duplicate and Source are the only
// fields set afterwards, by post-processing and the caller respectively.
type CacheEntry struct {
	Position        int        // zero-based decode order within the control set
	Path            string     // decoded path, without a leading \??\
	PathSize        int        // encoded path length in bytes, as stored
	LastModified    *time.Time // nil when the stored FILETIME is unset (year 1601)
	LastModifiedRaw uint64     // raw FILETIME ticks (0 when unset)
	Executed        Execute
	InsertFlags     uint32 // raw generation-specific mask
	ControlSet      int    // originating control set, -1 for live/unspecified
	OpaqueData      []byte // trailing per-record payload, generation-specific
	RecordSize      int    // bytes consumed by the record header and body
	Duplicate       bool
	Source          string
}

// ControlSetCache is the decode result for one control set's buffer.
type ControlSetCache struct {
	Entries       []CacheEntry
	ExpectedCount int64 // header-reported count, -1 when the format has none
	ControlSet    int
}

// Complete reports whether the decoded entries match the header count. It is
// always true for formats without a count.
func (c ControlSetCache) Complete() bool {
	return c.ExpectedCount < 0 || int64(len(c.Entries)) == c.ExpectedCount
}

// -----------------------------------------------------------------------------
// OS classification
// -----------------------------------------------------------------------------

// OSVersion is the Windows generation inferred from the buffer layout.
type OSVersion int

const (
	OSUnknown OSVersion = iota
	WindowsXP
	WindowsVistaWin2k3Win2k8
	Windows7x86
	Windows7x64Windows2008R2
	Windows80Windows2012
	Windows81Windows2012R2
	Windows10
	Windows10Creators
)

// String returns the label used in output file names.
func (v OSVersion) String() string {
	switch v {
	case WindowsXP:
		return "WindowsXP"
	case WindowsVistaWin2k3Win2k8:
		return "WindowsVistaWin2k3Win2k8"
	case Windows7x86:
		return "Windows7x86"
	case Windows7x64Windows2008R2:
		return "Windows7x64_Windows2008R2"
	case Windows80Windows2012:
		return "Windows80_Windows2012"
	case Windows81Windows2012R2:
		return "Windows81_Windows2012R2"
	case Windows10:
		return "Windows10"
	case Windows10Creators:
		return "Windows10Creators"
	default:
		return "Unknown"
	}
}

// MarshalText renders the version label in JSON.
func (v OSVersion) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
