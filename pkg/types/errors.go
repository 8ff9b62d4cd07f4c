package types

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindFormat             ErrKind = iota // malformed hive headers/signatures (e.g., bad "regf")
	ErrKindCorrupt                           // structural corruption in a hive (bad sizes/offsets/tags)
	ErrKindUnsupported                       // recognized variant we don't decode (64-bit XP, old-style logs)
	ErrKindNotFound                          // missing key/value/control set
	ErrKindState                             // invalid operation for current state (closed reader, dirty hive)
	ErrKindUnrecognizedFormat                // cache buffer matched no known generation
	ErrKindInsufficientData                  // cache buffer too short to attempt detection
	ErrKindRecordCorrupt                     // cache record failed to decode
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindFormat:
		return "format"
	case ErrKindCorrupt:
		return "corrupt"
	case ErrKindUnsupported:
		return "unsupported"
	case ErrKindNotFound:
		return "not found"
	case ErrKindState:
		return "state"
	case ErrKindUnrecognizedFormat:
		return "unrecognized format"
	case ErrKindInsufficientData:
		return "insufficient data"
	case ErrKindRecordCorrupt:
		return "record corrupt"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinels commonly returned by implementations. Errors built at call sites
// carry one of these as Err so errors.Is keeps working.
var (
	// ErrNotHive indicates the file lacks a valid "regf" header.
	ErrNotHive = &Error{Kind: ErrKindFormat, Msg: "not a registry hive (bad regf header)"}
	// ErrCorrupt indicates non-recoverable structural inconsistency in a hive.
	ErrCorrupt = &Error{Kind: ErrKindCorrupt, Msg: "corrupt hive structure"}
	// ErrUnsupported indicates a recognized but unsupported variant.
	ErrUnsupported = &Error{Kind: ErrKindUnsupported, Msg: "not supported"}
	// ErrNotFound indicates a missing key, value, or control set.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrUnrecognizedFormat indicates no generation marker matched.
	ErrUnrecognizedFormat = &Error{Kind: ErrKindUnrecognizedFormat, Msg: "unrecognized shim cache format"}
	// ErrInsufficientData indicates the buffer is shorter than the detection header.
	ErrInsufficientData = &Error{Kind: ErrKindInsufficientData, Msg: "insufficient data for shim cache header"}
	// ErrRecordCorrupt indicates a cache record could not be decoded.
	ErrRecordCorrupt = &Error{Kind: ErrKindRecordCorrupt, Msg: "corrupt shim cache record"}
)

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind ErrKind) bool {
	for err != nil {
		var te *Error
		if !errors.As(err, &te) {
			return false
		}
		if te.Kind == kind {
			return true
		}
		err = te.Err
	}
	return false
}
