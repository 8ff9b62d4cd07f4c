package shim

import (
	"fmt"
	"time"

	"github.com/joshuapare/shimkit/internal/format"
)

// Timestamp converts a stored FILETIME into an optional UTC time.
//
// Values in the FILETIME epoch year (1601), including zero, mean "unset" and
// map to nil. Values past year 9999 cannot come from a real clock and are
// reported as an error so the caller can treat the record as corrupt.
func Timestamp(raw uint64) (*time.Time, error) {
	if raw < format.FiletimeYear1602 {
		return nil, nil
	}
	if raw > format.FiletimeMax {
		return nil, fmt.Errorf("filetime 0x%016x out of range", raw)
	}
	t := format.FiletimeToTime(raw)
	return &t, nil
}
