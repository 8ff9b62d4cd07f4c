package format

import (
	"time"
)

const (
	filetimeTicksPerSecond = 10_000_000  // FILETIME units are 100ns
	filetimeUnixDelta      = 11644473600 // seconds between 1601-01-01 and 1970-01-01

	// FiletimeYear1602 is the first tick of 1602-01-01. Anything below it
	// falls in the FILETIME epoch year, which Windows uses for "unset".
	FiletimeYear1602 = 365 * 24 * 60 * 60 * filetimeTicksPerSecond

	// FiletimeMax is the last tick of 9999-12-31, the largest value Windows
	// will convert.
	FiletimeMax = 2650467743999999999
)

// FiletimeToTime converts a Windows FILETIME value to UTC time.Time. The full
// range is converted, including values before the Unix epoch.
func FiletimeToTime(v uint64) time.Time {
	sec := int64(v/filetimeTicksPerSecond) - filetimeUnixDelta
	nsec := int64(v%filetimeTicksPerSecond) * 100
	return time.Unix(sec, nsec).UTC()
}

// TimeToFiletime converts a time.Time to a Windows FILETIME value. Times
// before 1601 clamp to zero.
func TimeToFiletime(t time.Time) uint64 {
	sec := t.Unix() + filetimeUnixDelta
	if sec < 0 {
		return 0
	}
	return uint64(sec)*filetimeTicksPerSecond + uint64(t.Nanosecond()/100)
}
