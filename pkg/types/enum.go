package types

import (
	"fmt"
	"strings"
)

// parseName maps text back to the value in [first, last] whose String
// matches it, ignoring case.
func parseName[T interface {
	~int
	fmt.Stringer
}](kind string, text []byte, first, last T) (T, error) {
	for v := first; v <= last; v++ {
		if strings.EqualFold(v.String(), string(text)) {
			return v, nil
		}
	}
	return first, &Error{Kind: ErrKindFormat, Msg: fmt.Sprintf("unknown %s %q", kind, text)}
}

// UnmarshalText accepts the names MarshalText produces.
func (s *Severity) UnmarshalText(text []byte) (err error) {
	*s, err = parseName("severity", text, SevInfo, SevCritical)
	return err
}

// UnmarshalText accepts the names MarshalText produces.
func (c *DiagCategory) UnmarshalText(text []byte) (err error) {
	*c, err = parseName("diagnostic category", text, DiagHeader, DiagHive)
	return err
}

// UnmarshalText accepts Yes, No and NA.
func (e *Execute) UnmarshalText(text []byte) (err error) {
	*e, err = parseName("executed value", text, ExecutedNA, ExecutedNo)
	return err
}

// UnmarshalText accepts the labels MarshalText produces, Unknown included.
func (v *OSVersion) UnmarshalText(text []byte) (err error) {
	*v, err = parseName("OS version", text, OSUnknown, Windows10Creators)
	return err
}
