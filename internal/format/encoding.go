package format

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DecodeName decodes a key or value name. Compressed names are
// Windows-1252; the rest are UTF-16LE.
func DecodeName(raw []byte, compressed bool) (string, error) {
	if compressed {
		ascii := true
		for _, c := range raw {
			if c >= 0x80 {
				ascii = false
				break
			}
		}
		if ascii {
			return string(raw), nil
		}
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("name: %w", err)
		}
		return string(out), nil
	}
	return DecodeUTF16(raw)
}

// DecodeUTF16 decodes UTF-16LE text, stopping at the first NUL code unit.
func DecodeUTF16(raw []byte) (string, error) {
	n := len(raw) &^ 1
	for i := 0; i+1 < n; i += 2 {
		if raw[i] == 0 && raw[i+1] == 0 {
			n = i
			break
		}
	}
	out, err := utf16le.NewDecoder().Bytes(raw[:n])
	if err != nil {
		return "", fmt.Errorf("utf-16: %w", err)
	}
	return string(out), nil
}

// EncodeUTF16 encodes s as UTF-16LE with no terminator.
func EncodeUTF16(s string) []byte {
	out, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// Go strings always encode; invalid bytes become U+FFFD.
		return nil
	}
	return out
}
