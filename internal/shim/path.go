package shim

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/joshuapare/shimkit/internal/buf"
	textunicode "golang.org/x/text/encoding/unicode"
)

// devicePrefix is the NT object-manager prefix some generations store in
// front of DOS paths.
const devicePrefix = `\??\`

var utf16le = textunicode.UTF16(textunicode.LittleEndian, textunicode.IgnoreBOM)

// decodePath decodes a UTF-16LE path and strips a leading device prefix.
func decodePath(raw []byte) (string, error) {
	out, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("utf-16 path: %w", err)
	}
	return strings.TrimPrefix(string(out), devicePrefix), nil
}

// pathAt decodes size bytes of path text at an absolute buffer offset.
func pathAt(b []byte, off uint64, size int) (string, error) {
	start, ok := toInt(off)
	if !ok {
		return "", fmt.Errorf("path offset 0x%x overflows", off)
	}
	raw, ok := buf.Slice(b, start, size)
	if !ok {
		return "", fmt.Errorf("path [0x%x, +%d) outside buffer of %d bytes", start, size, len(b))
	}
	return decodePath(raw)
}

// fixedPath decodes a NUL-padded fixed-width UTF-16LE field. Text after the
// first NUL code unit is discarded and trailing whitespace trimmed. The
// returned size is the byte length before the terminator.
func fixedPath(field []byte) (string, int, error) {
	n := len(field) &^ 1
	for i := 0; i+1 < len(field); i += 2 {
		if field[i] == 0 && field[i+1] == 0 {
			n = i
			break
		}
	}
	s, err := decodePath(field[:n])
	if err != nil {
		return "", 0, err
	}
	return strings.TrimRightFunc(s, unicode.IsSpace), n, nil
}

func toInt(v uint64) (int, bool) {
	if v > uint64(int(^uint(0)>>1)) {
		return 0, false
	}
	return int(v), true
}
