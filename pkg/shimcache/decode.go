package shimcache

import (
	"github.com/joshuapare/shimkit/internal/shim"
	"github.com/joshuapare/shimkit/pkg/types"
)

// Decode decodes a single AppCompatCache buffer. controlSet is stamped on
// every entry; use -1 when the buffer did not come from a numbered control
// set. A nil sink discards diagnostics.
func Decode(b []byte, is32 bool, controlSet int, sink types.DiagnosticSink) (types.ControlSetCache, types.OSVersion, error) {
	cache, f, err := shim.Decode(b, is32, controlSet, sink)
	return cache, f.OS, err
}

// Detect reports which OS generation wrote b without decoding any records.
func Detect(b []byte, is32 bool) (types.OSVersion, error) {
	f, err := shim.Detect(b, is32)
	return f.OS, err
}
