package output

import (
	"encoding/json"
	"io"

	"github.com/joshuapare/shimkit/pkg/types"
)

// JSONWriter writes one Record per line.
type JSONWriter struct {
	enc    *json.Encoder
	closer io.Closer
	layout string
	err    error // first failed write
}

// NewJSONWriter writes JSON lines to w. If w is an io.Closer, Close closes
// it.
func NewJSONWriter(w io.Writer, opts Options) *JSONWriter {
	j := &JSONWriter{enc: json.NewEncoder(w), layout: opts.layout()}
	j.enc.SetEscapeHTML(false)
	if cl, ok := w.(io.Closer); ok {
		j.closer = cl
	}
	return j
}

// Write emits one line per entry.
func (j *JSONWriter) Write(entries []types.CacheEntry) error {
	for _, e := range entries {
		if err := j.enc.Encode(NewRecord(e, j.layout)); err != nil {
			j.err = err
			return err
		}
	}
	return nil
}

// Close closes the destination, or aborts it if a write failed.
func (j *JSONWriter) Close() error {
	if j.closer == nil {
		return j.err
	}
	if j.err != nil {
		_ = abort(j.closer)
		return j.err
	}
	return j.closer.Close()
}

// Abort discards the destination.
func (j *JSONWriter) Abort() error {
	if j.closer == nil {
		return nil
	}
	return abort(j.closer)
}
