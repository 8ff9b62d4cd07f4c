package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/joshuapare/shimkit/pkg/types"
)

// CSVWriter writes a header row and one row per entry.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
	layout string
	header bool
}

// NewCSVWriter writes CSV to w. If w is an io.Closer, Close closes it.
func NewCSVWriter(w io.Writer, opts Options) *CSVWriter {
	c := &CSVWriter{w: csv.NewWriter(w), layout: opts.layout()}
	if cl, ok := w.(io.Closer); ok {
		c.closer = cl
	}
	return c
}

func (c *CSVWriter) writeHeader() error {
	if c.header {
		return nil
	}
	c.header = true
	return c.w.Write(Columns)
}

// Write emits one row per entry.
func (c *CSVWriter) Write(entries []types.CacheEntry) error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	row := make([]string, len(Columns))
	for _, e := range entries {
		r := NewRecord(e, c.layout)
		row[0] = strconv.Itoa(r.ControlSet)
		row[1] = strconv.Itoa(r.CacheEntryPosition)
		row[2] = r.Path
		row[3] = r.LastModifiedTimeUTC
		row[4] = r.Executed
		row[5] = boolString(r.Duplicate)
		row[6] = r.SourceFile
		if err := c.w.Write(row); err != nil {
			return err
		}
	}
	c.w.Flush()
	return c.w.Error()
}

// Close writes the header if nothing was written, flushes, and closes the
// destination. If any write or the final flush failed, the destination is
// aborted instead.
func (c *CSVWriter) Close() error {
	err := c.writeHeader()
	c.w.Flush()
	if err == nil {
		err = c.w.Error()
	}
	if c.closer == nil {
		return err
	}
	if err != nil {
		_ = abort(c.closer)
		return err
	}
	return c.closer.Close()
}

// Abort discards the destination without flushing.
func (c *CSVWriter) Abort() error {
	if c.closer == nil {
		return nil
	}
	return abort(c.closer)
}

// boolString matches the True/False spelling existing shim cache CSVs use.
func boolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
