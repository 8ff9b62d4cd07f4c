package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joshuapare/shimkit/internal/writer"
	"github.com/joshuapare/shimkit/pkg/types"
)

// Extension is the file suffix for f, without compression.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".jsonl"
	case FormatSQLite:
		return ".db"
	default:
		return ".csv"
	}
}

// FileName builds the default output name:
//
//	{yyyyMMddHHmmss}_{OS}_{source}[_ControlSet00N]_AppCompatCache{ext}
//
// The control set part is left out for -1. source is reduced to its base
// name with spaces replaced, so "Live Registry" becomes "Live_Registry".
func FileName(now time.Time, osv types.OSVersion, source string, controlSet int, opts Options) string {
	var b strings.Builder
	b.WriteString(now.Format("20060102150405"))
	b.WriteByte('_')
	b.WriteString(osv.String())
	b.WriteByte('_')
	b.WriteString(strings.ReplaceAll(filepath.Base(source), " ", "_"))
	if controlSet >= 0 {
		fmt.Fprintf(&b, "_ControlSet%03d", controlSet)
	}
	b.WriteString("_AppCompatCache")
	b.WriteString(opts.Format.Extension())
	if opts.Format != FormatSQLite {
		b.WriteString(opts.Compress.Extension())
	}
	return b.String()
}

// Create opens a writer for opts.Format at path, creating parent
// directories. File output only appears at path once the writer is
// closed. FormatStdout writes to stdout and ignores path.
func Create(path string, run Run, opts Options) (Writer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Format == FormatStdout {
		return NewCSVWriter(nopCloser{os.Stdout}, opts), nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &types.Error{Kind: types.ErrKindState, Msg: "create output directory", Err: err}
		}
	}
	if opts.Format == FormatSQLite {
		return NewSQLiteWriter(path, run, opts)
	}

	f, err := writer.Create(path)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindState, Msg: "create output file", Err: err}
	}
	w, err := Compress(f, opts.Compress)
	if err != nil {
		_ = f.Abort()
		return nil, err
	}
	if opts.Format == FormatJSON {
		return NewJSONWriter(w, opts), nil
	}
	return NewCSVWriter(w, opts), nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
