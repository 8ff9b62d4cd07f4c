// Package output writes post-processed cache entries as CSV, JSON lines or
// SQLite, optionally compressed.
//
// Every format emits the same fields, in this order:
//
//	ControlSet, CacheEntryPosition, Path, LastModifiedTimeUTC, Executed,
//	Duplicate, SourceFile
//
// PathSize, InsertFlags, OpaqueData and RecordSize stay in memory only.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/joshuapare/shimkit/pkg/types"
)

// DefaultTimeLayout renders timestamps as "2006-01-02 15:04:05".
const DefaultTimeLayout = time.DateTime

// Format selects the writer.
type Format string

const (
	// FormatCSV writes a header row followed by one row per entry.
	FormatCSV Format = "csv"

	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"

	// FormatSQLite writes runs, entries and buffers tables to a database.
	FormatSQLite Format = "sqlite"

	// FormatStdout writes CSV to standard output instead of a file.
	FormatStdout Format = "stdout"
)

// Formats lists every accepted Format.
var Formats = []Format{FormatCSV, FormatJSON, FormatSQLite, FormatStdout}

// Compression selects a stream compressor for file output.
type Compression string

const (
	CompressNone Compression = "none"
	CompressZstd Compression = "zstd"
	CompressGzip Compression = "gzip"
)

// Options controls emission.
type Options struct {
	// Format selects the writer.
	// Default: FormatCSV
	Format Format

	// TimeLayout is the Go layout for LastModifiedTimeUTC. Absent
	// timestamps are always written as an empty string.
	// Default: DefaultTimeLayout
	TimeLayout string

	// Compress wraps CSV and JSON files. SQLite and stdout output are
	// never compressed.
	// Default: CompressNone
	Compress Compression
}

// DefaultOptions returns CSV output with the default time layout.
func DefaultOptions() Options {
	return Options{
		Format:     FormatCSV,
		TimeLayout: DefaultTimeLayout,
		Compress:   CompressNone,
	}
}

// Validate checks the enums.
func (o Options) Validate() error {
	switch o.Format {
	case FormatCSV, FormatJSON, FormatSQLite, FormatStdout:
	default:
		return fmt.Errorf("unknown output format %q (want csv, json, sqlite or stdout)", o.Format)
	}
	switch o.Compress {
	case CompressNone, CompressZstd, CompressGzip, "":
	default:
		return fmt.Errorf("unknown compression %q (want none, zstd or gzip)", o.Compress)
	}
	return nil
}

func (o Options) layout() string {
	if o.TimeLayout == "" {
		return DefaultTimeLayout
	}
	return o.TimeLayout
}

// Record is the emitted form of one entry.
type Record struct {
	ControlSet          int    `json:"ControlSet"`
	CacheEntryPosition  int    `json:"CacheEntryPosition"`
	Path                string `json:"Path"`
	LastModifiedTimeUTC string `json:"LastModifiedTimeUTC"`
	Executed            string `json:"Executed"`
	Duplicate           bool   `json:"Duplicate"`
	SourceFile          string `json:"SourceFile"`
}

// Columns are the CSV header names, in emission order.
var Columns = []string{
	"ControlSet", "CacheEntryPosition", "Path", "LastModifiedTimeUTC",
	"Executed", "Duplicate", "SourceFile",
}

// NewRecord flattens e. The timestamp is formatted in UTC with layout.
func NewRecord(e types.CacheEntry, layout string) Record {
	r := Record{
		ControlSet:         e.ControlSet,
		CacheEntryPosition: e.Position,
		Path:               e.Path,
		Executed:           e.Executed.String(),
		Duplicate:          e.Duplicate,
		SourceFile:         e.Source,
	}
	if e.LastModified != nil {
		r.LastModifiedTimeUTC = e.LastModified.UTC().Format(layout)
	}
	return r
}

// Writer receives entries control set by control set.
type Writer interface {
	// Write emits entries in the order given.
	Write(entries []types.CacheEntry) error

	// Close flushes and releases the destination. The Writer is unusable
	// afterwards.
	Close() error

	// Abort releases the destination without completing it. A file
	// destination is removed. The Writer is unusable afterwards.
	Abort() error
}

// Aborter is implemented by destinations that can be discarded instead of
// committed, such as staged files.
type Aborter interface {
	Abort() error
}

// abort discards c when it supports that and closes it otherwise.
func abort(c io.Closer) error {
	if a, ok := c.(Aborter); ok {
		return a.Abort()
	}
	return c.Close()
}

// BufferInfo describes one decoded buffer. Writers that keep run metadata
// (SQLite) implement BufferRecorder to store it.
type BufferInfo struct {
	ControlSet    int
	Digest        string
	Size          int
	ExpectedCount int64
	Decoded       int
	Variant       string
}

// BufferRecorder is implemented by writers that store buffer metadata.
type BufferRecorder interface {
	WriteBuffer(b BufferInfo) error
}
