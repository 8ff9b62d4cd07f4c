// Package reader provides read-only navigation of a registry hive: keys by
// path, their subkeys, and value data. It is the layer sources use to pull
// AppCompatCache values and control-set metadata out of a SYSTEM hive.
package reader

import (
	"errors"
	"fmt"
	"time"

	"github.com/joshuapare/shimkit/internal/format"
	"github.com/joshuapare/shimkit/internal/mmfile"
	"github.com/joshuapare/shimkit/pkg/types"
)

// NodeID is the offset of a key's NK cell relative to the first HBIN.
type NodeID uint32

// ValueID is the offset of a value's VK cell relative to the first HBIN.
type ValueID uint32

// Options tunes how much damage the reader tolerates.
type Options struct {
	// MaxCellSize caps any single value's data. Zero means 64 MiB.
	MaxCellSize int
	// Tolerant returns partial value data instead of failing when a data
	// cell is shorter than its VK claims, and reads past a bad HBIN.
	Tolerant bool
}

// Info summarizes the base block.
type Info struct {
	PrimarySequence   uint32
	SecondarySequence uint32
	LastWrite         time.Time
	MajorVersion      uint32
	MinorVersion      uint32
	Type              uint32
	RootCellOffset    uint32
	HiveBinsDataSize  uint32
	HBINs             int
	Dirty             bool
	ChecksumOK        bool
}

// Reader navigates one hive image. Methods are safe for concurrent use
// until Close.
type Reader struct {
	buf    []byte
	data   []byte // buf after the base block
	unmap  func() error
	opts   Options
	head   format.Header
	hbins  int
	closed bool
}

// Open maps the hive at path.
func Open(path string, opts Options) (*Reader, error) {
	data, unmap, err := mmfile.Map(path)
	if err != nil {
		return nil, wrapIOErr(fmt.Errorf("open hive: %w", err))
	}
	r, err := newReader(data, unmap, opts)
	if err != nil {
		if unmap != nil {
			_ = unmap()
		}
		return nil, err
	}
	return r, nil
}

// OpenBytes creates a reader backed by b. b must not change while the
// reader is in use.
func OpenBytes(b []byte, opts Options) (*Reader, error) {
	return newReader(b, nil, opts)
}

func newReader(buf []byte, unmap func() error, opts Options) (*Reader, error) {
	if len(buf) < format.HeaderSize {
		return nil, wrapFormatErr(fmt.Errorf("base block: %w", format.ErrTruncated))
	}
	head, err := format.ParseHeader(buf)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	if opts.MaxCellSize <= 0 {
		opts.MaxCellSize = 64 << 20
	}

	end := format.HeaderSize + int(head.HiveBinsDataSize)
	if end > len(buf) || head.HiveBinsDataSize == 0 {
		end = len(buf)
	}
	r := &Reader{
		buf:   buf,
		data:  buf[format.HeaderSize:end],
		unmap: unmap,
		opts:  opts,
		head:  head,
	}
	if err := r.validateHBINs(); err != nil {
		return nil, err
	}
	return r, nil
}

// validateHBINs walks the bin chain once so later lookups can trust it.
func (r *Reader) validateHBINs() error {
	off := 0
	for off < len(r.data) {
		_, next, err := format.NextHBIN(r.data, off)
		if err != nil {
			if r.opts.Tolerant && r.hbins > 0 {
				r.data = r.data[:off]
				return nil
			}
			return wrapFormatErr(err)
		}
		r.hbins++
		off = next
	}
	if r.hbins == 0 {
		return &types.Error{Kind: types.ErrKindFormat, Msg: "hive has no bins", Err: types.ErrCorrupt}
	}
	return nil
}

// Close releases the mapping. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.unmap != nil {
		return r.unmap()
	}
	return nil
}

// Bytes returns the whole hive image. It must not be modified and is only
// valid until Close.
func (r *Reader) Bytes() []byte {
	return r.buf
}

func (r *Reader) ensureOpen() error {
	if r.closed {
		return &types.Error{Kind: types.ErrKindState, Msg: "reader is closed"}
	}
	return nil
}

// Info reports base block fields and the dirty state.
func (r *Reader) Info() Info {
	return Info{
		PrimarySequence:   r.head.PrimarySequence,
		SecondarySequence: r.head.SecondarySequence,
		LastWrite:         format.FiletimeToTime(r.head.LastWriteRaw),
		MajorVersion:      r.head.MajorVersion,
		MinorVersion:      r.head.MinorVersion,
		Type:              r.head.Type,
		RootCellOffset:    r.head.RootCellOffset,
		HiveBinsDataSize:  r.head.HiveBinsDataSize,
		HBINs:             r.hbins,
		Dirty:             r.head.Dirty(),
		ChecksumOK:        format.VerifyChecksum(r.buf) == nil,
	}
}

// Root returns the root key.
func (r *Reader) Root() (NodeID, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	return NodeID(r.head.RootCellOffset), nil
}

func (r *Reader) payload(off uint32) ([]byte, error) {
	b, err := format.Payload(r.data, off)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	return b, nil
}

// Error helpers --------------------------------------------------------------

func wrapIOErr(err error) error {
	return &types.Error{Kind: types.ErrKindState, Msg: err.Error(), Err: err}
}

func wrapFormatErr(err error) error {
	switch {
	case errors.Is(err, format.ErrSignatureMismatch):
		return &types.Error{Kind: types.ErrKindFormat, Msg: err.Error(), Err: types.ErrNotHive}
	case errors.Is(err, format.ErrTruncated):
		return &types.Error{Kind: types.ErrKindFormat, Msg: "hive truncated", Err: err}
	case errors.Is(err, format.ErrFreeCell):
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: "cell marked free", Err: err}
	case errors.Is(err, format.ErrNotFound):
		return &types.Error{Kind: types.ErrKindNotFound, Msg: err.Error(), Err: types.ErrNotFound}
	default:
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: err.Error(), Err: err}
	}
}

func notFound(what string) error {
	return &types.Error{Kind: types.ErrKindNotFound, Msg: what, Err: types.ErrNotFound}
}
