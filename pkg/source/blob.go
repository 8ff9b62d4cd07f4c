package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/joshuapare/shimkit/pkg/types"
)

// maxBlobSize caps a decompressed value dump. Real caches are well under
// 2 MiB.
const maxBlobSize = 64 << 20

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic = []byte{0x1F, 0x8B}
)

// BlobSource serves a single raw AppCompatCache value, for example one
// exported with "reg query" or carved from memory. It has no control sets;
// its one buffer is reported as control set -1.
type BlobSource struct {
	name string
	data []byte
	is32 bool
}

// OpenBlob reads a value dump from path. zstd and gzip compressed dumps are
// recognized by their magic bytes and decompressed.
func OpenBlob(path string, is32 bool) (*BlobSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindState, Msg: "open blob", Err: err}
	}
	defer f.Close()
	return NewBlob(filepath.Base(path), f, is32)
}

// NewBlob reads a value dump from r.
func NewBlob(name string, r io.Reader, is32 bool) (*BlobSource, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxBlobSize+1))
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindState, Msg: "read blob " + name, Err: err}
	}
	data, err := decompress(raw)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "decompress blob " + name, Err: err}
	}
	if len(data) > maxBlobSize {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: fmt.Sprintf("blob %s exceeds %d bytes", name, maxBlobSize)}
	}
	return &BlobSource{name: name, data: data, is32: is32}, nil
}

func decompress(raw []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(raw, zstdMagic):
		dec, err := zstd.NewReader(bytes.NewReader(raw),
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxBlobSize))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(io.LimitReader(dec, maxBlobSize+1))
	case bytes.HasPrefix(raw, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(io.LimitReader(zr, maxBlobSize+1))
	default:
		return raw, nil
	}
}

// Name is the blob's label.
func (b *BlobSource) Name() string { return b.name }

// ControlSets always returns [-1].
func (b *BlobSource) ControlSets(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []int{-1}, nil
}

// CurrentControlSet always returns -1.
func (b *BlobSource) CurrentControlSet(ctx context.Context) (int, error) {
	return -1, ctx.Err()
}

// AppCompatCache returns a copy of the blob for control set -1.
func (b *BlobSource) AppCompatCache(ctx context.Context, cs int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cs != -1 {
		return nil, notFound("%s has no control set %d", b.name, cs)
	}
	return slices.Clone(b.data), nil
}

// Is32Bit returns the bitness given when the blob was opened.
func (b *BlobSource) Is32Bit(ctx context.Context) (bool, error) {
	return b.is32, ctx.Err()
}

// Close is a no-op.
func (b *BlobSource) Close() error { return nil }

var _ Source = (*BlobSource)(nil)
