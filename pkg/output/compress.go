package output

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// compressedFile closes the compressor before the file beneath it.
type compressedFile struct {
	io.WriteCloser
	under io.Closer
}

func (c *compressedFile) Close() error {
	err := c.WriteCloser.Close()
	if err != nil {
		_ = abort(c.under)
		return err
	}
	return c.under.Close()
}

// Abort releases the compressor and discards the file beneath it.
func (c *compressedFile) Abort() error {
	_ = c.WriteCloser.Close()
	return abort(c.under)
}

// Compress wraps w with the selected compressor. Closing the result
// finishes the stream and then closes w.
func Compress(w io.WriteCloser, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressNone, "":
		return w, nil
	case CompressZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return &compressedFile{WriteCloser: enc, under: w}, nil
	case CompressGzip:
		return &compressedFile{WriteCloser: gzip.NewWriter(w), under: w}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}

// Extension is the suffix a compressor adds to file names.
func (c Compression) Extension() string {
	switch c {
	case CompressZstd:
		return ".zst"
	case CompressGzip:
		return ".gz"
	default:
		return ""
	}
}
