// Package shimgen builds synthetic AppCompatCache buffers for tests, one
// builder per Windows generation.
package shimgen

import (
	"fmt"
	"time"

	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/internal/format"
	textunicode "golang.org/x/text/encoding/unicode"
)

// Layout constants, kept independent of the decoder so tests cross-check it.
const (
	markerXP    = 0xDEADBEEF
	markerVista = 0xBADC0FFE
	markerWin7  = 0xBADC0FEE
	tagWin80    = "00ts"
	tagWin81    = "10ts"
	tagWin10    = "10ts"

	win10HeaderSize         = 0x30
	win10CreatorsHeaderSize = 0x34
	minBufferSize           = 132
)

// Entry is one record to encode.
type Entry struct {
	Path     string
	Modified time.Time // zero encodes FILETIME 0
	Raw      uint64    // overrides Modified when non-zero
	Flags    uint32
	Package  string // Windows 8.1 only
	Data     []byte
}

// Filetime is the FILETIME the builders store for e.
func (e Entry) Filetime() uint64 {
	if e.Raw != 0 {
		return e.Raw
	}
	if e.Modified.IsZero() {
		return 0
	}
	return format.TimeToFiletime(e.Modified)
}

// Entries returns n deterministic entries. Every third path carries a \??\
// prefix; even positions have the executed flag set and matching Windows 10
// data. Paths are long enough that no Windows 10 record can put a tag at
// offset 128.
func Entries(n int) []Entry {
	base := time.Date(2015, 6, 1, 8, 0, 0, 0, time.UTC)
	out := make([]Entry, n)
	for i := range out {
		prefix := ""
		if i%3 == 0 {
			prefix = `\??\`
		}
		flags := uint32(0x1)
		if i%2 == 0 {
			flags |= 0x2
		}
		out[i] = Entry{
			Path:     fmt.Sprintf(`%sC:\Program Files\Vendor\Application\bin\tool%05d.exe`, prefix, i),
			Modified: base.Add(time.Duration(i) * time.Hour),
			Flags:    flags,
			Package:  fmt.Sprintf("Vendor.App_%d", i),
			Data:     ExecData(flags&0x2 != 0),
		}
	}
	return out
}

// ExecData returns an 8-byte data blob whose trailing int32 is 1 when exec.
func ExecData(exec bool) []byte {
	d := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0, 0, 0, 0}
	if exec {
		d[4] = 1
	}
	return d
}

// UTF16 encodes s as UTF-16LE without a BOM or terminator.
func UTF16(s string) []byte {
	out, err := textunicode.UTF16(textunicode.LittleEndian, textunicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	return out
}

type writer struct{ b []byte }

func (w *writer) u16(v uint16) { w.b = append(w.b, byte(v), byte(v>>8)) }
func (w *writer) u32(v uint32) { w.b = append(w.b, 0, 0, 0, 0); buf.PutU32LE(w.b, len(w.b)-4, v) }
func (w *writer) u64(v uint64) {
	w.b = append(w.b, make([]byte, 8)...)
	buf.PutU64LE(w.b, len(w.b)-8, v)
}
func (w *writer) raw(p []byte) { w.b = append(w.b, p...) }
func (w *writer) pad(n int)    { w.b = append(w.b, make([]byte, n)...) }

// XP builds a 32-bit Windows XP buffer with slots record slots, the first
// len(entries) of them populated. slots is also the header count.
func XP(entries []Entry, slots int) []byte {
	b := make([]byte, 400+slots*552)
	buf.PutU32LE(b, 0, markerXP)
	buf.PutU32LE(b, 4, uint32(slots))
	buf.PutU32LE(b, 8, uint32(slots))
	for i, e := range entries {
		off := 400 + i*552
		copy(b[off:off+528], UTF16(e.Path))
		buf.PutU64LE(b, off+528, e.Filetime())
		buf.PutU64LE(b, off+536, 4096)
		buf.PutU64LE(b, off+544, e.Filetime())
	}
	return b
}

// Vista builds a Vista/2003/2008 buffer. Path text is pooled after the
// record table.
func Vista(entries []Entry, is32 bool) []byte {
	recSize := 32
	if is32 {
		recSize = 24
	}
	poolOff := 8 + len(entries)*recSize
	w := &writer{}
	w.u32(markerVista)
	w.u32(uint32(len(entries)))
	var pool []byte
	for _, e := range entries {
		p := UTF16(e.Path)
		off := poolOff + len(pool)
		pool = append(pool, p...)
		w.u16(uint16(len(p)))
		w.u16(uint16(len(p) + 2))
		if is32 {
			w.u32(uint32(off))
		} else {
			w.pad(4)
			w.u64(uint64(off))
		}
		w.u64(e.Filetime())
		w.u32(e.Flags)
		w.u32(0)
	}
	w.raw(pool)
	return padMin(w.b)
}

// Win7 builds a Windows 7 buffer with a path pool and a data pool after the
// record table.
func Win7(entries []Entry, is32 bool) []byte {
	recSize := 48
	if is32 {
		recSize = 32
	}
	pathPoolOff := 128 + len(entries)*recSize
	var paths, data []byte
	for _, e := range entries {
		paths = append(paths, UTF16(e.Path)...)
	}
	dataPoolOff := pathPoolOff + len(paths)

	w := &writer{}
	w.u32(markerWin7)
	w.u32(uint32(len(entries)))
	w.pad(120)
	pathCursor := pathPoolOff
	for _, e := range entries {
		p := UTF16(e.Path)
		dataOff := 0
		if len(e.Data) > 0 {
			dataOff = dataPoolOff + len(data)
			data = append(data, e.Data...)
		}
		w.u16(uint16(len(p)))
		w.u16(uint16(len(p) + 2))
		if is32 {
			w.u32(uint32(pathCursor))
		} else {
			w.pad(4)
			w.u64(uint64(pathCursor))
		}
		w.u64(e.Filetime())
		w.u32(e.Flags)
		w.u32(0)
		if is32 {
			w.u32(uint32(len(e.Data)))
			w.u32(uint32(dataOff))
		} else {
			w.u64(uint64(len(e.Data)))
			w.u64(uint64(dataOff))
		}
		pathCursor += len(p)
	}
	w.raw(paths)
	w.raw(data)
	return padMin(w.b)
}

// Win8 builds a Windows 8.0 buffer, or 8.1 when v81 is set.
func Win8(entries []Entry, v81 bool) []byte {
	tag := tagWin80
	if v81 {
		tag = tagWin81
	}
	w := &writer{}
	w.u32(0x80)
	w.pad(124)
	for _, e := range entries {
		body := &writer{}
		p := UTF16(e.Path)
		body.u16(uint16(len(p)))
		body.raw(p)
		if v81 {
			pkg := UTF16(e.Package)
			body.u16(uint16(len(pkg)))
			body.raw(pkg)
		}
		body.u32(e.Flags)
		body.u32(0)
		body.u64(e.Filetime())
		body.u32(uint32(len(e.Data)))
		body.raw(e.Data)

		w.raw([]byte(tag))
		w.u32(0)
		w.u32(uint32(len(body.b)))
		w.raw(body.b)
	}
	return padMin(w.b)
}

// Win10 builds a Windows 10 buffer, using the Creators Update header when
// creators is set. The header count is len(entries).
func Win10(entries []Entry, creators bool) []byte {
	return Win10WithCount(entries, creators, uint32(len(entries)))
}

// Win10WithCount is Win10 with an explicit header count.
func Win10WithCount(entries []Entry, creators bool, count uint32) []byte {
	header := win10HeaderSize
	countOff := 0x24
	if creators {
		header = win10CreatorsHeaderSize
		countOff = 0x28
	}
	w := &writer{}
	w.pad(header)
	buf.PutU32LE(w.b, 0, uint32(header))
	buf.PutU32LE(w.b, countOff, count)
	for _, e := range entries {
		body := &writer{}
		p := UTF16(e.Path)
		body.u16(uint16(len(p)))
		body.raw(p)
		body.u64(e.Filetime())
		body.u32(uint32(len(e.Data)))
		body.raw(e.Data)

		w.raw([]byte(tagWin10))
		w.u32(0)
		w.u32(uint32(len(body.b)))
		w.raw(body.b)
	}
	return padMin(w.b)
}

// padMin zero-pads b to the minimum size Detect accepts. Real buffers are
// always padded well past it.
func padMin(b []byte) []byte {
	if len(b) < minBufferSize {
		b = append(b, make([]byte, minBufferSize-len(b))...)
	}
	return b
}
