// Package hivegen builds small in-memory registry hives and transaction
// logs for tests.
package hivegen

import (
	"strings"
	"unicode/utf8"

	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/internal/format"
)

// Registry value types used by the builders.
const (
	RegSZ     = 1
	RegBinary = 3
	RegDWORD  = 4
)

// Key is a key to encode, with its values and children in stored order.
type Key struct {
	Name    string
	Values  []Value
	Subkeys []*Key
}

// Value is one value to encode.
type Value struct {
	Name string
	Type uint32
	Data []byte
}

// Child returns the named child, creating it when missing.
func (k *Key) Child(name string) *Key {
	for _, s := range k.Subkeys {
		if strings.EqualFold(s.Name, name) {
			return s
		}
	}
	c := &Key{Name: name}
	k.Subkeys = append(k.Subkeys, c)
	return c
}

// Path walks or creates a backslash-separated path below k.
func (k *Key) Path(path string) *Key {
	cur := k
	for _, seg := range strings.Split(path, `\`) {
		if seg != "" {
			cur = cur.Child(seg)
		}
	}
	return cur
}

// Set adds a value.
func (k *Key) Set(name string, typ uint32, data []byte) *Key {
	k.Values = append(k.Values, Value{Name: name, Type: typ, Data: data})
	return k
}

// String encodes s as a NUL-terminated REG_SZ payload.
func String(s string) []byte {
	return append(format.EncodeUTF16(s), 0, 0)
}

// DWORD encodes v as a REG_DWORD payload.
func DWORD(v uint32) []byte {
	b := make([]byte, 4)
	buf.PutU32LE(b, 0, v)
	return b
}

// Options controls the base block.
type Options struct {
	PrimarySequence   uint32
	SecondarySequence uint32
}

// Build encodes root as a complete hive image with a valid checksum.
func Build(root *Key, opts Options) []byte {
	if opts.PrimarySequence == 0 && opts.SecondarySequence == 0 {
		opts.PrimarySequence, opts.SecondarySequence = 1, 1
	}
	w := &writer{}
	rootOff := w.key(root, format.InvalidOffset)
	w.closeBin()

	out := make([]byte, format.HeaderSize, format.HeaderSize+len(w.data))
	copy(out, format.REGFSignature)
	buf.PutU32LE(out, format.REGFPrimarySeqOffset, opts.PrimarySequence)
	buf.PutU32LE(out, format.REGFSecondarySeqOffset, opts.SecondarySequence)
	buf.PutU64LE(out, format.REGFTimeStampOffset, 132000000000000000)
	buf.PutU32LE(out, format.REGFMajorVersionOffset, 1)
	buf.PutU32LE(out, format.REGFMinorVersionOffset, 5)
	buf.PutU32LE(out, format.REGFFormatOffset, 1)
	buf.PutU32LE(out, format.REGFRootCellOffset, rootOff)
	buf.PutU32LE(out, format.REGFDataSizeOffset, uint32(len(w.data)))
	buf.PutU32LE(out, format.REGFClusterOffset, 1)
	copy(out[format.REGFFileNameOffset:], format.EncodeUTF16(`\SystemRoot\System32\Config\SYSTEM`)[:format.REGFFileNameSize])
	buf.PutU32LE(out, format.REGFCheckSumOffset, format.Checksum(out))
	return append(out, w.data...)
}

// writer lays cells out into bins. A cell never straddles two bins; a bin
// grows past 4 KiB when a single cell needs it.
type writer struct {
	data   []byte
	binEnd int
	cur    int
}

func (w *writer) closeBin() {
	if rest := w.binEnd - w.cur; rest > 0 {
		buf.PutU32LE(w.data, w.cur, uint32(rest)) // free cell
	}
	w.cur = w.binEnd
}

func (w *writer) alloc(payload int) (uint32, []byte) {
	size := format.Align8(payload + format.CellHeaderSize)
	if w.cur+size > w.binEnd {
		w.closeBin()
		binSize := max(format.HBINAlignment, format.AlignHBIN(size+format.HBINHeaderSize))
		start := len(w.data)
		w.data = append(w.data, make([]byte, binSize)...)
		copy(w.data[start:], format.HBINSignature)
		buf.PutU32LE(w.data, start+format.HBINFileOffsetField, uint32(start))
		buf.PutU32LE(w.data, start+format.HBINSizeOffset, uint32(binSize))
		w.cur = start + format.HBINHeaderSize
		w.binEnd = start + binSize
	}
	off := w.cur
	buf.PutU32LE(w.data, off, uint32(int32(-size)))
	w.cur += size
	return uint32(off), w.data[off+format.CellHeaderSize : off+size]
}

// cell allocates a cell holding p and returns its offset.
func (w *writer) cell(p []byte) uint32 {
	off, dst := w.alloc(len(p))
	copy(dst, p)
	return off
}

func encodeName(name string) ([]byte, bool) {
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf {
			return format.EncodeUTF16(name), false
		}
	}
	return []byte(name), true
}

func (w *writer) key(k *Key, parent uint32) uint32 {
	name, compressed := encodeName(k.Name)
	nkOff, _ := w.alloc(format.NKMinSize + len(name))
	patch := func(field int, v uint32) {
		buf.PutU32LE(w.data, int(nkOff)+format.CellHeaderSize+field, v)
	}
	nk := w.data[int(nkOff)+format.CellHeaderSize:]
	copy(nk, format.NKSignature)
	var flags uint16
	if compressed {
		flags = format.NKFlagCompressedName
	}
	nk[format.NKFlagsOffset] = byte(flags)
	nk[format.NKFlagsOffset+1] = byte(flags >> 8)
	buf.PutU64LE(nk, format.NKLastWriteOffset, 132000000000000000)
	buf.PutU32LE(nk, format.NKParentOffset, parent)
	buf.PutU32LE(nk, format.NKSubkeyListOffset, format.InvalidOffset)
	buf.PutU32LE(nk, format.NKValueListOffset, format.InvalidOffset)
	nk[format.NKNameLenOffset] = byte(len(name))
	nk[format.NKNameLenOffset+1] = byte(len(name) >> 8)
	copy(nk[format.NKNameOffset:], name)

	if len(k.Values) > 0 {
		list := make([]byte, len(k.Values)*format.OffsetFieldSize)
		for i, v := range k.Values {
			buf.PutU32LE(list, i*format.OffsetFieldSize, w.value(v))
		}
		patch(format.NKValueCountOffset, uint32(len(k.Values)))
		patch(format.NKValueListOffset, w.cell(list))
	}

	if len(k.Subkeys) > 0 {
		list := make([]byte, format.ListHeaderSize+len(k.Subkeys)*format.LFEntrySize)
		copy(list, format.LHSignature)
		list[2] = byte(len(k.Subkeys))
		list[3] = byte(len(k.Subkeys) >> 8)
		for i, s := range k.Subkeys {
			child := w.key(s, nkOff)
			buf.PutU32LE(list, format.ListHeaderSize+i*format.LFEntrySize, child)
			buf.PutU32LE(list, format.ListHeaderSize+i*format.LFEntrySize+4, nameHash(s.Name))
		}
		patch(format.NKSubkeyCountOffset, uint32(len(k.Subkeys)))
		patch(format.NKSubkeyListOffset, w.cell(list))
	}
	return nkOff
}

func (w *writer) value(v Value) uint32 {
	name, compressed := encodeName(v.Name)
	vk := make([]byte, format.VKMinSize+len(name))
	copy(vk, format.VKSignature)
	vk[format.VKNameLenOffset] = byte(len(name))
	vk[format.VKNameLenOffset+1] = byte(len(name) >> 8)
	buf.PutU32LE(vk, format.VKTypeOffset, v.Type)
	if compressed {
		vk[format.VKFlagsOffset] = format.VKFlagASCIIName
	}
	copy(vk[format.VKNameOffset:], name)

	switch n := len(v.Data); {
	case n <= format.OffsetFieldSize:
		var field [4]byte
		copy(field[:], v.Data)
		buf.PutU32LE(vk, format.VKDataLenOffset, format.VKDataInlineBit|uint32(n))
		buf.PutU32LE(vk, format.VKDataOffOffset, buf.U32LE(field[:]))
	case n > format.DBChunkSize:
		buf.PutU32LE(vk, format.VKDataLenOffset, uint32(n))
		buf.PutU32LE(vk, format.VKDataOffOffset, w.bigData(v.Data))
	default:
		buf.PutU32LE(vk, format.VKDataLenOffset, uint32(n))
		buf.PutU32LE(vk, format.VKDataOffOffset, w.cell(v.Data))
	}
	return w.cell(vk)
}

// bigData stores data as a db record. Each block carries DBBlockPadding
// trailing bytes, as Windows writes them.
func (w *writer) bigData(data []byte) uint32 {
	var blocks []uint32
	for start := 0; start < len(data); start += format.DBChunkSize {
		chunk := data[start:min(start+format.DBChunkSize, len(data))]
		block := make([]byte, len(chunk)+format.DBBlockPadding)
		copy(block, chunk)
		blocks = append(blocks, w.cell(block))
	}
	list := make([]byte, len(blocks)*format.OffsetFieldSize)
	for i, b := range blocks {
		buf.PutU32LE(list, i*format.OffsetFieldSize, b)
	}
	db := make([]byte, format.DBHeaderSize)
	copy(db, format.DBSignature)
	db[format.DBCountOffset] = byte(len(blocks))
	db[format.DBCountOffset+1] = byte(len(blocks) >> 8)
	buf.PutU32LE(db, format.DBListOffset, w.cell(list))
	return w.cell(db)
}

// nameHash is the LH hash: upper-cased code units folded with factor 37.
func nameHash(name string) uint32 {
	var h uint32
	for _, r := range strings.ToUpper(name) {
		h = h*37 + uint32(r)
	}
	return h
}
