package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/shimkit/internal/buf"
)

// VKRecord models a value key record header. VK cells describe registry
// values and reference the data either inline or via another cell.
//
//	Offset  Size  Field
//	0x00    2     'v' 'k'
//	0x02    2     Name length
//	0x04    4     Data length (bit 31 => inline)
//	0x08    4     Data offset, or the data itself when inline
//	0x0C    4     Type
//	0x10    2     Flags (bit 0 => name stored as Windows-1252)
//	0x12    2     Spare
//	0x14    n     Name bytes
type VKRecord struct {
	DataLength uint32
	DataOffset uint32
	Type       uint32
	Flags      uint16
	NameRaw    []byte
}

// NameIsASCII reports whether the name is stored as ANSI bytes.
func (vk VKRecord) NameIsASCII() bool {
	return vk.Flags&VKFlagASCIIName != 0
}

// Name decodes the value name. The default value has an empty name.
func (vk VKRecord) Name() (string, error) {
	return DecodeName(vk.NameRaw, vk.NameIsASCII())
}

// DataInline reports whether the data is stored within the DataOffset field.
func (vk VKRecord) DataInline() bool {
	return vk.DataLength&VKDataInlineBit != 0
}

// Size returns the data length with the inline bit masked off.
func (vk VKRecord) Size() int {
	return int(vk.DataLength & VKDataLengthMask)
}

// DecodeVK decodes a VK record payload.
func DecodeVK(b []byte) (VKRecord, error) {
	if len(b) < VKMinSize {
		return VKRecord{}, fmt.Errorf("vk: %w (have %d, need %d)", ErrTruncated, len(b), VKMinSize)
	}
	if !bytes.Equal(b[:SignatureSize], VKSignature) {
		return VKRecord{}, fmt.Errorf("vk: %w", ErrSignatureMismatch)
	}

	vk := VKRecord{
		DataLength: buf.U32LE(b[VKDataLenOffset:]),
		DataOffset: buf.U32LE(b[VKDataOffOffset:]),
		Type:       buf.U32LE(b[VKTypeOffset:]),
		Flags:      buf.U16LE(b[VKFlagsOffset:]),
	}
	if vk.Size() > MaxValueDataLen {
		return VKRecord{}, fmt.Errorf("vk data len %d exceeds limit %d: %w",
			vk.Size(), MaxValueDataLen, ErrSanityLimit)
	}

	nameLen := int(buf.U16LE(b[VKNameLenOffset:]))
	name, ok := buf.Slice(b, VKNameOffset, nameLen)
	if !ok {
		return VKRecord{}, fmt.Errorf("vk name: %w (need %d bytes from %d, have %d)",
			ErrTruncated, nameLen, VKNameOffset, len(b))
	}
	vk.NameRaw = name
	return vk, nil
}
