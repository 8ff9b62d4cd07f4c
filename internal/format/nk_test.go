package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func nkPayload(name []byte, flags uint16) []byte {
	buf := make([]byte, NKMinSize+len(name))
	copy(buf, NKSignature)
	binary.LittleEndian.PutUint16(buf[NKFlagsOffset:], flags)
	binary.LittleEndian.PutUint64(buf[NKLastWriteOffset:], 0xfeedface)
	binary.LittleEndian.PutUint32(buf[NKParentOffset:], 0xFFFFFFFF)
	binary.LittleEndian.PutUint32(buf[NKSubkeyCountOffset:], 1)
	binary.LittleEndian.PutUint32(buf[NKSubkeyListOffset:], 0x200)
	binary.LittleEndian.PutUint32(buf[NKValueCountOffset:], 2)
	binary.LittleEndian.PutUint32(buf[NKValueListOffset:], 0x300)
	binary.LittleEndian.PutUint16(buf[NKNameLenOffset:], uint16(len(name)))
	copy(buf[NKNameOffset:], name)
	return buf
}

func TestDecodeNKCompressedName(t *testing.T) {
	nk, err := DecodeNK(nkPayload([]byte("ROOT"), NKFlagCompressedName))
	if err != nil {
		t.Fatalf("DecodeNK: %v", err)
	}
	if string(nk.NameRaw) != "ROOT" || !nk.NameIsCompressed() {
		t.Fatalf("unexpected name: %+v", nk)
	}
	if nk.SubkeyCount != 1 || nk.ValueCount != 2 || nk.SubkeyListOffset != 0x200 || nk.ValueListOffset != 0x300 {
		t.Fatalf("unexpected counts: %+v", nk)
	}
}

// Compressed names are Windows-1252, not Latin-1: 0x80 is the euro sign.
func TestDecodeNKWindows1252Name(t *testing.T) {
	nk, err := DecodeNK(nkPayload([]byte{'C', 'o', 's', 't', 0x80}, NKFlagCompressedName))
	if err != nil {
		t.Fatalf("DecodeNK: %v", err)
	}
	got, err := nk.Name()
	if err != nil || got != "Cost€" {
		t.Fatalf("Name() = %q, %v", got, err)
	}
}

func TestDecodeNKUTF16Name(t *testing.T) {
	nk, err := DecodeNK(nkPayload(EncodeUTF16("abcd_äöüß"), 0))
	if err != nil {
		t.Fatalf("DecodeNK: %v", err)
	}
	got, err := nk.Name()
	if err != nil || got != "abcd_äöüß" {
		t.Fatalf("Name() = %q, %v", got, err)
	}
}

func TestDecodeNKErrors(t *testing.T) {
	buf := make([]byte, 2)
	copy(buf, NKSignature)
	if _, err := DecodeNK(buf); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncation error, got %v", err)
	}

	big := nkPayload([]byte("X"), NKFlagCompressedName)
	binary.LittleEndian.PutUint32(big[NKSubkeyCountOffset:], MaxSubkeyCount+1)
	if _, err := DecodeNK(big); !errors.Is(err, ErrSanityLimit) {
		t.Fatalf("expected sanity limit error, got %v", err)
	}

	short := nkPayload([]byte("NAME"), NKFlagCompressedName)
	if _, err := DecodeNK(short[:len(short)-2]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected name truncation, got %v", err)
	}
}
