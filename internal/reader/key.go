package reader

import (
	"strings"

	"github.com/joshuapare/shimkit/internal/format"
)

// maxListDepth bounds RI nesting. Real hives use one level.
const maxListDepth = 4

func (r *Reader) nk(id NodeID) (format.NKRecord, error) {
	b, err := r.payload(uint32(id))
	if err != nil {
		return format.NKRecord{}, err
	}
	nk, err := format.DecodeNK(b)
	if err != nil {
		return format.NKRecord{}, wrapFormatErr(err)
	}
	return nk, nil
}

// KeyName returns the key's own name.
func (r *Reader) KeyName(id NodeID) (string, error) {
	if err := r.ensureOpen(); err != nil {
		return "", err
	}
	nk, err := r.nk(id)
	if err != nil {
		return "", err
	}
	name, err := nk.Name()
	if err != nil {
		return "", wrapFormatErr(err)
	}
	return name, nil
}

// Subkeys lists the key's children in stored order.
func (r *Reader) Subkeys(id NodeID) ([]NodeID, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	nk, err := r.nk(id)
	if err != nil {
		return nil, err
	}
	if nk.SubkeyCount == 0 || nk.SubkeyListOffset == format.InvalidOffset {
		return nil, nil
	}
	out := make([]NodeID, 0, nk.SubkeyCount)
	if err := r.subkeyList(nk.SubkeyListOffset, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Reader) subkeyList(off uint32, depth int, out *[]NodeID) error {
	if depth > maxListDepth {
		return wrapFormatErr(format.ErrSanityLimit)
	}
	b, err := r.payload(off)
	if err != nil {
		return err
	}
	offs, kind, err := format.DecodeSubkeyList(b)
	if err != nil {
		return wrapFormatErr(err)
	}
	if kind == format.ListRI {
		for _, sub := range offs {
			if err := r.subkeyList(sub, depth+1, out); err != nil {
				return err
			}
		}
		return nil
	}
	for _, o := range offs {
		*out = append(*out, NodeID(o))
	}
	return nil
}

// SubkeyNames lists the names of the key's children.
func (r *Reader) SubkeyNames(id NodeID) ([]string, error) {
	subs, err := r.Subkeys(id)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(subs))
	for _, s := range subs {
		n, err := r.KeyName(s)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}

// GetChild finds a direct child by name, ignoring case.
func (r *Reader) GetChild(parent NodeID, name string) (NodeID, error) {
	subs, err := r.Subkeys(parent)
	if err != nil {
		return 0, err
	}
	for _, s := range subs {
		n, err := r.KeyName(s)
		if err != nil {
			continue // skip children we can't read
		}
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, notFound("key " + name)
}
