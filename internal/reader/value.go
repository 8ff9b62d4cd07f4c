package reader

import (
	"fmt"
	"strings"

	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/internal/format"
	"github.com/joshuapare/shimkit/pkg/types"
)

// Values lists the key's values in stored order.
func (r *Reader) Values(id NodeID) ([]ValueID, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	nk, err := r.nk(id)
	if err != nil {
		return nil, err
	}
	if nk.ValueCount == 0 || nk.ValueListOffset == format.InvalidOffset {
		return nil, nil
	}
	b, err := r.payload(nk.ValueListOffset)
	if err != nil {
		return nil, err
	}
	offs, err := format.DecodeValueList(b, nk.ValueCount)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	out := make([]ValueID, len(offs))
	for i, o := range offs {
		out[i] = ValueID(o)
	}
	return out, nil
}

func (r *Reader) vk(id ValueID) (format.VKRecord, error) {
	b, err := r.payload(uint32(id))
	if err != nil {
		return format.VKRecord{}, err
	}
	vk, err := format.DecodeVK(b)
	if err != nil {
		return format.VKRecord{}, wrapFormatErr(err)
	}
	return vk, nil
}

// GetValue finds a value of node by name, ignoring case. The empty name is
// the key's default value.
func (r *Reader) GetValue(node NodeID, name string) (ValueID, error) {
	vals, err := r.Values(node)
	if err != nil {
		return 0, err
	}
	for _, v := range vals {
		n, err := r.ValueName(v)
		if err != nil {
			continue // skip values we can't read
		}
		if strings.EqualFold(n, name) {
			return v, nil
		}
	}
	return 0, notFound("value " + name)
}

// ValueName returns the value's name.
func (r *Reader) ValueName(id ValueID) (string, error) {
	if err := r.ensureOpen(); err != nil {
		return "", err
	}
	vk, err := r.vk(id)
	if err != nil {
		return "", err
	}
	n, err := vk.Name()
	if err != nil {
		return "", wrapFormatErr(err)
	}
	return n, nil
}

// ValueType returns the value's registry type.
func (r *Reader) ValueType(id ValueID) (types.RegType, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	vk, err := r.vk(id)
	if err != nil {
		return 0, err
	}
	return types.RegType(vk.Type), nil
}

// ValueBytes returns the value's raw data. Inline and big data values are
// copied; ordinary values alias the hive image.
func (r *Reader) ValueBytes(id ValueID) ([]byte, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	vk, err := r.vk(id)
	if err != nil {
		return nil, err
	}
	length := vk.Size()
	if length > r.opts.MaxCellSize {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("value data of %d bytes exceeds MaxCellSize", length),
			Err:  types.ErrCorrupt,
		}
	}
	if vk.DataInline() {
		if length > format.OffsetFieldSize {
			return nil, &types.Error{Kind: types.ErrKindCorrupt, Msg: "inline length exceeds field", Err: types.ErrCorrupt}
		}
		var field [format.OffsetFieldSize]byte
		buf.PutU32LE(field[:], 0, vk.DataOffset)
		return append([]byte(nil), field[:length]...), nil
	}
	if length == 0 {
		return nil, nil
	}

	data, err := r.payload(vk.DataOffset)
	if err != nil {
		return nil, err
	}
	if format.IsDBRecord(data) && length > format.DBChunkSize {
		return r.bigData(data, length)
	}
	if len(data) < length {
		if !r.opts.Tolerant {
			return nil, &types.Error{Kind: types.ErrKindCorrupt, Msg: "value data truncated", Err: types.ErrCorrupt}
		}
		length = len(data)
	}
	return data[:length], nil
}

// bigData concatenates the blocks of a db record. Each block payload ends
// with DBBlockPadding bytes that are not part of the value.
func (r *Reader) bigData(rec []byte, length int) ([]byte, error) {
	db, err := format.DecodeDB(rec)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	list, err := r.payload(db.BlocklistOffset)
	if err != nil {
		return nil, fmt.Errorf("db blocklist: %w", err)
	}
	blocks, err := format.DecodeValueList(list, uint32(db.NumBlocks))
	if err != nil {
		return nil, wrapFormatErr(err)
	}

	out := make([]byte, 0, length)
	for i, off := range blocks {
		block, err := r.payload(off)
		if err != nil {
			return nil, fmt.Errorf("db block %d: %w", i, err)
		}
		if len(block) > format.DBBlockPadding {
			block = block[:len(block)-format.DBBlockPadding]
		}
		out = append(out, block[:min(len(block), length-len(out))]...)
		if len(out) == length {
			return out, nil
		}
	}
	if r.opts.Tolerant {
		return out, nil
	}
	return nil, &types.Error{
		Kind: types.ErrKindCorrupt,
		Msg:  fmt.Sprintf("db data size mismatch: expected %d bytes, got %d", length, len(out)),
		Err:  types.ErrCorrupt,
	}
}

// ValueString decodes REG_SZ and REG_EXPAND_SZ data up to the first NUL.
func (r *Reader) ValueString(id ValueID) (string, error) {
	t, err := r.ValueType(id)
	if err != nil {
		return "", err
	}
	if t != types.REG_SZ && t != types.REG_EXPAND_SZ {
		return "", &types.Error{Kind: types.ErrKindFormat, Msg: "value is " + t.String() + ", not a string"}
	}
	b, err := r.ValueBytes(id)
	if err != nil {
		return "", err
	}
	s, err := format.DecodeUTF16(b)
	if err != nil {
		return "", wrapFormatErr(err)
	}
	return s, nil
}

// ValueDWORD decodes REG_DWORD and REG_DWORD_BE data.
func (r *Reader) ValueDWORD(id ValueID) (uint32, error) {
	t, err := r.ValueType(id)
	if err != nil {
		return 0, err
	}
	b, err := r.ValueBytes(id)
	if err != nil {
		return 0, err
	}
	if len(b) < format.OffsetFieldSize {
		return 0, &types.Error{Kind: types.ErrKindFormat, Msg: fmt.Sprintf("dword value has %d bytes", len(b))}
	}
	switch t {
	case types.REG_DWORD:
		return buf.U32LE(b), nil
	case types.REG_DWORD_BE:
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
	default:
		return 0, &types.Error{Kind: types.ErrKindFormat, Msg: "value is " + t.String() + ", not a dword"}
	}
}
