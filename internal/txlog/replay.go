package txlog

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/internal/format"
	"github.com/joshuapare/shimkit/pkg/types"
)

// Result describes what a replay did.
type Result struct {
	Applied  int    // entries applied
	Pages    int    // pages written
	Sequence uint32 // sequence stamped into the result; 0 when nothing applied
	WasDirty bool
}

// Replay applies logs to a copy of hive and returns it. A clean hive is
// returned as an unchanged copy. Logs are taken in order of their first
// sequence number; entries older than the hive are skipped and a gap ends
// the replay.
func Replay(hive []byte, logs ...*Log) ([]byte, Result, error) {
	head, err := format.ParseHeader(hive)
	if err != nil {
		return nil, Result{}, &types.Error{Kind: types.ErrKindFormat, Msg: "hive base block", Err: err}
	}
	out := bytes.Clone(hive)
	res := Result{WasDirty: head.Dirty()}
	if !res.WasDirty {
		return out, res, nil
	}

	ordered := slices.Clone(logs)
	slices.SortStableFunc(ordered, func(a, b *Log) int {
		return cmp.Compare(a.FirstSequence(), b.FirstSequence())
	})

	next := head.SecondarySequence
	dataSize := head.HiveBinsDataSize
replay:
	for _, l := range ordered {
		for _, e := range l.Entries {
			if e.Sequence < next {
				continue
			}
			if e.Sequence != next {
				break replay
			}
			out, err = apply(out, e)
			if err != nil {
				return nil, Result{}, err
			}
			dataSize = e.HiveBinsDataSize
			res.Applied++
			res.Pages += len(e.Pages)
			res.Sequence = e.Sequence
			next++
		}
	}

	if res.Applied > 0 {
		buf.PutU32LE(out, format.REGFDataSizeOffset, dataSize)
		format.SetSequences(out, res.Sequence)
	}
	return out, res, nil
}

// apply writes the entry's pages, growing the image to the entry's data
// size first.
func apply(out []byte, e Entry) ([]byte, error) {
	want := format.HeaderSize + int(e.HiveBinsDataSize)
	if want > len(out) {
		out = append(out, make([]byte, want-len(out))...)
	}
	for _, p := range e.Pages {
		start := format.HeaderSize + int(p.Offset)
		if !buf.Has(out, start, len(p.Data)) {
			return nil, &types.Error{
				Kind: types.ErrKindCorrupt,
				Msg:  fmt.Sprintf("log entry %d: page at 0x%x past hive bins size 0x%x", e.Sequence, p.Offset, e.HiveBinsDataSize),
				Err:  types.ErrCorrupt,
			}
		}
		copy(out[start:], p.Data)
	}
	return out, nil
}
