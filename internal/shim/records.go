package shim

import (
	"fmt"
	"iter"

	"github.com/joshuapare/shimkit/pkg/types"
)

// records is a lazy, single-use walk over a buffer's records.
//
// A clean end of list stops the sequence without an error. Corruption is
// yielded once as a *RecordError with a zero entry, after which the sequence
// ends. Position and ControlSet are assigned by collect, not the decoder.
type records = iter.Seq2[types.CacheEntry, error]

// RecordError reports a record that could not be decoded.
type RecordError struct {
	Variant  Variant
	Position int // index the record would have had
	Offset   int // absolute offset where the record starts
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("shim: %s record %d at 0x%x: %v", e.Variant, e.Position, e.Offset, e.Err)
}

// Unwrap exposes both the cause and types.ErrRecordCorrupt, so
// errors.Is(err, types.ErrRecordCorrupt) holds.
func (e *RecordError) Unwrap() []error {
	return []error{types.ErrRecordCorrupt, e.Err}
}

func corrupt(v Variant, pos, off int, err error) error {
	return &RecordError{Variant: v, Position: pos, Offset: off, Err: err}
}

// policy decides what a decode failure means for the buffer.
type policy int

const (
	// tolerant keeps everything decoded before the failure.
	tolerant policy = iota
	// strict fails the buffer when the header count was not reached.
	strict
)

// collect drains seq into a ControlSetCache, numbering entries in decode
// order.
func collect(seq records, f Format, controlSet int, p policy, sink types.DiagnosticSink) (types.ControlSetCache, error) {
	cache := types.ControlSetCache{ControlSet: controlSet, ExpectedCount: f.ExpectedCount}
	if f.ExpectedCount > 0 {
		cache.Entries = make([]types.CacheEntry, 0, min(f.ExpectedCount, 4096))
	}

	for e, err := range seq {
		if err != nil {
			if p == strict && int64(len(cache.Entries)) < f.ExpectedCount {
				return types.ControlSetCache{}, err
			}
			var off uint64
			if re, ok := err.(*RecordError); ok {
				off = uint64(re.Offset)
			}
			sink.Record(types.Diagnostic{
				Severity:   types.SevWarning,
				Category:   types.DiagRecord,
				Offset:     off,
				Structure:  f.Variant.String(),
				Issue:      "stopped at corrupt record, keeping earlier entries: " + err.Error(),
				Actual:     len(cache.Entries),
				ControlSet: controlSet,
			})
			break
		}
		e.Position = len(cache.Entries)
		e.ControlSet = controlSet
		cache.Entries = append(cache.Entries, e)
	}

	if !cache.Complete() {
		sink.Record(types.Diagnostic{
			Severity:   types.SevWarning,
			Category:   types.DiagCount,
			Offset:     uint64(countOffset(f.Variant)),
			Structure:  f.Variant.String(),
			Issue:      "decoded entry count differs from header count",
			Expected:   cache.ExpectedCount,
			Actual:     len(cache.Entries),
			ControlSet: controlSet,
		})
	}
	return cache, nil
}
