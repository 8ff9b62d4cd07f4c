// Package shim decodes AppCompatCache ("shim cache") value buffers.
//
// Seven on-disk generations are recognized: Windows XP, Vista/2003/2008,
// Windows 7, Windows 8.0, Windows 8.1, Windows 10 and the Windows 10 Creators
// Update header variant. Detect inspects the leading marker and tags to pick
// exactly one Variant; Decode runs the matching decoder and returns the
// entries for a single control set.
//
// Every decoder walks the buffer forward once. Records are produced as a lazy
// sequence; a clean end of list (tag mismatch, sentinel timestamp, end of
// buffer at a record boundary) simply ends the sequence, while corruption is
// yielded once as a *RecordError. Whether that corruption is fatal depends on
// the generation: XP and Vista carry an authoritative count and fail, the
// rest keep the entries decoded so far.
//
// Decoders never log; anomalies go to the types.DiagnosticSink passed to
// Decode.
package shim
