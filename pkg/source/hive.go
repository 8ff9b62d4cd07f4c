package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/joshuapare/shimkit/internal/mmfile"
	"github.com/joshuapare/shimkit/internal/reader"
	"github.com/joshuapare/shimkit/internal/txlog"
	"github.com/joshuapare/shimkit/internal/writer"
	"github.com/joshuapare/shimkit/pkg/types"
)

// HiveOptions controls how a hive file is opened.
type HiveOptions struct {
	// IgnoreLogs reads a dirty hive as is instead of replaying its
	// transaction logs, and allows a dirty hive that has none.
	IgnoreLogs bool

	// Tolerant lets the reader skip a damaged tail of hive bins.
	Tolerant bool

	// Sink receives hive-level diagnostics (dirty state, log problems).
	// Nil discards.
	Sink types.DiagnosticSink
}

// HiveState describes the hive as found on disk.
type HiveState struct {
	Path          string
	LastWrite     time.Time
	MajorVersion  uint32
	MinorVersion  uint32
	Dirty         bool
	Logs          []string // transaction logs found next to the hive
	Recovered     bool     // logs were replayed onto an in-memory copy
	LogEntries    int      // entries applied during recovery
	Sequence      uint32   // sequence number after recovery
	ChecksumValid bool
}

// HiveSource reads AppCompatCache values from an offline SYSTEM hive.
// Methods are safe for concurrent use until Close.
type HiveSource struct {
	name  string
	r     *reader.Reader
	state HiveState

	once    sync.Once
	sets    map[int]reader.ValueID
	setsErr error

	mu     sync.Mutex
	closed bool
}

// OpenHive opens a SYSTEM hive. A dirty hive has its transaction logs
// (base name plus .LOG1 and .LOG2, same directory) replayed onto a private
// copy; the file on disk is never modified. A dirty hive without logs is a
// State error unless opts.IgnoreLogs is set.
func OpenHive(path string, opts HiveOptions) (*HiveSource, error) {
	sink := opts.Sink
	if sink == nil {
		sink = types.DiscardDiagnostics
	}
	ropts := reader.Options{Tolerant: opts.Tolerant}
	r, err := reader.Open(path, ropts)
	if err != nil {
		return nil, err
	}

	info := r.Info()
	state := HiveState{
		Path:          path,
		LastWrite:     info.LastWrite,
		MajorVersion:  info.MajorVersion,
		MinorVersion:  info.MinorVersion,
		Dirty:         info.Dirty,
		Sequence:      info.SecondarySequence,
		ChecksumValid: info.ChecksumOK,
	}
	if !info.ChecksumOK {
		sink.Record(types.Diagnostic{
			Severity:   types.SevWarning,
			Category:   types.DiagHive,
			Offset:     0x1FC,
			Structure:  "base block",
			Issue:      "checksum mismatch",
			ControlSet: -1,
		})
	}

	if info.Dirty {
		state.Logs = findLogs(path)
		r, err = recoverHive(r, &state, ropts, opts.IgnoreLogs, sink)
		if err != nil {
			return nil, err
		}
	}

	return &HiveSource{
		name:  filepath.Base(path),
		r:     r,
		state: state,
	}, nil
}

// recoverHive replays the logs in state.Logs onto a copy of r's image and
// returns a reader over the result. r is closed when it is replaced.
func recoverHive(r *reader.Reader, state *HiveState, ropts reader.Options, ignore bool, sink types.DiagnosticSink) (*reader.Reader, error) {
	info := r.Info()
	dirty := types.Diagnostic{
		Severity:   types.SevWarning,
		Category:   types.DiagHive,
		Offset:     0x04,
		Structure:  "base block",
		Expected:   info.SecondarySequence,
		Actual:     info.PrimarySequence,
		ControlSet: -1,
	}
	switch {
	case len(state.Logs) == 0 && !ignore:
		_ = r.Close()
		return nil, &types.Error{
			Kind: types.ErrKindState,
			Msg: fmt.Sprintf("%s is dirty (sequence %d != %d) and no transaction logs were found next to it; "+
				"logs must share the hive's base name", state.Path, info.PrimarySequence, info.SecondarySequence),
		}
	case len(state.Logs) == 0:
		dirty.Issue = "hive is dirty and has no transaction logs; data may be missing"
		sink.Record(dirty)
		return r, nil
	case ignore:
		dirty.Issue = "hive is dirty and transaction logs were ignored; data may be missing"
		sink.Record(dirty)
		return r, nil
	}

	var (
		logs   []*txlog.Log
		unmaps []func() error
	)
	defer func() {
		for _, u := range unmaps {
			if u != nil {
				_ = u()
			}
		}
	}()
	for _, p := range state.Logs {
		b, unmap, err := mmfile.Map(p)
		if err != nil {
			return nil, &types.Error{Kind: types.ErrKindState, Msg: "open transaction log " + p, Err: err}
		}
		unmaps = append(unmaps, unmap)
		l, err := txlog.Parse(b)
		if err != nil {
			sink.Record(types.Diagnostic{
				Severity:   types.SevError,
				Category:   types.DiagHive,
				Structure:  filepath.Base(p),
				Issue:      "transaction log skipped: " + err.Error(),
				ControlSet: -1,
			})
			continue
		}
		logs = append(logs, l)
	}

	img, res, err := txlog.Replay(r.Bytes(), logs...)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	if res.Applied == 0 {
		dirty.Issue = "transaction logs hold no entries for this hive; data may be missing"
		sink.Record(dirty)
		return r, nil
	}

	recovered, err := reader.OpenBytes(img, ropts)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("recovered hive: %w", err)
	}
	_ = r.Close()
	state.Recovered = true
	state.LogEntries = res.Applied
	state.Sequence = res.Sequence
	return recovered, nil
}

// findLogs returns the hive's LOG1 and LOG2 siblings, matching the base
// name without regard to case.
func findLogs(path string) []string {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.EqualFold(n, base+".LOG1") || strings.EqualFold(n, base+".LOG2") {
			out = append(out, filepath.Join(dir, n))
		}
	}
	slices.Sort(out)
	return out
}

// Name is the hive's base file name.
func (h *HiveSource) Name() string { return h.name }

// State reports how the hive was found and whether it was recovered.
func (h *HiveSource) State() HiveState {
	s := h.state
	s.Logs = slices.Clone(s.Logs)
	return s
}

func (h *HiveSource) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errClosed(h.name)
	}
	return nil
}

// ControlSets lists ControlSet001 to ControlSet009 that hold a cache value.
func (h *HiveSource) ControlSets(ctx context.Context) ([]int, error) {
	if err := h.check(ctx); err != nil {
		return nil, err
	}
	h.once.Do(h.scan)
	if h.setsErr != nil {
		return nil, h.setsErr
	}
	out := make([]int, 0, len(h.sets))
	for cs := range h.sets {
		out = append(out, cs)
	}
	slices.Sort(out)
	return out, nil
}

func (h *HiveSource) scan() {
	h.sets = make(map[int]reader.ValueID)
	for cs := 1; cs <= maxControlSet; cs++ {
		if v, err := h.cacheValue(cs); err == nil {
			h.sets[cs] = v
		} else if !types.IsKind(err, types.ErrKindNotFound) {
			h.setsErr = err
			return
		}
	}
}

// cacheValue finds the AppCompatCache value of cs, trying the
// AppCompatibility key that Windows XP uses when the modern key is absent.
func (h *HiveSource) cacheValue(cs int) (reader.ValueID, error) {
	prefix := controlSetKey(cs) + `\`
	for _, key := range []string{cachePath, legacyCachePath} {
		node, err := h.r.Find(prefix + key)
		if err != nil {
			if types.IsKind(err, types.ErrKindNotFound) {
				continue
			}
			return 0, err
		}
		v, err := h.r.GetValue(node, cacheValue)
		if err == nil {
			return v, nil
		}
		if !types.IsKind(err, types.ErrKindNotFound) {
			return 0, err
		}
	}
	return 0, notFound("%s has no %s value", controlSetKey(cs), cacheValue)
}

// CurrentControlSet reads Select\Current.
func (h *HiveSource) CurrentControlSet(ctx context.Context) (int, error) {
	if err := h.check(ctx); err != nil {
		return 0, err
	}
	node, err := h.r.Find(selectPath)
	if err != nil {
		return 0, err
	}
	v, err := h.r.GetValue(node, currentValue)
	if err != nil {
		return 0, err
	}
	cur, err := h.r.ValueDWORD(v)
	if err != nil {
		return 0, err
	}
	return int(cur), nil
}

// AppCompatCache returns a copy of the value for cs.
func (h *HiveSource) AppCompatCache(ctx context.Context, cs int) ([]byte, error) {
	if _, err := h.ControlSets(ctx); err != nil {
		return nil, err
	}
	v, ok := h.sets[cs]
	if !ok {
		return nil, notFound("%s not found in %s", controlSetKey(cs), h.name)
	}
	b, err := h.r.ValueBytes(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", controlSetKey(cs), err)
	}
	return slices.Clone(b), nil
}

// Is32Bit reads PROCESSOR_ARCHITECTURE from the current control set. When
// Select\Current is missing the lowest control set is used. A missing value
// means 64-bit.
func (h *HiveSource) Is32Bit(ctx context.Context) (bool, error) {
	cs, err := h.CurrentControlSet(ctx)
	if err != nil {
		if !types.IsKind(err, types.ErrKindNotFound) {
			return false, err
		}
		sets, serr := h.ControlSets(ctx)
		if serr != nil {
			return false, serr
		}
		if len(sets) == 0 {
			return false, nil
		}
		cs = sets[0]
	}
	node, err := h.r.Find(controlSetKey(cs) + `\` + envPath)
	if err != nil {
		return false, ignoreNotFound(err)
	}
	v, err := h.r.GetValue(node, archValue)
	if err != nil {
		return false, ignoreNotFound(err)
	}
	arch, err := h.r.ValueString(v)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(arch, "x86"), nil
}

// SaveImage writes the hive image being read, including any replayed log
// entries, to path. The file appears only once fully written.
func (h *HiveSource) SaveImage(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errClosed(h.name)
	}
	if err := writer.WriteFile(path, h.r.Bytes()); err != nil {
		return &types.Error{Kind: types.ErrKindState, Msg: "save hive image", Err: err}
	}
	return nil
}

func ignoreNotFound(err error) error {
	if types.IsKind(err, types.ErrKindNotFound) {
		return nil
	}
	return err
}

// Close releases the hive mapping.
func (h *HiveSource) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.r.Close()
}

var _ Source = (*HiveSource)(nil)
