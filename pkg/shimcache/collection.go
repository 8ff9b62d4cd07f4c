package shimcache

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"github.com/joshuapare/shimkit/internal/shim"
	"github.com/joshuapare/shimkit/pkg/types"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// Source supplies raw cache buffers, one per control set.
// pkg/source implementations satisfy it.
type Source interface {
	ControlSets(ctx context.Context) ([]int, error)
	AppCompatCache(ctx context.Context, controlSet int) ([]byte, error)
	Is32Bit(ctx context.Context) (bool, error)
}

// Buffer is one raw value to decode.
type Buffer struct {
	ControlSet int
	Data       []byte
}

// Options controls Collect and Load.
type Options struct {
	// Is32 selects 32-bit record layouts. Load overrides it with the
	// source's answer.
	Is32 bool

	// Workers bounds concurrent decodes. Zero or less means GOMAXPROCS.
	Workers int

	// Sink receives diagnostics from every decode. It must be safe for
	// concurrent use. Nil discards.
	Sink types.DiagnosticSink
}

// DefaultOptions returns options with one worker per CPU and no sink.
func DefaultOptions() Options {
	return Options{Workers: runtime.GOMAXPROCS(0)}
}

// Result is one successfully decoded control set.
type Result struct {
	Cache   types.ControlSetCache
	OS      types.OSVersion
	Variant string
	Digest  digest.Digest // of the raw buffer
	Size    int
}

// Failure records a control set that could not be read or decoded.
type Failure struct {
	ControlSet int
	Err        error
}

func (f Failure) Error() string {
	return fmt.Sprintf("control set %d: %v", f.ControlSet, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Collection holds the outcome of one run. Results and Failures are ordered
// the way their buffers were given.
type Collection struct {
	OS       types.OSVersion
	Results  []Result
	Failures []Failure
}

// OK reports whether at least one control set decoded.
func (c *Collection) OK() bool {
	return len(c.Results) > 0
}

// Entries returns every decoded entry, control set by control set.
func (c *Collection) Entries() []types.CacheEntry {
	var n int
	for _, r := range c.Results {
		n += len(r.Cache.Entries)
	}
	out := make([]types.CacheEntry, 0, n)
	for _, r := range c.Results {
		out = append(out, r.Cache.Entries...)
	}
	return out
}

// Total is the number of decoded entries across all control sets.
func (c *Collection) Total() int {
	var n int
	for _, r := range c.Results {
		n += len(r.Cache.Entries)
	}
	return n
}

type slot struct {
	res Result
	err error
}

// Collect decodes every buffer. A buffer that fails to decode becomes a
// Failure and does not stop the others. The only error returned is a
// context error; cancellation is observed before each decode starts.
func Collect(ctx context.Context, bufs []Buffer, opts Options) (*Collection, error) {
	sink := opts.Sink
	if sink == nil {
		sink = types.DiscardDiagnostics
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	slots := make([]slot, len(bufs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, b := range bufs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cache, f, err := shim.Decode(b.Data, opts.Is32, b.ControlSet, sink)
			if err != nil {
				slots[i].err = err
				return nil
			}
			slots[i].res = Result{
				Cache:   cache,
				OS:      f.OS,
				Variant: f.Variant.String(),
				Digest:  digest.FromBytes(b.Data),
				Size:    len(b.Data),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coll := &Collection{OS: types.OSUnknown}
	for i, s := range slots {
		if s.err != nil {
			coll.Failures = append(coll.Failures, Failure{ControlSet: bufs[i].ControlSet, Err: s.err})
			continue
		}
		coll.Results = append(coll.Results, s.res)
	}
	classify(coll, sink)
	return coll, nil
}

// classify picks the OS of the first decoded control set. Control sets of
// one hive always come from the same OS; a disagreement is reported.
func classify(coll *Collection, sink types.DiagnosticSink) {
	if len(coll.Results) == 0 {
		return
	}
	coll.OS = coll.Results[0].OS
	for _, r := range coll.Results[1:] {
		if r.OS != coll.OS {
			sink.Record(types.Diagnostic{
				Severity:   types.SevWarning,
				Category:   types.DiagHeader,
				Structure:  r.Variant,
				Issue:      "control sets disagree on OS generation",
				Expected:   coll.OS.String(),
				Actual:     r.OS.String(),
				ControlSet: r.Cache.ControlSet,
			})
		}
	}
}

// Load reads the buffers from src and collects them. controlSet restricts
// the run to one set; -1 means every set the source has. Asking for a set
// the source does not have is a NotFound error. Buffers that cannot be read
// become Failures like decode errors do.
func Load(ctx context.Context, src Source, controlSet int, opts Options) (*Collection, error) {
	sets, err := src.ControlSets(ctx)
	if err != nil {
		return nil, err
	}
	if controlSet != -1 {
		if !slices.Contains(sets, controlSet) {
			return nil, &types.Error{
				Kind: types.ErrKindNotFound,
				Msg:  fmt.Sprintf("control set %d", controlSet),
				Err:  types.ErrNotFound,
			}
		}
		sets = []int{controlSet}
	}

	is32, err := src.Is32Bit(ctx)
	if err != nil {
		return nil, err
	}
	opts.Is32 = is32

	var (
		bufs     []Buffer
		failures []Failure
	)
	for _, cs := range sets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := src.AppCompatCache(ctx, cs)
		if err != nil {
			failures = append(failures, Failure{ControlSet: cs, Err: err})
			continue
		}
		bufs = append(bufs, Buffer{ControlSet: cs, Data: data})
	}

	coll, err := Collect(ctx, bufs, opts)
	if err != nil {
		return nil, err
	}
	coll.Failures = append(failures, coll.Failures...)
	slices.SortStableFunc(coll.Failures, func(a, b Failure) int { return a.ControlSet - b.ControlSet })
	return coll, nil
}
