package shimcache

import (
	"slices"
	"strconv"
	"strings"

	"github.com/joshuapare/shimkit/pkg/types"
)

// DedupKey identifies the artifact an entry describes: the upper-cased path
// followed by the raw FILETIME in decimal. An absent timestamp contributes
// "0".
func DedupKey(e types.CacheEntry) string {
	return strings.ToUpper(e.Path) + strconv.FormatUint(e.LastModifiedRaw, 10)
}

// Deduper remembers every key it has seen. Not safe for concurrent use.
type Deduper struct {
	seen map[string]struct{}
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// Mark sets Duplicate on each entry whose key was seen earlier, in slice
// order and across every previous call.
func (d *Deduper) Mark(entries []types.CacheEntry) {
	for i := range entries {
		k := DedupKey(entries[i])
		if _, ok := d.seen[k]; ok {
			entries[i].Duplicate = true
			continue
		}
		d.seen[k] = struct{}{}
	}
}

// Seen reports how many distinct keys have been marked.
func (d *Deduper) Seen() int { return len(d.seen) }

// SortByLastModified orders entries newest first. Entries without a
// timestamp go last. Equal timestamps keep their decode order.
func SortByLastModified(entries []types.CacheEntry) {
	slices.SortStableFunc(entries, func(a, b types.CacheEntry) int {
		switch {
		case a.LastModified == nil && b.LastModified == nil:
			return 0
		case a.LastModified == nil:
			return 1
		case b.LastModified == nil:
			return -1
		}
		return b.LastModified.Compare(*a.LastModified)
	})
}

// PostProcessor prepares decoded caches for emission. One PostProcessor
// spans a run so duplicates are detected across control sets.
type PostProcessor struct {
	sortByTime bool
	dedup      *Deduper
}

func NewPostProcessor(sortByTime bool) *PostProcessor {
	return &PostProcessor{sortByTime: sortByTime, dedup: NewDeduper()}
}

// Process returns a copy of cache's entries in emission order with Source
// set and duplicates marked. Sorting, when enabled, happens before
// deduplication. The cache itself is left untouched.
func (p *PostProcessor) Process(cache types.ControlSetCache, source string) []types.CacheEntry {
	out := slices.Clone(cache.Entries)
	for i := range out {
		out[i].Source = source
	}
	if p.sortByTime {
		SortByLastModified(out)
	}
	p.dedup.Mark(out)
	return out
}
