// Package shimcache turns raw AppCompatCache buffers into ordered,
// deduplicated cache entries.
//
// Decode handles a single buffer. Collect decodes one buffer per control
// set concurrently and keeps going when one of them fails; Load does the
// same starting from a Source. A PostProcessor then sorts and marks
// duplicates across everything emitted in a run.
//
// Basic usage:
//
//	coll, err := shimcache.Load(ctx, src, -1, shimcache.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	pp := shimcache.NewPostProcessor(false)
//	for _, r := range coll.Results {
//		entries := pp.Process(r.Cache, "SYSTEM")
//		// write entries
//	}
package shimcache
