// Package types defines the shared data model for shimkit: the normalized
// cache entry, the per-control-set decode result, the OS classification, typed
// errors, and the diagnostics report threaded through decoders.
//
// This package has no dependencies beyond the standard library.
package types
