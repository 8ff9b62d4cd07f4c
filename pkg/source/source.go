// Package source opens the places an AppCompatCache value can come from: an
// offline SYSTEM hive (with transaction log recovery), the live registry on
// Windows, or a raw value dump.
//
// Every Source satisfies shimcache.Source, so it can be handed straight to
// shimcache.Load.
package source

import (
	"context"
	"fmt"

	"github.com/joshuapare/shimkit/pkg/types"
)

// Source yields raw AppCompatCache buffers by control set.
type Source interface {
	// Name identifies the source in output (the hive's base name, "Live
	// Registry", or the blob's base name).
	Name() string

	// ControlSets lists the control sets that hold a cache value, in
	// ascending order. Sources without numbered control sets return [-1].
	ControlSets(ctx context.Context) ([]int, error)

	// CurrentControlSet is the set Windows booted with, or -1.
	CurrentControlSet(ctx context.Context) (int, error)

	// AppCompatCache returns the raw value for one control set. The
	// returned slice is owned by the caller.
	AppCompatCache(ctx context.Context, controlSet int) ([]byte, error)

	// Is32Bit reports whether the system used 32-bit cache layouts.
	Is32Bit(ctx context.Context) (bool, error)

	Close() error
}

// Registry locations, relative to a control set (or CurrentControlSet).
const (
	cachePath       = `Control\Session Manager\AppCompatCache`
	legacyCachePath = `Control\Session Manager\AppCompatibility`
	cacheValue      = "AppCompatCache"
	envPath         = `Control\Session Manager\Environment`
	archValue       = "PROCESSOR_ARCHITECTURE"
	selectPath      = "Select"
	currentValue    = "Current"

	// maxControlSet is the highest ControlSet00N looked at.
	maxControlSet = 9
)

func controlSetKey(cs int) string {
	return fmt.Sprintf("ControlSet%03d", cs)
}

func errClosed(name string) error {
	return &types.Error{Kind: types.ErrKindState, Msg: name + ": source is closed"}
}

func notFound(format string, args ...any) error {
	return &types.Error{Kind: types.ErrKindNotFound, Msg: fmt.Sprintf(format, args...), Err: types.ErrNotFound}
}
