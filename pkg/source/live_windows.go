//go:build windows

package source

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sys/windows/registry"

	"github.com/joshuapare/shimkit/pkg/types"
)

// LiveName is the Name of the live registry source.
const LiveName = "Live Registry"

const currentControlSet = `SYSTEM\CurrentControlSet\`

// LiveSource reads the running system's registry through the Windows API.
// It only sees CurrentControlSet, reported as control set -1.
type LiveSource struct {
	mu     sync.Mutex
	closed bool
}

// OpenLive checks the cache key can be read and returns a source over it.
func OpenLive() (*LiveSource, error) {
	k, err := openCacheKey()
	if err != nil {
		return nil, err
	}
	_ = k.Close()
	return &LiveSource{}, nil
}

func openCacheKey() (registry.Key, error) {
	for _, p := range []string{cachePath, legacyCachePath} {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, currentControlSet+p, registry.QUERY_VALUE)
		if err == nil {
			return k, nil
		}
		if !errors.Is(err, registry.ErrNotExist) {
			return 0, &types.Error{Kind: types.ErrKindState, Msg: "open " + currentControlSet + p, Err: err}
		}
	}
	return 0, notFound(`CurrentControlSet\%s key not found`, cachePath)
}

func (l *LiveSource) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errClosed(LiveName)
	}
	return nil
}

// Name returns LiveName.
func (l *LiveSource) Name() string { return LiveName }

// ControlSets always returns [-1].
func (l *LiveSource) ControlSets(ctx context.Context) ([]int, error) {
	if err := l.check(ctx); err != nil {
		return nil, err
	}
	return []int{-1}, nil
}

// CurrentControlSet reads SYSTEM\Select\Current.
func (l *LiveSource) CurrentControlSet(ctx context.Context) (int, error) {
	if err := l.check(ctx); err != nil {
		return 0, err
	}
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SYSTEM\`+selectPath, registry.QUERY_VALUE)
	if err != nil {
		return 0, &types.Error{Kind: types.ErrKindState, Msg: `open SYSTEM\Select`, Err: err}
	}
	defer k.Close()
	v, _, err := k.GetIntegerValue(currentValue)
	if err != nil {
		return 0, &types.Error{Kind: types.ErrKindState, Msg: `read SYSTEM\Select\Current`, Err: err}
	}
	return int(v), nil
}

// AppCompatCache reads the value of CurrentControlSet.
func (l *LiveSource) AppCompatCache(ctx context.Context, cs int) ([]byte, error) {
	if err := l.check(ctx); err != nil {
		return nil, err
	}
	if cs != -1 {
		return nil, notFound("the live registry only exposes CurrentControlSet, not control set %d", cs)
	}
	k, err := openCacheKey()
	if err != nil {
		return nil, err
	}
	defer k.Close()
	data, _, err := k.GetBinaryValue(cacheValue)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, notFound("%s value not found", cacheValue)
		}
		return nil, &types.Error{Kind: types.ErrKindState, Msg: "read " + cacheValue, Err: err}
	}
	return data, nil
}

// Is32Bit reads PROCESSOR_ARCHITECTURE from the environment key.
func (l *LiveSource) Is32Bit(ctx context.Context) (bool, error) {
	if err := l.check(ctx); err != nil {
		return false, err
	}
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, currentControlSet+envPath, registry.QUERY_VALUE)
	if err != nil {
		return false, nil
	}
	defer k.Close()
	arch, _, err := k.GetStringValue(archValue)
	if err != nil {
		return false, nil
	}
	return strings.EqualFold(arch, "x86"), nil
}

// Close marks the source closed.
func (l *LiveSource) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

var _ Source = (*LiveSource)(nil)
