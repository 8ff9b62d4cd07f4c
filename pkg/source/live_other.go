//go:build !windows

package source

import (
	"context"
	"runtime"

	"github.com/joshuapare/shimkit/pkg/types"
)

// LiveName is the Name of the live registry source.
const LiveName = "Live Registry"

// LiveSource is only available on Windows. Elsewhere OpenLive fails and the
// methods report Unsupported.
type LiveSource struct{}

// OpenLive fails with an Unsupported error; use OpenHive with an exported
// SYSTEM hive instead.
func OpenLive() (*LiveSource, error) {
	return nil, unsupported()
}

func unsupported() error {
	return &types.Error{
		Kind: types.ErrKindUnsupported,
		Msg:  "live registry access on " + runtime.GOOS + "; pass a SYSTEM hive with --hive",
		Err:  types.ErrUnsupported,
	}
}

func (*LiveSource) Name() string { return LiveName }

func (*LiveSource) ControlSets(context.Context) ([]int, error) { return nil, unsupported() }

func (*LiveSource) CurrentControlSet(context.Context) (int, error) { return 0, unsupported() }

func (*LiveSource) AppCompatCache(context.Context, int) ([]byte, error) { return nil, unsupported() }

func (*LiveSource) Is32Bit(context.Context) (bool, error) { return false, unsupported() }

func (*LiveSource) Close() error { return nil }

var _ Source = (*LiveSource)(nil)
