package shimcache

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/joshuapare/shimkit/internal/testutil/shimgen"
	"github.com/joshuapare/shimkit/pkg/types"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	sets    []int
	bufs    map[int][]byte
	readErr map[int]error
	is32    bool
}

func (s *fakeSource) ControlSets(context.Context) ([]int, error) { return s.sets, nil }
func (s *fakeSource) Is32Bit(context.Context) (bool, error)      { return s.is32, nil }

func (s *fakeSource) AppCompatCache(_ context.Context, cs int) ([]byte, error) {
	if err := s.readErr[cs]; err != nil {
		return nil, err
	}
	b, ok := s.bufs[cs]
	if !ok {
		return nil, types.ErrNotFound
	}
	return b, nil
}

func TestCollectIsolatesFailures(t *testing.T) {
	good := shimgen.Win10(shimgen.Entries(12), true)
	bufs := []Buffer{
		{ControlSet: 1, Data: good},
		{ControlSet: 2, Data: []byte("short")},
		{ControlSet: 3, Data: good},
	}

	coll, err := Collect(context.Background(), bufs, Options{Workers: 2})
	require.NoError(t, err)
	require.True(t, coll.OK())

	require.Len(t, coll.Results, 2)
	assert.Equal(t, 1, coll.Results[0].Cache.ControlSet)
	assert.Equal(t, 3, coll.Results[1].Cache.ControlSet)
	assert.Equal(t, types.Windows10Creators, coll.OS)
	assert.Equal(t, "win10-creators", coll.Results[0].Variant)
	assert.Equal(t, 24, coll.Total())
	assert.Len(t, coll.Entries(), 24)

	require.Len(t, coll.Failures, 1)
	assert.Equal(t, 2, coll.Failures[0].ControlSet)
	assert.True(t, errors.Is(coll.Failures[0], types.ErrInsufficientData))
}

func TestCollectDigestsBuffers(t *testing.T) {
	raw := shimgen.Win7(shimgen.Entries(5), false)
	coll, err := Collect(context.Background(), []Buffer{{ControlSet: 1, Data: raw}}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, coll.Results, 1)
	assert.Equal(t, digest.FromBytes(raw), coll.Results[0].Digest)
	assert.Equal(t, digest.SHA256, coll.Results[0].Digest.Algorithm())
	assert.Equal(t, len(raw), coll.Results[0].Size)
}

func TestCollectAllFailed(t *testing.T) {
	coll, err := Collect(context.Background(), []Buffer{{ControlSet: 1, Data: make([]byte, 200)}}, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, coll.OK())
	assert.Equal(t, types.OSUnknown, coll.OS)
	require.Len(t, coll.Failures, 1)
	assert.True(t, types.IsKind(coll.Failures[0].Err, types.ErrKindUnrecognizedFormat))
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, []Buffer{{ControlSet: 1, Data: shimgen.Win10(shimgen.Entries(1), false)}}, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectManyControlSets(t *testing.T) {
	var bufs []Buffer
	for cs := 1; cs <= 9; cs++ {
		bufs = append(bufs, Buffer{ControlSet: cs, Data: shimgen.Win8(shimgen.Entries(cs*3), true)})
	}
	report := types.NewDiagnosticReport("")
	coll, err := Collect(context.Background(), bufs, Options{Workers: 3, Sink: report})
	require.NoError(t, err)
	require.Len(t, coll.Results, 9)
	for i, r := range coll.Results {
		assert.Equal(t, i+1, r.Cache.ControlSet)
		assert.Len(t, r.Cache.Entries, (i+1)*3)
		for _, e := range r.Cache.Entries {
			assert.Equal(t, i+1, e.ControlSet)
		}
	}
	assert.Equal(t, 9, report.Summary.Info)
	assert.Zero(t, report.Summary.Warnings)
}

func TestCollectReportsMixedOS(t *testing.T) {
	report := types.NewDiagnosticReport("")
	coll, err := Collect(context.Background(), []Buffer{
		{ControlSet: 1, Data: shimgen.Win10(shimgen.Entries(2), false)},
		{ControlSet: 2, Data: shimgen.Win8(shimgen.Entries(2), false)},
	}, Options{Workers: 1, Sink: report})
	require.NoError(t, err)
	assert.Equal(t, types.Windows10, coll.OS)
	assert.Equal(t, 1, report.Summary.Warnings)
}

func TestLoad(t *testing.T) {
	src := &fakeSource{
		sets: []int{1, 2, 3},
		bufs: map[int][]byte{
			1: shimgen.Win7(shimgen.Entries(4), true),
			3: shimgen.Win7(shimgen.Entries(6), true),
		},
		readErr: map[int]error{2: fmt.Errorf("read failed")},
		is32:    true,
	}

	t.Run("all", func(t *testing.T) {
		coll, err := Load(context.Background(), src, -1, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, coll.Results, 2)
		assert.Equal(t, types.Windows7x86, coll.OS)
		require.Len(t, coll.Failures, 1)
		assert.Equal(t, 2, coll.Failures[0].ControlSet)
	})

	t.Run("one", func(t *testing.T) {
		coll, err := Load(context.Background(), src, 3, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, coll.Results, 1)
		assert.Len(t, coll.Results[0].Cache.Entries, 6)
		assert.Empty(t, coll.Failures)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Load(context.Background(), src, 7, DefaultOptions())
		require.Error(t, err)
		assert.True(t, types.IsKind(err, types.ErrKindNotFound))
	})
}

func TestDecodeFacade(t *testing.T) {
	cache, os, err := Decode(shimgen.Win10(shimgen.Entries(3), false), false, -1, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Windows10, os)
	assert.Len(t, cache.Entries, 3)
	assert.Equal(t, -1, cache.Entries[0].ControlSet)

	os, err = Detect(shimgen.Vista(shimgen.Entries(1), false), false)
	require.NoError(t, err)
	assert.Equal(t, types.WindowsVistaWin2k3Win2k8, os)
}
