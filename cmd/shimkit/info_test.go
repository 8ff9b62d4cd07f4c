package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/shimkit/internal/testutil"
	"github.com/joshuapare/shimkit/internal/testutil/hivegen"
	"github.com/joshuapare/shimkit/internal/testutil/shimgen"
	"github.com/joshuapare/shimkit/pkg/types"
)

func TestInfoHiveText(t *testing.T) {
	resetGlobals(t)
	hive := testutil.SetupSystemHive(t, 1, "AMD64",
		hivegen.ControlSet{ID: 1, Cache: shimgen.Win10WithCount(shimgen.Entries(3), false, 7)},
	)

	stdout, err := runCmd(t, newInfoCmd(), hive)
	require.NoError(t, err)
	assert.Contains(t, stdout, "OS: Windows10")
	assert.Contains(t, stdout, "Dirty: false")
	assert.Contains(t, stdout, "ControlSet001: win10, 3 entries decoded (header: 7)")
	assert.Contains(t, stdout, "[WARNING/win10/count]")
}

func TestInfoBlobJSON(t *testing.T) {
	resetGlobals(t)
	jsonOut = true
	path := testutil.WriteFile(t, t.TempDir(), "cache.bin", shimgen.Win8(shimgen.Entries(2), false))

	stdout, err := runCmd(t, newInfoCmd(), path)
	require.NoError(t, err)

	var res infoResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "value dump", res.Kind)
	assert.Equal(t, "Windows80_Windows2012", res.OS)
	assert.Nil(t, res.Hive)
	require.Len(t, res.ControlSets, 1)
	assert.Equal(t, -1, res.ControlSets[0].ControlSet)
	assert.Equal(t, int64(-1), res.ControlSets[0].Expected)
	assert.Equal(t, 2, res.ControlSets[0].Decoded)
}

func TestInfoUnrecognized(t *testing.T) {
	resetGlobals(t)
	jsonOut = true
	path := testutil.WriteFile(t, t.TempDir(), "junk.bin", make([]byte, 512))

	stdout, err := runCmd(t, newInfoCmd(), path)
	require.NoError(t, err)
	var res infoResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Empty(t, res.ControlSets)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0], "unrecognized")
}

func TestInfoHiveJSONDiagnostics(t *testing.T) {
	resetGlobals(t)
	jsonOut = true
	hive := testutil.SetupSystemHive(t, 1, "x86",
		hivegen.ControlSet{ID: 1, Cache: shimgen.Win10WithCount(shimgen.Entries(3), false, 7)},
	)

	stdout, err := runCmd(t, newInfoCmd(), hive)
	require.NoError(t, err)

	var res infoResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "hive", res.Kind)
	assert.True(t, res.Is32Bit)
	require.NotNil(t, res.Hive)
	assert.False(t, res.Hive.Dirty)
	require.NotNil(t, res.Diagnostics)
	var count *types.Diagnostic
	for i, d := range res.Diagnostics.Diagnostics {
		if d.Category == types.DiagCount {
			count = &res.Diagnostics.Diagnostics[i]
		}
	}
	require.NotNil(t, count, "count mismatch must survive the JSON round trip")
	assert.Equal(t, types.SevWarning, count.Severity)
	assert.Equal(t, 1, count.ControlSet)
	assert.GreaterOrEqual(t, res.Diagnostics.Summary.Warnings, 1)
}
