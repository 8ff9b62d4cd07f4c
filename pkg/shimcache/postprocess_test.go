package shimcache

import (
	"testing"
	"time"

	"github.com/joshuapare/shimkit/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.DateTime, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestDedupKey(t *testing.T) {
	e := types.CacheEntry{Path: `c:\Windows\notepad.exe`, LastModifiedRaw: 130000000000000000}
	assert.Equal(t, `C:\WINDOWS\NOTEPAD.EXE130000000000000000`, DedupKey(e))

	e.LastModifiedRaw = 0
	assert.Equal(t, `C:\WINDOWS\NOTEPAD.EXE0`, DedupKey(e))
}

func TestDeduperMarksLaterOccurrences(t *testing.T) {
	entries := []types.CacheEntry{
		{Path: `C:\a.exe`, LastModifiedRaw: 1},
		{Path: `c:\A.EXE`, LastModifiedRaw: 1},
		{Path: `C:\a.exe`, LastModifiedRaw: 2},
		{Path: `C:\b.exe`},
	}
	d := NewDeduper()
	d.Mark(entries)
	assert.False(t, entries[0].Duplicate)
	assert.True(t, entries[1].Duplicate)
	assert.False(t, entries[2].Duplicate)
	assert.False(t, entries[3].Duplicate)
	assert.Equal(t, 3, d.Seen())

	more := []types.CacheEntry{{Path: `C:\B.exe`}}
	d.Mark(more)
	assert.True(t, more[0].Duplicate)
}

func TestSortByLastModified(t *testing.T) {
	entries := []types.CacheEntry{
		{Position: 0, LastModified: ts("2019-01-01 00:00:00")},
		{Position: 1},
		{Position: 2, LastModified: ts("2021-01-01 00:00:00")},
		{Position: 3, LastModified: ts("2019-01-01 00:00:00")},
		{Position: 4},
	}
	SortByLastModified(entries)

	var got []int
	for _, e := range entries {
		got = append(got, e.Position)
	}
	assert.Equal(t, []int{2, 0, 3, 1, 4}, got)
}

func TestPostProcessorAcrossControlSets(t *testing.T) {
	cs1 := types.ControlSetCache{ControlSet: 1, ExpectedCount: 2, Entries: []types.CacheEntry{
		{Position: 0, ControlSet: 1, Path: `C:\old.exe`, LastModified: ts("2018-05-05 10:00:00"), LastModifiedRaw: 10},
		{Position: 1, ControlSet: 1, Path: `C:\new.exe`, LastModified: ts("2020-05-05 10:00:00"), LastModifiedRaw: 20},
	}}
	cs2 := types.ControlSetCache{ControlSet: 2, ExpectedCount: 1, Entries: []types.CacheEntry{
		{Position: 0, ControlSet: 2, Path: `C:\OLD.exe`, LastModified: ts("2018-05-05 10:00:00"), LastModifiedRaw: 10},
	}}

	pp := NewPostProcessor(true)
	out1 := pp.Process(cs1, "SYSTEM")
	out2 := pp.Process(cs2, "SYSTEM")

	require.Len(t, out1, 2)
	assert.Equal(t, `C:\new.exe`, out1[0].Path)
	assert.Equal(t, "SYSTEM", out1[0].Source)
	assert.False(t, out1[0].Duplicate)
	assert.False(t, out1[1].Duplicate)

	require.Len(t, out2, 1)
	assert.True(t, out2[0].Duplicate)

	// The decoded caches are not modified.
	assert.Equal(t, `C:\old.exe`, cs1.Entries[0].Path)
	assert.Empty(t, cs1.Entries[0].Source)
	assert.False(t, cs2.Entries[0].Duplicate)
}

func TestPostProcessorSortsBeforeDedup(t *testing.T) {
	// Same key twice: after sorting, the first emitted copy is the one that
	// is not a duplicate.
	cache := types.ControlSetCache{ControlSet: 1, Entries: []types.CacheEntry{
		{Position: 0, Path: `C:\x.exe`},
		{Position: 1, Path: `C:\y.exe`, LastModified: ts("2020-01-01 00:00:00"), LastModifiedRaw: 5},
		{Position: 2, Path: `C:\x.exe`},
	}}
	out := NewPostProcessor(true).Process(cache, "")
	require.Len(t, out, 3)
	assert.Equal(t, 1, out[0].Position)
	assert.Equal(t, 0, out[1].Position)
	assert.False(t, out[1].Duplicate)
	assert.True(t, out[2].Duplicate)

	unsorted := NewPostProcessor(false).Process(cache, "")
	assert.Equal(t, 0, unsorted[0].Position)
	assert.True(t, unsorted[2].Duplicate)
}
