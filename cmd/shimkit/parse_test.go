package main

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/shimkit/internal/testutil"
	"github.com/joshuapare/shimkit/internal/testutil/hivegen"
	"github.com/joshuapare/shimkit/internal/testutil/shimgen"
	"github.com/joshuapare/shimkit/pkg/types"
)

func twoSetHive(t *testing.T) string {
	t.Helper()
	cache := shimgen.Win10(shimgen.Entries(5), false)
	return testutil.SetupSystemHive(t, 1, "AMD64",
		hivegen.ControlSet{ID: 1, Cache: cache},
		hivegen.ControlSet{ID: 2, Cache: cache},
	)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestParseWritesFilePerControlSet(t *testing.T) {
	resetGlobals(t)
	hive := twoSetHive(t)
	out := t.TempDir()

	stdout, err := runCmd(t, newParseCmd(), "-f", hive, "--csv", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Found 5 cache entries for ControlSet001")
	assert.Contains(t, stdout, "Found 5 cache entries for ControlSet002")
	assert.Contains(t, stdout, "Total parsing time")

	files, err := filepath.Glob(filepath.Join(out, "*_Windows10_SYSTEM_ControlSet00?_AppCompatCache.csv"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	first := readCSV(t, files[0])
	second := readCSV(t, files[1])
	require.Len(t, first, 6)
	require.Len(t, second, 6)
	for _, row := range first[1:] {
		assert.Equal(t, "1", row[0])
		assert.Equal(t, "False", row[5])
		assert.Equal(t, hive, row[6])
	}
	// Identical entries in the second control set are duplicates.
	for _, row := range second[1:] {
		assert.Equal(t, "2", row[0])
		assert.Equal(t, "True", row[5])
	}
}

func TestParseSingleControlSetSorted(t *testing.T) {
	resetGlobals(t)
	hive := twoSetHive(t)
	out := t.TempDir()

	_, err := runCmd(t, newParseCmd(), "-f", hive, "--csv", out, "-c", "2", "-t", "--csvf", "cs2.csv")
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(out, "cs2.csv"))
	require.Len(t, rows, 6)
	for i := 2; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1][3], rows[i][3], "newest first")
	}
	assert.Equal(t, "False", rows[1][5], "nothing was seen before control set 2")
}

func TestParseMissingControlSet(t *testing.T) {
	resetGlobals(t)
	_, err := runCmd(t, newParseCmd(), "-f", twoSetHive(t), "--csv", t.TempDir(), "-c", "4")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindNotFound))
}

func TestParseRequiresOutputDir(t *testing.T) {
	resetGlobals(t)
	_, err := runCmd(t, newParseCmd(), "-f", twoSetHive(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--csv")
}

func TestParseBlobToStdout(t *testing.T) {
	resetGlobals(t)
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	blob := enc.EncodeAll(shimgen.Win7(shimgen.Entries(4), true), nil)
	require.NoError(t, enc.Close())
	path := testutil.WriteFile(t, t.TempDir(), "cache.bin.zst", blob)

	stdout, err := runCmd(t, newParseCmd(), "--bin", path, "--32bit", "--format", "stdout", "--source-label", "case-42")
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "ControlSet", rows[0][0])
	assert.Equal(t, "-1", rows[1][0])
	assert.Equal(t, "case-42", rows[1][6])
	assert.NotContains(t, stdout, "Found")
}

func TestParseSQLite(t *testing.T) {
	resetGlobals(t)
	out := t.TempDir()
	_, err := runCmd(t, newParseCmd(), "-f", twoSetHive(t), "--csv", out, "--format", "sqlite")
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(out, "*.db"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	db, err := sql.Open("sqlite", files[0])
	require.NoError(t, err)
	defer db.Close()
	var entries, buffers, dups int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&entries))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM buffers`).Scan(&buffers))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM entries WHERE duplicate = 1`).Scan(&dups))
	assert.Equal(t, 10, entries)
	assert.Equal(t, 2, buffers)
	assert.Equal(t, 5, dups)
}

func TestParseJSONSummary(t *testing.T) {
	resetGlobals(t)
	jsonOut = true
	out := t.TempDir()
	stdout, err := runCmd(t, newParseCmd(), "-f", twoSetHive(t), "--csv", out,
		"--format", "json", "--compress", "gzip", "-c", "1")
	require.NoError(t, err)

	var summary parseSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, "Windows10", summary.OS)
	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.ControlSets, 1)
	assert.Equal(t, 5, summary.ControlSets[0].Entries)
	assert.True(t, strings.HasPrefix(summary.ControlSets[0].Digest, "sha256:"))
	require.Len(t, summary.Files, 1)
	assert.True(t, strings.HasSuffix(summary.Files[0], "_ControlSet001_AppCompatCache.jsonl.gz"))
	assert.FileExists(t, summary.Files[0])
}
