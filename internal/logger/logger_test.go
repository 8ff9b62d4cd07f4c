package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/shimkit/pkg/types"
)

func TestDiscardByDefault(t *testing.T) {
	require.NoError(t, Close())
	assert.False(t, L.Enabled(t.Context(), slog.LevelError))

	var out bytes.Buffer
	require.NoError(t, Init(Options{Level: slog.LevelDebug, Console: &out}))
	require.NoError(t, Close())
	assert.False(t, L.Enabled(t.Context(), slog.LevelError), "Close must restore the discard logger")
	Error("after close")
	assert.Empty(t, out.String())
}

func TestInitConsoleLevels(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Init(Options{Level: slog.LevelWarn, Console: &out}))
	t.Cleanup(func() { _ = Close() })

	Info("hidden")
	Warn("shown", "n", 1)
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
	assert.Contains(t, out.String(), "n=1")

	out.Reset()
	require.NoError(t, Init(Options{Level: LevelTrace, Console: &out}))
	Trace("record decoded", "position", 3)
	assert.Contains(t, out.String(), "level=TRACE")
}

func TestInitLogDir(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "shimkit-2001-01-01.log")
	require.NoError(t, os.WriteFile(stale, nil, 0o644))
	other := filepath.Join(dir, "notes.log")
	require.NoError(t, os.WriteFile(other, nil, 0o644))

	var out bytes.Buffer
	require.NoError(t, Init(Options{Level: slog.LevelInfo, Console: &out, LogDir: dir}))
	Info("hello", "source", "SYSTEM")
	require.NoError(t, Close())

	assert.NoFileExists(t, stale)
	assert.FileExists(t, other)
	assert.Contains(t, out.String(), "hello")

	raw, err := os.ReadFile(filepath.Join(dir, "shimkit-"+time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "SYSTEM", rec["source"])
}

func TestCleanOldLogsKeepsRecent(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	keep := filepath.Join(dir, "shimkit-2024-06-10.log")
	drop := filepath.Join(dir, "shimkit-2024-05-01.log")
	bad := filepath.Join(dir, "shimkit-yesterday.log")
	for _, p := range []string{keep, drop, bad} {
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	cleanOldLogs(dir, now)
	assert.FileExists(t, keep)
	assert.FileExists(t, bad)
	assert.NoFileExists(t, drop)
}

type recordingSink struct{ got []types.Diagnostic }

func (r *recordingSink) Record(d types.Diagnostic) { r.got = append(r.got, d) }

func TestDiagnosticSink(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Init(Options{Level: slog.LevelDebug, Console: &out}))
	t.Cleanup(func() { _ = Close() })

	next := &recordingSink{}
	sink := DiagnosticSink{Next: next}
	sink.Record(types.Diagnostic{
		Severity: types.SevWarning, Category: types.DiagCount, Structure: "win10 header",
		Issue: "entry count mismatch", Expected: int64(9), Actual: 5, ControlSet: 1,
	})
	sink.Record(types.Diagnostic{Severity: types.SevError, Category: types.DiagRecord, Issue: "bad record"})

	require.Len(t, next.got, 2)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "level=WARN")
	assert.Contains(t, lines[0], "expected=9")
	assert.Contains(t, lines[1], "level=ERROR")
	assert.NotContains(t, lines[1], "expected=")
}
