package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joshuapare/shimkit/internal/testutil/hivegen"
)

// WriteFile writes data to name inside dir and returns the full path.
// It fails the test on error.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", p, err)
	}
	return p
}

// SetupSystemHive builds a SYSTEM hive with the given control sets and
// writes it to a temporary directory under the name SYSTEM. It returns the
// hive path.
//
// Example:
//
//	path := testutil.SetupSystemHive(t, 1, "AMD64",
//	    hivegen.ControlSet{ID: 1, Cache: shimgen.Win10(entries)})
func SetupSystemHive(t *testing.T, current int, arch string, sets ...hivegen.ControlSet) string {
	t.Helper()
	img := hivegen.Build(hivegen.System(current, arch, sets...), hivegen.Options{})
	return WriteFile(t, t.TempDir(), "SYSTEM", img)
}

// SetupDirtyHive writes a hive that was caught mid-write next to a LOG1
// that completes it. old and fresh are clean images of the same tree
// before and after the write; fresh must not be smaller than old. It
// returns the hive path.
func SetupDirtyHive(t *testing.T, old, fresh []byte) string {
	t.Helper()
	const seq = 5
	dir := t.TempDir()
	stale := hivegen.Stale(old, fresh, seq)
	log := hivegen.Log(stale, seq, hivegen.LogEntry{
		Sequence:         seq,
		HiveBinsDataSize: uint32(len(fresh) - 0x1000),
		Pages:            hivegen.DirtyPages(old, fresh),
	})
	p := WriteFile(t, dir, "SYSTEM", stale)
	WriteFile(t, dir, "SYSTEM.LOG1", log)
	return p
}
