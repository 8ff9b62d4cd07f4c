package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joshuapare/shimkit/internal/format"
	"github.com/joshuapare/shimkit/internal/logger"
	"github.com/joshuapare/shimkit/pkg/source"
	"github.com/joshuapare/shimkit/pkg/types"
)

// logLevel picks the console level from the global and parse flags.
func logLevel(debug, trace bool) slog.Level {
	switch {
	case trace:
		return logger.LevelTrace
	case debug:
		return slog.LevelDebug
	case verbose:
		return slog.LevelInfo
	case quiet:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// sourceSpec says where cache data comes from.
type sourceSpec struct {
	Hive       string
	Bin        string
	Is32       bool
	IgnoreLogs bool
	Sink       types.DiagnosticSink
}

// openSource opens a blob, a hive, or the live registry, in that order of
// preference.
func openSource(spec sourceSpec) (source.Source, error) {
	switch {
	case spec.Bin != "":
		logger.Debug("opening value dump", "path", spec.Bin, "is32", spec.Is32)
		return source.OpenBlob(spec.Bin, spec.Is32)
	case spec.Hive != "":
		logger.Debug("opening hive", "path", spec.Hive, "ignore_logs", spec.IgnoreLogs)
		return source.OpenHive(spec.Hive, source.HiveOptions{IgnoreLogs: spec.IgnoreLogs, Sink: spec.Sink})
	default:
		logger.Debug("opening live registry")
		return source.OpenLive()
	}
}

// isHiveFile reports whether the file at path starts with a regf signature.
func isHiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	head := make([]byte, len(format.REGFSignature))
	if _, err := io.ReadFull(f, head); err != nil {
		return false, nil
	}
	return bytes.Equal(head, format.REGFSignature), nil
}

// controlSetName renders a control set number the way Windows names it.
func controlSetName(cs int) string {
	if cs < 0 {
		return "CurrentControlSet"
	}
	return fmt.Sprintf("ControlSet%03d", cs)
}
