package logger

import (
	"context"
	"log/slog"

	"github.com/joshuapare/shimkit/pkg/types"
)

// DiagnosticSink logs every diagnostic through L and forwards it to Next,
// if set. Critical and Error map to slog Error, Warning to Warn, Info to
// Debug.
type DiagnosticSink struct {
	Next types.DiagnosticSink
}

// Record implements types.DiagnosticSink.
func (s DiagnosticSink) Record(d types.Diagnostic) {
	args := []any{
		"category", d.Category.String(),
		"structure", d.Structure,
		"offset", d.Offset,
		"control_set", d.ControlSet,
	}
	if d.Expected != nil || d.Actual != nil {
		args = append(args, "expected", d.Expected, "actual", d.Actual)
	}
	L.Log(context.Background(), severityLevel(d.Severity), d.Issue, args...)
	if s.Next != nil {
		s.Next.Record(d)
	}
}

func severityLevel(s types.Severity) slog.Level {
	switch s {
	case types.SevCritical, types.SevError:
		return slog.LevelError
	case types.SevWarning:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}
