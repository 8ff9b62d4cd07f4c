package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Diagnostics
// -----------------------------------------------------------------------------
//
// Decoders never log. They report anomalies (count mismatches, recovered
// corruption, odd headers) to a DiagnosticSink passed in by the caller. The
// CLI forwards them to slog; `shimkit info` collects them in a report.

// Severity classifies how serious a diagnostic issue is
type Severity int

const (
	SevInfo     Severity = iota // Informational (unusual but valid)
	SevWarning                  // Recovered locally, results may be partial
	SevError                    // Buffer or control set could not be decoded
	SevCritical                 // Structural corruption of the surrounding hive
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	case SevCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the severity name in JSON.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// DiagCategory classifies the type of issue found
type DiagCategory int

const (
	DiagHeader DiagCategory = iota // cache header / format detection
	DiagRecord                     // individual record decode
	DiagCount                      // header count vs decoded entries
	DiagHive                       // hive container (sequence numbers, logs)
)

func (c DiagCategory) String() string {
	switch c {
	case DiagHeader:
		return "header"
	case DiagRecord:
		return "record"
	case DiagCount:
		return "count"
	case DiagHive:
		return "hive"
	default:
		return "unknown"
	}
}

// MarshalText renders the category name in JSON.
func (c DiagCategory) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Diagnostic describes one issue found while decoding.
type Diagnostic struct {
	Severity   Severity     `json:"severity"`
	Category   DiagCategory `json:"category"`
	Offset     uint64       `json:"offset"`
	Structure  string       `json:"structure"`
	Issue      string       `json:"issue"`
	Expected   any          `json:"expected,omitempty"`
	Actual     any          `json:"actual,omitempty"`
	ControlSet int          `json:"control_set"`
}

// DiagnosticSink receives diagnostics. Implementations must be safe for
// concurrent use; control sets may be decoded in parallel.
type DiagnosticSink interface {
	Record(d Diagnostic)
}

type discardSink struct{}

func (discardSink) Record(Diagnostic) {}

// DiscardDiagnostics is a sink that drops everything.
var DiscardDiagnostics DiagnosticSink = discardSink{}

// DiagnosticReport collects diagnostics in arrival order.
type DiagnosticReport struct {
	Source      string       `json:"source,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Summary     DiagSummary  `json:"summary"`

	mu sync.Mutex
}

// DiagSummary provides quick statistics
type DiagSummary struct {
	Critical int `json:"critical"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// NewDiagnosticReport creates an empty report
func NewDiagnosticReport(source string) *DiagnosticReport {
	return &DiagnosticReport{Source: source, Diagnostics: []Diagnostic{}}
}

// Record adds a diagnostic and updates the summary.
func (r *DiagnosticReport) Record(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Diagnostics = append(r.Diagnostics, d)
	switch d.Severity {
	case SevCritical:
		r.Summary.Critical++
	case SevError:
		r.Summary.Errors++
	case SevWarning:
		r.Summary.Warnings++
	case SevInfo:
		r.Summary.Info++
	}
}

// HasErrors returns true if any errors or critical issues were found
func (r *DiagnosticReport) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Summary.Critical > 0 || r.Summary.Errors > 0
}

// FormatJSON returns the report as formatted JSON (2-space indentation)
func (r *DiagnosticReport) FormatJSON() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatTextCompact returns a compact one-line-per-issue text format
func (r *DiagnosticReport) FormatTextCompact() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for _, d := range r.Diagnostics {
		fmt.Fprintf(&b, "0x%08X [%s/%s/%s] cs=%d %s",
			d.Offset, d.Severity, d.Structure, d.Category, d.ControlSet, d.Issue)
		if d.Expected != nil || d.Actual != nil {
			fmt.Fprintf(&b, " (expected %v, actual %v)", d.Expected, d.Actual)
		}
		b.WriteByte('\n')
	}
	if len(r.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
	}
	return b.String()
}
