package types

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticReportSummary(t *testing.T) {
	r := NewDiagnosticReport("SYSTEM")
	r.Record(Diagnostic{Severity: SevWarning, Category: DiagCount, Structure: "win10", Issue: "count mismatch", Expected: 3, Actual: 2})
	r.Record(Diagnostic{Severity: SevInfo, Category: DiagHeader, Structure: "dispatch", Issue: "detected"})
	assert.False(t, r.HasErrors())

	r.Record(Diagnostic{Severity: SevError, Category: DiagRecord, Structure: "vista", Issue: "bad record"})
	assert.True(t, r.HasErrors())
	assert.Equal(t, DiagSummary{Errors: 1, Warnings: 1, Info: 1}, r.Summary)

	text := r.FormatTextCompact()
	assert.Contains(t, text, "[WARNING/win10/count]")
	assert.Contains(t, text, "(expected 3, actual 2)")

	js, err := r.FormatJSON()
	require.NoError(t, err)
	assert.Contains(t, js, `"severity": "ERROR"`)
	assert.Contains(t, js, `"category": "count"`)
}

func TestDiagnosticReportEmpty(t *testing.T) {
	r := NewDiagnosticReport("")
	assert.Equal(t, "No issues found.\n", r.FormatTextCompact())
	js, err := r.FormatJSON()
	require.NoError(t, err)
	assert.Contains(t, js, `"diagnostics": []`)
}

func TestDiagnosticReportConcurrentRecord(t *testing.T) {
	r := NewDiagnosticReport("")
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record(Diagnostic{Severity: SevInfo, ControlSet: i})
		}()
	}
	wg.Wait()
	assert.Len(t, r.Diagnostics, 8)
	assert.Equal(t, 8, r.Summary.Info)
}

func TestDiscardDiagnostics(t *testing.T) {
	assert.NotPanics(t, func() { DiscardDiagnostics.Record(Diagnostic{}) })
}
