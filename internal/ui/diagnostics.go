package ui

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/oops"

	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/snapshot"
	"github.com/g5becks/impex/internal/workspace"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// DiagnosticRow is a diagnostic together with the file it was found in.
type DiagnosticRow struct {
	Source string `json:"source,omitempty"`
	Path   string `json:"path"`
	diag.Diagnostic
}

// RunDiagnostics flattens the diagnostics of a run, in source order within
// each file.
func RunDiagnostics(run *workspace.RunResult, minSeverity diag.Severity) []DiagnosticRow {
	var rows []DiagnosticRow
	for _, f := range run.Files {
		for _, d := range f.Diagnostics().AtLeast(minSeverity).Sorted() {
			rows = append(rows, DiagnosticRow{Source: f.Source, Path: f.Path, Diagnostic: d})
		}
	}
	return rows
}

func SnapshotDiagnostics(snap *snapshot.Snapshot, minSeverity diag.Severity) []DiagnosticRow {
	var rows []DiagnosticRow
	for _, ref := range snap.Files() {
		for _, d := range ref.File.Diagnostics.AtLeast(minSeverity) {
			rows = append(rows, DiagnosticRow{Source: ref.Source, Path: ref.File.Path, Diagnostic: d})
		}
	}
	return rows
}

func RenderDiagnostics(w io.Writer, rows []DiagnosticRow, format string) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if rows == nil {
			rows = []DiagnosticRow{}
		}
		if err := encoder.Encode(rows); err != nil {
			return oops.Code("JSON_ERROR").Wrapf(err, "encoding diagnostics")
		}
		return nil

	case FormatCSV:
		return renderDiagnosticsCSV(w, rows)

	default:
		renderDiagnosticsTable(w, rows)
		return nil
	}
}

func renderDiagnosticsCSV(w io.Writer, rows []DiagnosticRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"source", "path", "line", "column", "severity", "code", "message"}); err != nil {
		return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV header")
	}

	for _, r := range rows {
		if err := cw.Write([]string{
			r.Source,
			r.Path,
			strconv.Itoa(r.Line),
			strconv.Itoa(r.Column),
			r.Severity.String(),
			string(r.Code),
			r.Message,
		}); err != nil {
			return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return oops.Code("CSV_ERROR").Wrapf(err, "flushing CSV")
	}
	return nil
}

func renderDiagnosticsTable(w io.Writer, rows []DiagnosticRow) {
	if len(rows) == 0 {
		_, _ = io.WriteString(w, "No diagnostics.\n")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"PATH", "LINE", "SEVERITY", "CODE", "MESSAGE"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Path,
			strconv.Itoa(r.Line) + ":" + strconv.Itoa(r.Column),
			r.Severity.String(),
			r.Code,
			r.Message,
		})
	}

	t.Render()
}
