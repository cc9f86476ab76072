package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/g5becks/impex/internal/config"
	"github.com/g5becks/impex/internal/snapshot"
)

type SourceStatus struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Path      string    `json:"path,omitempty"`
	URL       string    `json:"url,omitempty"`
	Patterns  []string  `json:"patterns,omitempty"`
	Status    string    `json:"status"`
	FileCount int       `json:"file_count,omitempty"`
	Errors    int       `json:"errors,omitempty"`
	Warnings  int       `json:"warnings,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitzero"`
}

type ListOptions struct {
	JSON    bool
	Verbose bool
}

// SourceStatuses joins the configured sources with what the last check
// recorded. snap may be nil.
func SourceStatuses(cfg *config.Config, snap *snapshot.Snapshot) []SourceStatus {
	statuses := make([]SourceStatus, 0, len(cfg.Sources))
	for _, name := range slices.Sorted(maps.Keys(cfg.Sources)) {
		src := cfg.Sources[name]
		status := SourceStatus{
			Name:     name,
			Type:     src.Type,
			Path:     src.Path,
			URL:      src.URL,
			Patterns: src.Patterns,
			Status:   "pending",
		}

		if snap != nil {
			if checked, ok := snap.Sources[name]; ok {
				status.FileCount = checked.FileCount
				status.Errors = checked.Errors
				status.Warnings = checked.Warnings
				status.CheckedAt = checked.CheckedAt
				status.Status = renderCheckStatus(checked.Errors, checked.Warnings)
			}
		}

		statuses = append(statuses, status)
	}
	return statuses
}

func renderCheckStatus(errs, warnings int) string {
	switch {
	case errs > 0:
		return "failed"
	case warnings > 0:
		return "warnings"
	default:
		return "ok"
	}
}

func RenderSourceList(w io.Writer, sources []SourceStatus, opts ListOptions) error {
	if opts.JSON {
		return renderSourceListJSON(w, sources)
	}

	renderSourceListTable(w, sources, opts)
	return nil
}

func renderSourceListJSON(w io.Writer, sources []SourceStatus) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(sources); err != nil {
		return fmt.Errorf("encode source list json: %w", err)
	}

	return nil
}

func renderSourceListTable(w io.Writer, sources []SourceStatus, opts ListOptions) {
	writer := table.NewWriter()
	writer.SetOutputMirror(w)
	writer.SetStyle(table.StyleRounded)

	if opts.Verbose {
		writer.AppendHeader(table.Row{"SOURCE", "TYPE", "LOCATION", "STATUS", "FILES", "ERRORS", "WARNINGS", "PATTERNS", "CHECKED"})
	} else {
		writer.AppendHeader(table.Row{"SOURCE", "TYPE", "LOCATION", "STATUS"})
	}

	for _, source := range sources {
		location := renderLocation(source)

		if opts.Verbose {
			writer.AppendRow(table.Row{
				source.Name,
				source.Type,
				location,
				source.Status,
				source.FileCount,
				source.Errors,
				source.Warnings,
				strings.Join(source.Patterns, ", "),
				formatTime(source.CheckedAt),
			})
			continue
		}

		writer.AppendRow(table.Row{
			source.Name,
			source.Type,
			location,
			source.Status,
		})
	}

	writer.Render()
}

func renderLocation(source SourceStatus) string {
	if source.Type == config.SourceURL {
		return source.URL
	}
	return source.Path
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}
