package ui

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/oops"

	"github.com/g5becks/impex/internal/document"
	"github.com/g5becks/impex/internal/parser"
)

type HeaderTableOptions struct {
	Limit int
	// Presentable shortens jar:, zip: and file: references the way folded
	// values are displayed.
	Presentable bool
	MaxWidth    int
}

// HeaderTable is one header with its value lines as plain strings.
type HeaderTable struct {
	Mode    string     `json:"mode"`
	Type    string     `json:"type"`
	Line    int        `json:"line"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Lines   []int      `json:"lines"`
	Total   int        `json:"total"`
}

// NewHeaderTable collects the computed values of every value line below h.
// Cells beyond the header's columns are kept with an empty column name.
func NewHeaderTable(doc *document.Document, h *document.Header, opts HeaderTableOptions) HeaderTable {
	ht := HeaderTable{
		Mode: string(h.Mode),
		Type: h.ResolvedTypeName,
		Line: doc.Tree.Line(h.Start),
	}

	width := h.Columns
	lines := doc.ValueLines(h)
	for _, l := range lines {
		width = max(width, len(l.Groups))
	}

	ht.Columns = make([]string, width)
	for _, p := range h.Parameters {
		if p.Column < width {
			ht.Columns[p.Column] = p.ResolvedName
		}
	}

	ht.Total = len(lines)
	if opts.Limit > 0 && len(lines) > opts.Limit {
		lines = lines[:opts.Limit]
	}

	for _, l := range lines {
		row := make([]string, width)
		for _, g := range l.Groups {
			v := doc.ComputeValue(g)
			if opts.Presentable && v != "" {
				v = document.PresentableValue(v)
			}
			row[g.Column] = v
		}
		ht.Rows = append(ht.Rows, row)
		ht.Lines = append(ht.Lines, doc.Tree.Line(l.Start))
	}

	return ht
}

func RenderHeaderTable(w io.Writer, ht HeaderTable, format string, opts HeaderTableOptions) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(ht); err != nil {
			return oops.Code("JSON_ERROR").Wrapf(err, "encoding header table")
		}
		return nil

	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(ht.Columns); err != nil {
			return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV header")
		}
		if err := cw.WriteAll(ht.Rows); err != nil {
			return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV rows")
		}
		return nil

	default:
		renderHeaderTableText(w, ht, opts)
		return nil
	}
}

func renderHeaderTableText(w io.Writer, ht HeaderTable, opts HeaderTableOptions) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("%s %s (line %d)", ht.Mode, ht.Type, ht.Line)

	header := table.Row{"LINE"}
	for _, c := range ht.Columns {
		header = append(header, c)
	}
	t.AppendHeader(header)

	if opts.MaxWidth > 0 {
		configs := make([]table.ColumnConfig, 0, len(ht.Columns))
		for i := range ht.Columns {
			configs = append(configs, table.ColumnConfig{
				Number:           i + 2,
				WidthMax:         opts.MaxWidth,
				WidthMaxEnforcer: text.Trim,
			})
		}
		t.SetColumnConfigs(configs)
	}

	for i, r := range ht.Rows {
		row := table.Row{ht.Lines[i]}
		for _, v := range r {
			row = append(row, v)
		}
		t.AppendRow(row)
	}

	t.Render()

	if len(ht.Rows) < ht.Total {
		_, _ = io.WriteString(w, "(showing "+strconv.Itoa(len(ht.Rows))+" of "+strconv.Itoa(ht.Total)+" lines, use --all to show all)\n")
	}
}

func RenderMacros(w io.Writer, macros []parser.MacroEntry, format string) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if macros == nil {
			macros = []parser.MacroEntry{}
		}
		if err := encoder.Encode(macros); err != nil {
			return oops.Code("JSON_ERROR").Wrapf(err, "encoding macros")
		}
		return nil

	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"line", "name", "status", "raw", "value"}); err != nil {
			return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV header")
		}
		for _, m := range macros {
			if err := cw.Write([]string{strconv.Itoa(m.Line), m.Name, m.Status, m.Raw, m.Value}); err != nil {
				return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV row")
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return oops.Code("CSV_ERROR").Wrapf(err, "flushing CSV")
		}
		return nil

	default:
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"LINE", "NAME", "STATUS", "VALUE"})
		for _, m := range macros {
			t.AppendRow(table.Row{m.Line, m.Name, m.Status, m.Value})
		}
		t.Render()
		return nil
	}
}
