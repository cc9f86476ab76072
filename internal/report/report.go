// Package report renders ImpEx documents and check snapshots as markdown,
// and markdown as a standalone HTML page.
package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/document"
	impexparser "github.com/g5becks/impex/internal/parser"
	"github.com/g5becks/impex/internal/snapshot"
)

const DefaultMaxRows = 20

type Options struct {
	// MaxRows limits the value lines shown per header. Zero uses
	// DefaultMaxRows, a negative value shows none.
	MaxRows     int
	MinSeverity diag.Severity
}

func (o Options) maxRows() int {
	if o.MaxRows == 0 {
		return DefaultMaxRows
	}
	return max(o.MaxRows, 0)
}

// Document renders one parsed document: summary, macros, header tables and
// diagnostics.
func Document(path string, result *impexparser.ParseResult, opts Options) []byte {
	var b bytes.Buffer
	doc := result.Document
	diags := doc.Diagnostics.AtLeast(opts.MinSeverity).Sorted()

	fmt.Fprintf(&b, "# %s\n\n", escape(path))
	if result.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", escape(result.Description))
	}

	b.WriteString("| Lines | Headers | Value lines | Macros | Scripts | Errors | Warnings |\n")
	b.WriteString("| ---: | ---: | ---: | ---: | ---: | ---: | ---: |\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d | %d |\n\n",
		result.Lines,
		len(doc.Headers),
		len(doc.Lines),
		doc.Macros.Len(),
		len(doc.Scripts),
		len(doc.Diagnostics.Errors()),
		len(doc.Diagnostics.Warnings()),
	)

	if outline := result.Outline; outline != nil && len(outline.Macros) > 0 {
		b.WriteString("## Macros\n\n")
		writeRow(&b, "Line", "Name", "Status", "Value")
		writeRule(&b, 4)
		for _, m := range outline.Macros {
			writeRow(&b, strconv.Itoa(m.Line), code(m.Name), m.Status, code(m.Value))
		}
		b.WriteString("\n")
	}

	if len(doc.Headers) > 0 {
		b.WriteString("## Headers\n\n")
		for _, h := range doc.Headers {
			writeHeader(&b, doc, h, opts.maxRows())
		}
	}

	b.WriteString("## Diagnostics\n\n")
	writeDiagnostics(&b, diags)

	return b.Bytes()
}

func writeHeader(b *bytes.Buffer, doc *document.Document, h *document.Header, maxRows int) {
	fmt.Fprintf(b, "### %s %s (line %d)\n\n", h.Mode, escape(h.ResolvedTypeName), doc.Tree.Line(h.Start))

	if keys := h.KeyParameters(); len(keys) > 0 {
		names := make([]string, 0, len(keys))
		for _, k := range keys {
			names = append(names, code(k.Key()))
		}
		fmt.Fprintf(b, "Keys: %s\n\n", strings.Join(names, ", "))
	}

	lines := doc.ValueLines(h)
	if len(lines) == 0 || maxRows == 0 || h.Columns == 0 {
		fmt.Fprintf(b, "%d value line(s).\n\n", len(lines))
		return
	}

	columns := []string{"Line"}
	for col := range h.Columns {
		name := ""
		if p, ok := h.Parameter(col); ok {
			name = p.ResolvedName
		}
		columns = append(columns, escape(name))
	}
	writeRow(b, columns...)
	writeRule(b, len(columns))

	for _, l := range lines[:min(len(lines), maxRows)] {
		cells := []string{strconv.Itoa(doc.Tree.Line(l.Start))}
		for col := range h.Columns {
			v := ""
			if g, ok := l.ValueGroup(col); ok {
				v = doc.ComputeValue(g)
			}
			cells = append(cells, escape(v))
		}
		writeRow(b, cells...)
	}
	b.WriteString("\n")

	if len(lines) > maxRows {
		fmt.Fprintf(b, "%d more value line(s) not shown.\n\n", len(lines)-maxRows)
	}
}

func writeDiagnostics(b *bytes.Buffer, diags diag.List) {
	if len(diags) == 0 {
		b.WriteString("No diagnostics.\n")
		return
	}

	writeRow(b, "Line", "Severity", "Code", "Message")
	writeRule(b, 4)
	for _, d := range diags {
		writeRow(b, fmt.Sprintf("%d:%d", d.Line, d.Column), d.Severity.String(), string(d.Code), escape(d.Message))
	}
}

// Snapshot renders a summary of the last check: one table per source and
// the diagnostics at or above opts.MinSeverity.
func Snapshot(s *snapshot.Snapshot, opts Options) []byte {
	var b bytes.Buffer

	b.WriteString("# ImpEx check report\n\n")
	fmt.Fprintf(&b, "Generated %s.\n\n", s.Generated.UTC().Format("2006-01-02 15:04 MST"))

	for _, name := range s.SourceNames() {
		src := s.Sources[name]
		fmt.Fprintf(&b, "## %s\n\n", escape(name))
		if src.Location != "" {
			fmt.Fprintf(&b, "%s source at %s, %d file(s), %d error(s), %d warning(s).\n\n",
				src.Type, code(src.Location), src.FileCount, src.Errors, src.Warnings)
		}

		if len(src.Files) == 0 {
			b.WriteString("No files.\n\n")
			continue
		}

		writeRow(&b, "File", "Lines", "Headers", "Errors", "Warnings", "Description")
		writeRule(&b, 6)
		for _, f := range src.Files {
			headers := 0
			if f.Outline != nil {
				headers = len(f.Outline.Headers)
			}
			desc := f.Description
			if f.Error != "" {
				desc = "failed: " + f.Error
			}
			writeRow(&b,
				code(f.Path),
				strconv.Itoa(f.Lines),
				strconv.Itoa(headers),
				strconv.Itoa(len(f.Diagnostics.Errors())),
				strconv.Itoa(len(f.Diagnostics.Warnings())),
				escape(desc),
			)
		}
		b.WriteString("\n")

		for _, f := range src.Files {
			diags := f.Diagnostics.AtLeast(opts.MinSeverity)
			if len(diags) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n", escape(f.Path))
			writeDiagnostics(&b, diags)
			b.WriteString("\n")
		}
	}

	return b.Bytes()
}

// ToHTML renders markdown as a complete HTML page.
func ToHTML(md []byte, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage | html.TOC,
	})
	return markdown.ToHTML(md, p, renderer)
}

func writeRow(b *bytes.Buffer, cells ...string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(c)
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func writeRule(b *bytes.Buffer, n int) {
	b.WriteString("|")
	for range n {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"<", "&lt;",
	"[", `\[`,
	"#", `\#`,
	"\n", " ",
	"\r", "",
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

// code wraps s in a code span. Pipes stay escaped since they would still end
// the table cell.
func code(s string) string {
	if s == "" {
		return ""
	}
	s = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "").Replace(s)
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		s = " " + s + " "
	}
	return fence + s + fence
}
