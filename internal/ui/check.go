package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/g5becks/impex/internal/workspace"
)

type styles struct {
	green  *color.Color
	red    *color.Color
	yellow *color.Color
	dim    *color.Color
	bold   *color.Color
}

func newStyles() styles {
	return styles{
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		dim:    color.New(color.Faint),
		bold:   color.New(color.Bold),
	}
}

// CheckPrinter renders check events to stderr with colored output.
type CheckPrinter struct {
	w     io.Writer
	files bool
	mu    sync.Mutex
	s     styles
}

// NewCheckPrinter creates a CheckPrinter that writes to stderr. When files is
// set every parsed document gets its own line.
func NewCheckPrinter(files bool) *CheckPrinter {
	return NewCheckPrinterWithWriter(os.Stderr, files)
}

func NewCheckPrinterWithWriter(w io.Writer, files bool) *CheckPrinter {
	return &CheckPrinter{
		w:     w,
		files: files,
		s:     newStyles(),
	}
}

// HandleEvent is the callback wired into workspace.Options.OnEvent.
func (p *CheckPrinter) HandleEvent(e workspace.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Kind {
	case workspace.EventSourceStart:
		fmt.Fprintf(p.w, "%s loading %s...\n",
			p.s.dim.Sprint("⟳"),
			p.s.bold.Sprint(e.Source),
		)

	case workspace.EventFileDone:
		if p.files {
			p.handleFile(e)
		}

	case workspace.EventSourceDone:
		p.handleDone(e)
	}
}

func (p *CheckPrinter) handleFile(e workspace.Event) {
	if e.File == nil {
		return
	}
	if e.Err != nil {
		fmt.Fprintf(p.w, "  %s %s: %s\n", p.s.red.Sprint("✗"), e.File.Path, e.Err)
		return
	}

	list := e.File.Diagnostics()
	errs, warnings := len(list.Errors()), len(list.Warnings())
	mark := p.s.green.Sprint("✓")
	switch {
	case errs > 0:
		mark = p.s.red.Sprint("✗")
	case warnings > 0:
		mark = p.s.yellow.Sprint("!")
	}

	fmt.Fprintf(p.w, "  %s %s %s\n", mark, e.File.Path, p.s.dim.Sprint(formatDiagnosticCounts(errs, warnings)))
}

func (p *CheckPrinter) handleDone(e workspace.Event) {
	if e.Err != nil {
		fmt.Fprintf(p.w, "%s %s: %s\n",
			p.s.red.Sprint("✗"),
			p.s.bold.Sprint(e.Source),
			e.Err,
		)
		return
	}

	if e.Result == nil {
		return
	}

	name := p.s.bold.Sprint(e.Source)

	if e.Result.Skipped {
		fmt.Fprintf(p.w, "%s %s %s\n",
			p.s.dim.Sprint("—"),
			name,
			p.s.dim.Sprint("(not modified)"),
		)
		return
	}

	fmt.Fprintf(p.w, "%s %s %s\n",
		p.s.green.Sprint("✓"),
		name,
		p.s.dim.Sprint(formatFileCounts(e.Result.Files, e.Result.Unchanged)),
	)
}

func formatFileCounts(checked int, unchanged int) string {
	switch {
	case checked > 0 && unchanged > 0:
		return fmt.Sprintf("(%d checked, %d unchanged)", checked, unchanged)
	case checked > 0:
		return fmt.Sprintf("(%d checked)", checked)
	case unchanged > 0:
		return fmt.Sprintf("(%d unchanged)", unchanged)
	default:
		return "(no files)"
	}
}

func formatDiagnosticCounts(errs int, warnings int) string {
	switch {
	case errs > 0 && warnings > 0:
		return fmt.Sprintf("(%d errors, %d warnings)", errs, warnings)
	case errs > 0:
		return fmt.Sprintf("(%d errors)", errs)
	case warnings > 0:
		return fmt.Sprintf("(%d warnings)", warnings)
	default:
		return ""
	}
}

// PrintSummary renders a final summary line after a check completes.
func (p *CheckPrinter) PrintSummary(r *workspace.RunResult) {
	if r == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.w)

	errs, warnings, _ := r.Diagnostics()

	label := p.s.green.Sprint("check passed")
	if errs > 0 || r.Errors > 0 {
		label = p.s.red.Sprint("check failed")
	}

	parts := fmt.Sprintf("%s: %d source(s), %d file(s), %d unchanged, %d not modified",
		label,
		r.Sources,
		len(r.Files),
		r.Unchanged,
		r.Skipped,
	)

	if errs > 0 {
		parts += ", " + p.s.red.Sprintf("%d error(s)", errs)
	}
	if warnings > 0 {
		parts += ", " + p.s.yellow.Sprintf("%d warning(s)", warnings)
	}
	if r.Errors > 0 {
		parts += ", " + p.s.red.Sprintf("%d failed", r.Errors)
	}

	fmt.Fprintln(p.w, parts)
}
