// Package diag holds the diagnostics every layer reports instead of failing.
package diag

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "info":
		*s = SeverityInfo
	case "warning", "warn":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", string(text))
	}
	return nil
}

type Code string

const (
	SyntaxError            Code = "SyntaxError"
	CycleDetected          Code = "CycleDetected"
	MacroTooDeep           Code = "MacroTooDeep"
	UnresolvedReference    Code = "UnresolvedReference"
	ColumnOverflow         Code = "ColumnOverflow"
	MissingUniqueValue     Code = "MissingUniqueValue"
	MissingHeaderParameter Code = "MissingHeaderParameter"
	DuplicateDocumentID    Code = "DuplicateDocumentID"
	MultilineMacroName     Code = "MultilineMacroName"
	ConfigProcessorMissing Code = "ConfigProcessorMissing"
	UserRightsHeaderOrder  Code = "UserRightsHeaderOrder"
	ValueLineWithoutHeader Code = "ValueLineWithoutHeader"
	InvalidModifierValue   Code = "InvalidModifierValue"
)

// Diagnostic is a located finding. Start and End are byte offsets; Line and
// Column are 1-based.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d %s %s: %s", d.Line, d.Column, d.Severity, d.Code, d.Message)
}

type List []Diagnostic

func (l *List) Add(d Diagnostic) {
	*l = append(*l, d)
}

func (l List) filter(keep func(Diagnostic) bool) List {
	var out List
	for _, d := range l {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func (l List) Errors() List {
	return l.filter(func(d Diagnostic) bool { return d.Severity == SeverityError })
}

func (l List) Warnings() List {
	return l.filter(func(d Diagnostic) bool { return d.Severity == SeverityWarning })
}

func (l List) ByCode(code Code) List {
	return l.filter(func(d Diagnostic) bool { return d.Code == code })
}

func (l List) HasErrors() bool {
	return slices.ContainsFunc(l, func(d Diagnostic) bool { return d.Severity == SeverityError })
}

// AtLeast returns the diagnostics whose severity is min or worse.
func (l List) AtLeast(minSeverity Severity) List {
	return l.filter(func(d Diagnostic) bool { return d.Severity >= minSeverity })
}

// Sorted returns a copy ordered by position, then code.
func (l List) Sorted() List {
	out := slices.Clone(l)
	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
	return out
}
