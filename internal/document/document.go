// Package document turns a syntax tree into the tabular ImpEx model: header
// lines with their parameters, the value lines below them, user rights
// tables and scripts.
//
// Headers and lines are stored in the Document arena and refer to each other
// by HeaderID and LineID, never by pointer cycles.
package document

import (
	"strings"

	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/macro"
	"github.com/g5becks/impex/internal/syntax"
)

type HeaderID int

type LineID int

const NoHeader HeaderID = -1

type Mode string

const (
	ModeInsert       Mode = "INSERT"
	ModeUpdate       Mode = "UPDATE"
	ModeInsertUpdate Mode = "INSERT_UPDATE"
	ModeRemove       Mode = "REMOVE"
)

// OverflowPolicy decides what happens to value cells beyond the last header
// column.
type OverflowPolicy string

const (
	OverflowIgnore OverflowPolicy = "ignore"
	OverflowWarn   OverflowPolicy = "warn"
	OverflowError  OverflowPolicy = "error"
)

// Options configure Build. The zero value is usable: a blank line ends the
// current table unless BlankLineContinuesTable is set.
type Options struct {
	Delimiter               byte
	Overflow                OverflowPolicy
	BlankLineContinuesTable bool
	MaxMacroDepth           int
	Config                  macro.ConfigResolver
}

func DefaultOptions() Options {
	return Options{
		Delimiter:     ';',
		Overflow:      OverflowWarn,
		MaxMacroDepth: macro.DefaultMaxDepth,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Delimiter == 0 {
		o.Delimiter = def.Delimiter
	}
	if o.Overflow == "" {
		o.Overflow = def.Overflow
	}
	if o.MaxMacroDepth <= 0 {
		o.MaxMacroDepth = def.MaxMacroDepth
	}
	return o
}

type ParameterKind string

const (
	ParameterAttribute  ParameterKind = "attribute"
	ParameterSpecial    ParameterKind = "special"
	ParameterDocumentID ParameterKind = "documentId"
	ParameterMacro      ParameterKind = "macro"
)

// CollectionMode is the (+), (-) or (+?) prefix of a collection parameter.
type CollectionMode string

const (
	CollectionReplace CollectionMode = ""
	CollectionAppend  CollectionMode = "append"
	CollectionRemove  CollectionMode = "remove"
	CollectionMerge   CollectionMode = "merge"
)

type Modifier struct {
	Name string `json:"name"`
	// Value is macro-resolved with surrounding quotes removed.
	Value    string `json:"value"`
	RawValue string `json:"rawValue,omitempty"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

type Parameter struct {
	// Name is the parameter as written, e.g. "code", "$version" or "&ref".
	Name string `json:"name"`
	// ResolvedName is Name after macro expansion, without modifiers.
	ResolvedName string         `json:"resolvedName"`
	Kind         ParameterKind  `json:"kind"`
	Collection   CollectionMode `json:"collection,omitempty"`
	// Column is the 0-based value column the parameter describes; -1 for
	// sub-parameters.
	Column     int          `json:"column"`
	Modifiers  []Modifier   `json:"modifiers,omitempty"`
	Parameters []*Parameter `json:"parameters,omitempty"`

	Node  syntax.NodeID `json:"-"`
	Start int           `json:"start"`
	End   int           `json:"end"`
}

// Modifier returns the modifier with the given name. Names compare
// case-insensitively.
func (p *Parameter) Modifier(name string) (Modifier, bool) {
	return findModifier(p.Modifiers, name)
}

func (p *Parameter) IsUnique() bool {
	m, ok := p.Modifier("unique")
	return ok && strings.EqualFold(m.Value, "true")
}

// Default returns the value of the default modifier.
func (p *Parameter) Default() (string, bool) {
	m, ok := p.Modifier("default")
	if !ok {
		return "", false
	}
	return m.Value, true
}

// Key identifies a parameter for de-duplication.
func (p *Parameter) Key() string {
	return p.ResolvedName
}

func findModifier(mods []Modifier, name string) (Modifier, bool) {
	for _, m := range mods {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Modifier{}, false
}

type Header struct {
	ID   HeaderID `json:"id"`
	Mode Mode     `json:"mode"`
	// TypeName is the item type as written; ResolvedTypeName has macros
	// expanded.
	TypeName         string     `json:"typeName"`
	ResolvedTypeName string     `json:"resolvedTypeName"`
	TypeModifiers    []Modifier `json:"typeModifiers,omitempty"`
	// Parameters keeps every parameter in column order, duplicates included.
	Parameters []*Parameter `json:"parameters"`
	// Columns is the number of value columns the header declares, counting
	// empty ones.
	Columns int      `json:"columns"`
	Lines   []LineID `json:"-"`

	Node  syntax.NodeID `json:"-"`
	Start int           `json:"start"`
	End   int           `json:"end"`
}

// TypeModifier returns the named type modifier.
func (h *Header) TypeModifier(name string) (Modifier, bool) {
	return findModifier(h.TypeModifiers, name)
}

// Parameter returns the parameter describing the 0-based column.
func (h *Header) Parameter(column int) (*Parameter, bool) {
	for _, p := range h.Parameters {
		if p.Column == column {
			return p, true
		}
	}
	return nil, false
}

// ParameterByName returns the first parameter whose written or resolved name
// matches.
func (h *Header) ParameterByName(name string) (*Parameter, bool) {
	for _, p := range h.Parameters {
		if p.Name == name || p.ResolvedName == name {
			return p, true
		}
	}
	return nil, false
}

// UniqueFullHeaderParameters returns the parameters with duplicates removed,
// keeping the first occurrence of each name.
func (h *Header) UniqueFullHeaderParameters() []*Parameter {
	seen := make(map[string]struct{}, len(h.Parameters))
	out := make([]*Parameter, 0, len(h.Parameters))
	for _, p := range h.Parameters {
		if _, dup := seen[p.Key()]; dup {
			continue
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	return out
}

// KeyParameters returns the de-duplicated parameters marked unique=true.
func (h *Header) KeyParameters() []*Parameter {
	var out []*Parameter
	for _, p := range h.UniqueFullHeaderParameters() {
		if p.IsUnique() {
			out = append(out, p)
		}
	}
	return out
}

type ValueKind string

const (
	ValueEmpty  ValueKind = "empty"
	ValuePlain  ValueKind = "value"
	ValueIgnore ValueKind = "ignore"
	ValueNull   ValueKind = "null"
)

type ValueGroup struct {
	Line   LineID `json:"line"`
	Column int    `json:"column"`
	// Raw is the exact cell text; Resolved has continuations joined, macros
	// expanded and surrounding blanks trimmed.
	Raw       string    `json:"raw"`
	Resolved  string    `json:"resolved"`
	Kind      ValueKind `json:"kind"`
	Overflow  bool      `json:"overflow,omitempty"`
	Synthetic bool      `json:"synthetic,omitempty"`

	Node  syntax.NodeID `json:"-"`
	Start int           `json:"start"`
	End   int           `json:"end"`
}

type ValueLine struct {
	ID      LineID        `json:"id"`
	Header  HeaderID      `json:"header"`
	SubType string        `json:"subType,omitempty"`
	Groups  []*ValueGroup `json:"groups"`

	Node  syntax.NodeID `json:"-"`
	Start int           `json:"start"`
	End   int           `json:"end"`
}

// ValueGroup returns the cell at the 0-based column. A missing cell is not
// an error.
func (l *ValueLine) ValueGroup(column int) (*ValueGroup, bool) {
	if column < 0 || column >= len(l.Groups) {
		return nil, false
	}
	return l.Groups[column], true
}

// AddValueGroups appends n empty cells. Existing cells are left alone.
func (l *ValueLine) AddValueGroups(n int) {
	for range n {
		l.Groups = append(l.Groups, &ValueGroup{
			Line:      l.ID,
			Column:    len(l.Groups),
			Kind:      ValueEmpty,
			Synthetic: true,
			Node:      syntax.NoNode,
			Start:     l.End,
			End:       l.End,
		})
	}
}

// Format renders the line with the given delimiter. Parsed cells keep their
// raw text.
func (l *ValueLine) Format(delimiter byte) string {
	var b strings.Builder
	b.WriteString(l.SubType)
	for _, g := range l.Groups {
		b.WriteByte(delimiter)
		b.WriteString(g.Raw)
	}
	return b.String()
}

type Document struct {
	Tree        *syntax.Tree       `json:"-"`
	Macros      *macro.Table       `json:"-"`
	Headers     []*Header          `json:"headers"`
	Lines       []*ValueLine       `json:"lines"`
	UserRights  []*UserRightsTable `json:"userRights,omitempty"`
	Scripts     []*Script          `json:"scripts,omitempty"`
	Diagnostics diag.List          `json:"diagnostics"`

	opts Options
}

func (d *Document) Header(id HeaderID) (*Header, bool) {
	if id < 0 || int(id) >= len(d.Headers) {
		return nil, false
	}
	return d.Headers[id], true
}

func (d *Document) Line(id LineID) (*ValueLine, bool) {
	if id < 0 || int(id) >= len(d.Lines) {
		return nil, false
	}
	return d.Lines[id], true
}

func (d *Document) HeaderOf(line *ValueLine) (*Header, bool) {
	return d.Header(line.Header)
}

// ValueLines returns the value lines that belong to h, in source order.
func (d *Document) ValueLines(h *Header) []*ValueLine {
	out := make([]*ValueLine, 0, len(h.Lines))
	for _, id := range h.Lines {
		out = append(out, d.Lines[id])
	}
	return out
}

// ParameterOf returns the header parameter describing the cell.
func (d *Document) ParameterOf(g *ValueGroup) (*Parameter, bool) {
	line, ok := d.Line(g.Line)
	if !ok {
		return nil, false
	}
	h, ok := d.HeaderOf(line)
	if !ok {
		return nil, false
	}
	return h.Parameter(g.Column)
}

// ColumnValues returns the cell in column of every value line of h. Lines
// too short to have the column are skipped.
func (d *Document) ColumnValues(h *Header, column int) []*ValueGroup {
	var out []*ValueGroup
	for _, line := range d.ValueLines(h) {
		if g, ok := line.ValueGroup(column); ok {
			out = append(out, g)
		}
	}
	return out
}

// TableRange returns the span from the header to the end of its last value
// line.
func (d *Document) TableRange(h *Header) (int, int) {
	end := h.End
	if n := len(h.Lines); n > 0 {
		end = d.Lines[h.Lines[n-1]].End
	}
	return h.Start, end
}

// HeaderAt returns the header whose table covers offset.
func (d *Document) HeaderAt(offset int) (*Header, bool) {
	for _, h := range d.Headers {
		start, end := d.TableRange(h)
		if offset >= start && offset <= end {
			return h, true
		}
	}
	return nil, false
}

// ComputeValue returns the cell's value, falling back to the parameter's
// default modifier. The result is unquoted and trimmed.
func (d *Document) ComputeValue(g *ValueGroup) string {
	if g.Kind != ValueEmpty {
		return strings.TrimSpace(Unquote(g.Resolved))
	}
	p, ok := d.ParameterOf(g)
	if !ok {
		return ""
	}
	v, _ := p.Default()
	return strings.TrimSpace(v)
}

// Unquote strips one pair of matching single or double quotes and folds
// doubled quotes inside them.
func Unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	q := s[0]
	if (q != '"' && q != '\'') || s[len(s)-1] != q {
		return s
	}
	inner := s[1 : len(s)-1]
	return strings.ReplaceAll(inner, string([]byte{q, q}), string(q))
}
