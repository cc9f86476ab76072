// Package macro stores ImpEx macro declarations and resolves usages.
//
// Resolution is recomputed on every call. A Visited set tracks the
// declarations being expanded by the current top-level call so that cycles
// terminate, and a depth cap bounds very long chains.
package macro

import (
	"fmt"
	"slices"
	"strings"

	"github.com/g5becks/impex/internal/lexer"
)

const (
	DefaultMaxDepth = 256
	ConfigPrefix    = "$config-"

	everywhere = -1
)

type Status int

const (
	StatusResolved Status = iota
	// StatusEmpty is the bare config prefix, which resolves to "".
	StatusEmpty
	// StatusDeferred is a config property the resolver has no value for.
	StatusDeferred
	StatusUnresolved
	StatusCycle
	StatusTooDeep
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusEmpty:
		return "empty"
	case StatusDeferred:
		return "deferred"
	case StatusUnresolved:
		return "unresolved"
	case StatusCycle:
		return "cycle"
	case StatusTooDeep:
		return "too-deep"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ConfigResolver supplies values for configuration property usages.
type ConfigResolver interface {
	Lookup(key string) (string, bool)
}

// MapResolver resolves config properties from a map.
type MapResolver map[string]string

func (m MapResolver) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

type Declaration struct {
	// Name is the escaped name including the leading "$".
	Name    string `json:"name"`
	RawName string `json:"-"`
	Raw     string `json:"raw"`
	// Order is the declaration's position, usually its byte offset.
	Order int `json:"order"`
}

// Issue is a usage that did not resolve cleanly somewhere in an expansion.
type Issue struct {
	Usage  string `json:"usage"`
	Status Status `json:"status"`
}

type Result struct {
	Value       string       `json:"value"`
	Status      Status       `json:"status"`
	Declaration *Declaration `json:"declaration,omitempty"`
	Issues      []Issue      `json:"issues,omitempty"`
}

// Clean reports whether the expansion hit no cycle, depth cap or unresolved
// usage. Deferred config properties count as clean.
func (r Result) Clean() bool {
	for _, issue := range r.Issues {
		if issue.Status != StatusDeferred {
			return false
		}
	}
	return r.Status == StatusResolved || r.Status == StatusEmpty || r.Status == StatusDeferred
}

// Visited holds the declarations being expanded. The zero value is ready to
// use through Resolve, which allocates one when nil is passed.
type Visited map[int]struct{}

type Table struct {
	decls    []Declaration
	config   ConfigResolver
	maxDepth int
}

type Option func(*Table)

func WithConfig(r ConfigResolver) Option {
	return func(t *Table) {
		t.config = r
	}
}

func WithMaxDepth(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.maxDepth = n
		}
	}
}

func New(opts ...Option) *Table {
	t := &Table{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// EscapeName removes line continuations from a declared name.
func EscapeName(name string) string {
	return strings.NewReplacer("\\", "", "\n", "", "\r", "").Replace(name)
}

// Declare registers a declaration. Later declarations shadow earlier ones of
// the same name; all of them are kept.
func (t *Table) Declare(name, raw string, order int) Declaration {
	d := Declaration{Name: normalize(EscapeName(name)), RawName: name, Raw: raw, Order: order}

	i := slices.IndexFunc(t.decls, func(existing Declaration) bool { return existing.Order > order })
	if i < 0 {
		t.decls = append(t.decls, d)
	} else {
		t.decls = slices.Insert(t.decls, i, d)
	}
	return d
}

func (t *Table) Len() int {
	return len(t.decls)
}

// Declarations returns every declaration in order.
func (t *Table) Declarations() []Declaration {
	return slices.Clone(t.decls)
}

// Snapshot returns the latest declaration of each name, in declaration order.
func (t *Table) Snapshot() []Declaration {
	latest := make(map[string]int, len(t.decls))
	for i, d := range t.decls {
		latest[d.Name] = i
	}

	out := make([]Declaration, 0, len(latest))
	for i, d := range t.decls {
		if latest[d.Name] == i {
			out = append(out, d)
		}
	}
	return out
}

// Lookup finds the declaration a usage refers to among the declarations
// placed before offset (any declaration when offset is negative). An exact
// name wins; otherwise the longest declared name that prefixes the usage is
// used and the rest of the usage is returned as suffix.
func (t *Table) Lookup(usage string, offset int) (Declaration, string, bool) {
	i, suffix, ok := t.lookup(normalize(usage), offset)
	if !ok {
		return Declaration{}, "", false
	}
	return t.decls[i], suffix, true
}

func (t *Table) lookup(usage string, before int) (int, string, bool) {
	best, bestLen := -1, 0
	for i := len(t.decls) - 1; i >= 0; i-- {
		d := &t.decls[i]
		if before != everywhere && d.Order >= before {
			continue
		}
		if d.Name == usage {
			return i, "", true
		}
		if len(d.Name) > bestLen && strings.HasPrefix(usage, d.Name) {
			best, bestLen = i, len(d.Name)
		}
	}

	if best < 0 {
		return -1, "", false
	}
	return best, usage[bestLen:], true
}

// Resolve expands a usage against the latest declarations. visited may be
// nil.
func (t *Table) Resolve(name string, visited Visited) Result {
	if visited == nil {
		visited = Visited{}
	}
	return t.resolve(normalize(name), everywhere, visited, 0)
}

// ResolveAt expands a usage found at offset: only declarations above it are
// visible, and nested usages see the declarations above their own
// declaration.
func (t *Table) ResolveAt(name string, offset int, visited Visited) Result {
	if visited == nil {
		visited = Visited{}
	}
	return t.resolve(normalize(name), offset, visited, 0)
}

// ResolveText replaces every usage in text. Problems of individual usages
// are listed in Issues.
func (t *Table) ResolveText(text string, offset int) Result {
	value, issues := t.substitute(text, offset, Visited{}, 0)
	return Result{Value: value, Status: expansionStatus(issues), Issues: issues}
}

func (t *Table) resolve(name string, scope int, visited Visited, depth int) Result {
	if depth > t.maxDepth {
		return failed(name, StatusTooDeep)
	}

	if key, ok := strings.CutPrefix(name, ConfigPrefix); ok {
		if key == "" {
			return Result{Value: "", Status: StatusEmpty}
		}
		if v, found := t.lookupConfig(key); found {
			return Result{Value: v, Status: StatusResolved}
		}
		return failed(name, StatusDeferred)
	}

	i, suffix, ok := t.lookup(name, scope)
	if !ok {
		if v, found := t.lookupConfig(strings.TrimPrefix(name, "$")); found {
			return Result{Value: v, Status: StatusResolved}
		}
		return failed(name, StatusUnresolved)
	}

	if _, seen := visited[i]; seen {
		return failed(name, StatusCycle)
	}
	visited[i] = struct{}{}
	defer delete(visited, i)

	d := t.decls[i]
	nested := scope
	if scope != everywhere {
		nested = d.Order
	}

	value, issues := t.substitute(d.Raw, nested, visited, depth+1)
	return Result{Value: value + suffix, Status: expansionStatus(issues), Declaration: &d, Issues: issues}
}

// expansionStatus is StatusCycle or StatusTooDeep when a nested usage hit
// one, else StatusResolved. Unresolved nested usages stay in Issues only.
func expansionStatus(issues []Issue) Status {
	status := StatusResolved
	for _, issue := range issues {
		if (issue.Status == StatusCycle || issue.Status == StatusTooDeep) && issue.Status > status {
			status = issue.Status
		}
	}
	return status
}

func (t *Table) substitute(text string, scope int, visited Visited, depth int) (string, []Issue) {
	spans := lexer.ScanMacroUsages(text)
	if len(spans) == 0 {
		return text, nil
	}

	var (
		b      strings.Builder
		issues []Issue
		last   int
	)
	for _, span := range spans {
		b.WriteString(text[last:span[0]])
		r := t.resolve(text[span[0]:span[1]], scope, visited, depth)
		b.WriteString(r.Value)
		issues = append(issues, r.Issues...)
		last = span[1]
	}
	b.WriteString(text[last:])

	return b.String(), issues
}

func (t *Table) lookupConfig(key string) (string, bool) {
	if t.config == nil {
		return "", false
	}
	return t.config.Lookup(key)
}

func failed(name string, status Status) Result {
	return Result{Value: name, Status: status, Issues: []Issue{{Usage: name, Status: status}}}
}

func normalize(name string) string {
	if strings.HasPrefix(name, "$") {
		return name
	}
	return "$" + name
}
