// Package search finds symbols and cell values across checked documents.
package search

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/samber/oops"

	"github.com/g5becks/impex/internal/snapshot"
)

type SymbolKind string

const (
	KindMacro  SymbolKind = "macro"
	KindType   SymbolKind = "type"
	KindKey    SymbolKind = "key"
	KindScript SymbolKind = "script"
	KindFile   SymbolKind = "file"
)

// SymbolResult represents a single match from symbol search.
type SymbolResult struct {
	Source string     `json:"source"`
	Path   string     `json:"path"`
	Kind   SymbolKind `json:"kind"`
	Name   string     `json:"name"`
	Detail string     `json:"detail,omitempty"`
	Line   int        `json:"line"`
	Score  int        `json:"score"`
}

// SymbolOptions configures symbol search behavior.
type SymbolOptions struct {
	Query  string
	Source string
	Kinds  []SymbolKind
	Limit  int
}

type indexEntry struct {
	Source string
	Path   string
	Kind   SymbolKind
	Name   string
	Detail string
	Line   int
}

type searchIndex struct {
	entries []indexEntry
}

func (s searchIndex) String(i int) string {
	return s.entries[i].Name
}

func (s searchIndex) Len() int {
	return len(s.entries)
}

// Symbols performs fuzzy search over macro names, item types, key
// parameters, script hooks and file descriptions of a snapshot.
func Symbols(s *snapshot.Snapshot, opts SymbolOptions) ([]SymbolResult, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return nil, oops.
			Code("INVALID_ARGS").
			Hint("Provide a non-empty search query").
			Errorf("search query cannot be empty")
	}

	if opts.Source != "" {
		if _, exists := s.Sources[opts.Source]; !exists {
			return nil, oops.
				Code("SOURCE_NOT_FOUND").
				With("source", opts.Source).
				Hint("Run 'impex sources' to see checked sources").
				Errorf("source %q not found", opts.Source)
		}
	}

	index := buildIndex(s, opts.Source, opts.Kinds)
	matches := fuzzy.FindFrom(query, index)

	seen := make(map[indexEntry]struct{}, len(matches))
	results := make([]SymbolResult, 0, len(matches))
	for _, match := range matches {
		entry := index.entries[match.Index]
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		results = append(results, SymbolResult{
			Source: entry.Source,
			Path:   entry.Path,
			Kind:   entry.Kind,
			Name:   entry.Name,
			Detail: entry.Detail,
			Line:   entry.Line,
			Score:  match.Score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].Line < results[j].Line
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func buildIndex(s *snapshot.Snapshot, sourceFilter string, kinds []SymbolKind) searchIndex {
	want := func(k SymbolKind) bool {
		if len(kinds) == 0 {
			return true
		}
		for _, kind := range kinds {
			if kind == k {
				return true
			}
		}
		return false
	}

	var entries []indexEntry
	add := func(e indexEntry) {
		if want(e.Kind) && e.Name != "" {
			entries = append(entries, e)
		}
	}

	for _, ref := range s.Files() {
		if sourceFilter != "" && ref.Source != sourceFilter {
			continue
		}
		file := ref.File
		base := indexEntry{Source: ref.Source, Path: file.Path}

		e := base
		e.Kind, e.Name, e.Detail, e.Line = KindFile, file.Path, file.Description, 1
		add(e)

		if file.Outline == nil {
			continue
		}

		for _, m := range file.Outline.Macros {
			e := base
			e.Kind, e.Name, e.Detail, e.Line = KindMacro, m.Name, m.Value, m.Line
			add(e)
		}

		for _, h := range file.Outline.Headers {
			e := base
			e.Kind, e.Name, e.Detail, e.Line = KindType, h.Type, h.Mode, h.Line
			add(e)

			for _, key := range h.Keys {
				e := base
				e.Kind, e.Name, e.Detail, e.Line = KindKey, key, h.Type, h.Line
				add(e)
			}
		}

		for _, sc := range file.Outline.Scripts {
			if sc.Action == "" {
				continue
			}
			e := base
			e.Kind, e.Name, e.Detail, e.Line = KindScript, sc.Action, sc.Language, sc.Line
			add(e)
		}
	}

	return searchIndex{entries: entries}
}
