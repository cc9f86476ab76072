package search_test

import (
	"testing"

	"github.com/g5becks/impex/internal/parser"
	"github.com/g5becks/impex/internal/search"
	"github.com/g5becks/impex/internal/snapshot"
)

func buildTestSnapshot() *snapshot.Snapshot {
	s := snapshot.New()
	s.Sources["core"] = &snapshot.Source{
		Name: "core",
		Files: []snapshot.FileInfo{
			{
				Path:        "essentialdata.impex",
				Description: "Units and currencies",
				Outline: &parser.Outline{
					Macros: []parser.MacroEntry{
						{Name: "$catalogVersion", Value: "catalogVersion(...)", Line: 2},
					},
					Headers: []parser.HeaderEntry{
						{Mode: "INSERT_UPDATE", Type: "Currency", Line: 4, Keys: []string{"isocode"}},
						{Mode: "INSERT_UPDATE", Type: "Unit", Line: 9, Keys: []string{"code"}},
					},
				},
			},
		},
	}
	s.Sources["sample"] = &snapshot.Source{
		Name: "sample",
		Files: []snapshot.FileInfo{
			{
				Path: "products.impex",
				Outline: &parser.Outline{
					Headers: []parser.HeaderEntry{
						{Mode: "INSERT", Type: "Product", Line: 3, Keys: []string{"code", "catalogVersion"}},
					},
					Scripts: []parser.ScriptEntry{{Language: "groovy", Action: "beforeEach", Line: 1}},
				},
			},
		},
	}
	return s
}

func TestSymbolsFindsTypes(t *testing.T) {
	results, err := search.Symbols(buildTestSnapshot(), search.SymbolOptions{Query: "Currency"})
	if err != nil {
		t.Fatalf("Symbols() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("Symbols() returned no results")
	}
	if results[0].Kind != search.KindType || results[0].Name != "Currency" || results[0].Line != 4 {
		t.Fatalf("results[0] = %+v", results[0])
	}
}

func TestSymbolsFilters(t *testing.T) {
	tests := []struct {
		name     string
		opts     search.SymbolOptions
		wantKind search.SymbolKind
		wantPath string
		wantLen  int
	}{
		{
			name:     "macro only",
			opts:     search.SymbolOptions{Query: "catver", Kinds: []search.SymbolKind{search.KindMacro}},
			wantKind: search.KindMacro,
			wantPath: "essentialdata.impex",
			wantLen:  1,
		},
		{
			name:     "key in one source",
			opts:     search.SymbolOptions{Query: "catalogVersion", Source: "sample", Kinds: []search.SymbolKind{search.KindKey}},
			wantKind: search.KindKey,
			wantPath: "products.impex",
			wantLen:  1,
		},
		{
			name:     "script hook",
			opts:     search.SymbolOptions{Query: "beforeEach"},
			wantKind: search.KindScript,
			wantPath: "products.impex",
			wantLen:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := search.Symbols(buildTestSnapshot(), tt.opts)
			if err != nil {
				t.Fatalf("Symbols() error = %v", err)
			}
			if len(results) != tt.wantLen {
				t.Fatalf("len(results) = %d, want %d: %+v", len(results), tt.wantLen, results)
			}
			if results[0].Kind != tt.wantKind || results[0].Path != tt.wantPath {
				t.Fatalf("results[0] = %+v", results[0])
			}
		})
	}
}

func TestSymbolsLimit(t *testing.T) {
	results, err := search.Symbols(buildTestSnapshot(), search.SymbolOptions{Query: "c", Limit: 2})
	if err != nil {
		t.Fatalf("Symbols() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
}

func TestSymbolsErrors(t *testing.T) {
	if _, err := search.Symbols(buildTestSnapshot(), search.SymbolOptions{Query: "  "}); err == nil {
		t.Fatalf("Symbols() with empty query: got nil error")
	}
	if _, err := search.Symbols(buildTestSnapshot(), search.SymbolOptions{Query: "x", Source: "nope"}); err == nil {
		t.Fatalf("Symbols() with unknown source: got nil error")
	}
}
