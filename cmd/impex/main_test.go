//nolint:testpackage // Drives the unexported command tree and helpers.
package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/g5becks/impex/internal/document"
	"github.com/g5becks/impex/internal/parser"
	"github.com/g5becks/impex/internal/snapshot"
	"github.com/g5becks/impex/internal/workspace"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"a longer value", 8, "a lon..."},
		{"abc", 2, "..."},
		{"unlimited", 0, "unlimited"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestCheckOutcome(t *testing.T) {
	warn := document.Parse("INSERT Product;code\n;a;b\n", document.DefaultOptions())
	run := &workspace.RunResult{Files: []*workspace.File{{
		Path:   "a.impex",
		Result: &parser.ParseResult{Document: warn},
	}}}

	if err := checkOutcome(run, false); err != nil {
		t.Fatalf("checkOutcome(warnings) error = %v, want nil", err)
	}
	if err := checkOutcome(run, true); err == nil {
		t.Fatalf("checkOutcome(warnings, strict) error = nil, want failure")
	}
	if err := checkOutcome(&workspace.RunResult{Errors: 1}, false); err == nil {
		t.Fatalf("checkOutcome(unreadable input) error = nil, want failure")
	}
}

func TestInitThenCheck(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := run([]string{"impex", "init"}); err != nil {
		t.Fatalf("init error = %v", err)
	}
	if err := run([]string{"impex", "init"}); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("second init error = %v, want already exists", err)
	}

	impexDir := filepath.Join(dir, "resources", "impex")
	if err := os.MkdirAll(impexDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	writeTestFile(t, filepath.Join(impexDir, "units.impex"), "INSERT_UPDATE Unit;code[unique=true];name\n;pc;piece\n")

	if err := run([]string{"impex", "check", "--format", "json"}); err != nil {
		t.Fatalf("check error = %v", err)
	}

	snap, err := snapshot.Load(filepath.Join(dir, ".impex"))
	if err != nil {
		t.Fatalf("snapshot.Load() error = %v", err)
	}
	core := snap.Sources["core"]
	if core == nil || core.FileCount != 1 || filepath.Base(core.Files[0].Path) != "units.impex" {
		t.Fatalf("snapshot core = %+v", core)
	}

	writeTestFile(t, filepath.Join(impexDir, "broken.impex"), "INSERT Product;code\n;a;b\n")
	if err := run([]string{"impex", "check", "--strict", "--format", "csv"}); err == nil {
		t.Fatalf("strict check error = nil, want failure")
	}

	if err := run([]string{"impex", "search", "--json", "Unit"}); err != nil {
		t.Fatalf("search error = %v", err)
	}
	if err := run([]string{"impex", "report", "--out", filepath.Join(dir, "report.html")}); err != nil {
		t.Fatalf("report error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "report.html"))
	if err != nil || !strings.Contains(string(data), "<html") {
		t.Fatalf("report.html = %q, %v", data, err)
	}
}

func TestFileCommandsWithoutConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "products.impex")
	writeTestFile(t, path, "$brand=Acme\nINSERT Product;code[unique=true];name\n;p1;$brand Shirt\n")

	for _, args := range [][]string{
		{"impex", "outline", path},
		{"impex", "macros", "--format", "csv", path},
		{"impex", "table", "--type", "product", path},
		{"impex", "search", "--values", "acme", path},
		{"impex", "check", path},
	} {
		if err := run(args); err != nil {
			t.Fatalf("%v error = %v", args[1:], err)
		}
	}

	if err := run([]string{"impex", "table", "--type", "Category", path}); err == nil {
		t.Fatalf("table --type Category error = nil, want header not found")
	}
	if err := run([]string{"impex", "search", "--regex", "x"}); err == nil {
		t.Fatalf("search --regex without --values error = nil")
	}
	if err := run([]string{"impex", "outline"}); err == nil {
		t.Fatalf("outline without file error = nil")
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile(%q) error = %v", path, err)
	}
}
