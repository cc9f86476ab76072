package snapshot_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/g5becks/impex/internal/config"
	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/lockfile"
	"github.com/g5becks/impex/internal/parser"
	"github.com/g5becks/impex/internal/snapshot"
	"github.com/g5becks/impex/internal/workspace"
)

func TestNew(t *testing.T) {
	s := snapshot.New()

	if s.Version != snapshot.CurrentVersion {
		t.Errorf("Version = %q, want %q", s.Version, snapshot.CurrentVersion)
	}
	if s.Sources == nil {
		t.Error("Sources should be initialized")
	}
	if s.Generated.IsZero() {
		t.Error("Generated time should be set")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".impex")

	original := snapshot.New()
	original.Sources["core"] = &snapshot.Source{
		Name:      "core",
		Type:      "local",
		CheckedAt: time.Now().UTC().Truncate(time.Second),
		FileCount: 1,
		Files: []snapshot.FileInfo{{
			Path:  "essentialdata.impex",
			Hash:  "h1",
			Lines: 3,
			Outline: &parser.Outline{
				Headers: []parser.HeaderEntry{{Mode: "INSERT", Type: "Unit", Line: 1, Columns: 1, Rows: 1}},
			},
			Diagnostics: diag.List{{Code: diag.ColumnOverflow, Severity: diag.SeverityWarning, Line: 2, Column: 5}},
		}},
	}

	if err := original.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := snapshot.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	core := loaded.Sources["core"]
	if core == nil || len(core.Files) != 1 {
		t.Fatalf("Sources[core] = %+v", core)
	}
	fi := core.Files[0]
	if fi.Outline == nil || fi.Outline.Headers[0].Type != "Unit" {
		t.Fatalf("Outline = %+v", fi.Outline)
	}
	if len(fi.Diagnostics) != 1 || fi.Diagnostics[0].Severity != diag.SeverityWarning {
		t.Fatalf("Diagnostics = %v", fi.Diagnostics)
	}
	if got := loaded.Diagnostics(diag.SeverityWarning); got != 1 {
		t.Fatalf("Diagnostics(warning) = %d, want 1", got)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := snapshot.Load(dir)
	if err == nil || !strings.Contains(err.Error(), "snapshot not found") {
		t.Fatalf("Load() missing error = %v", err)
	}

	if writeErr := os.WriteFile(snapshot.Path(dir), []byte("{"), 0o600); writeErr != nil {
		t.Fatalf("WriteFile() error = %v", writeErr)
	}
	_, err = snapshot.Load(dir)
	if err == nil || !strings.Contains(err.Error(), "parsing snapshot file") {
		t.Fatalf("Load() corrupted error = %v", err)
	}
}

func TestSaveNilSnapshot(t *testing.T) {
	var s *snapshot.Snapshot
	if err := s.Save(t.TempDir()); err == nil {
		t.Fatal("Save() on nil snapshot: got nil error")
	}
}

func TestGenerateFromRun(t *testing.T) {
	root := t.TempDir()
	for name, content := range map[string]string{
		"a.impex": "# units\nINSERT Unit;code[unique=true]\n;pc\n",
		"b.impex": "INSERT Unit;code[unique=true]\n;\n",
	} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	cfg := config.Default(t.TempDir())
	cfg.Sources = map[string]config.Source{"core": {Path: root}}
	cfg.ApplyDefaults()

	ws, err := workspace.New(cfg)
	if err != nil {
		t.Fatalf("workspace.New() error = %v", err)
	}
	run, err := ws.CheckConfigured(context.Background(), workspace.Options{})
	if err != nil {
		t.Fatalf("CheckConfigured() error = %v", err)
	}

	lock, err := lockfile.Load(cfg.OutputDir())
	if err != nil {
		t.Fatalf("lockfile.Load() error = %v", err)
	}

	s := snapshot.Generate(nil, run, cfg, lock)
	core := s.Sources["core"]
	if core == nil || core.FileCount != 2 || core.Warnings != 1 || core.Type != "local" {
		t.Fatalf("Sources[core] = %+v", core)
	}
	if core.Files[0].Description != "units" {
		t.Fatalf("Description = %q, want units", core.Files[0].Description)
	}

	// A later run that parsed nothing keeps the files the lock still knows.
	carried := snapshot.Generate(s, &workspace.RunResult{}, cfg, lock)
	if got := carried.Sources["core"].FileCount; got != 2 {
		t.Fatalf("carried FileCount = %d, want 2", got)
	}
}

func TestGenerateRecordsParseErrors(t *testing.T) {
	run := &workspace.RunResult{Files: []*workspace.File{
		{Source: "core", Path: "bin.impex", Hash: "x", Err: errors.New("binary")},
	}}

	s := snapshot.Generate(nil, run, nil, nil)
	core := s.Sources["core"]
	if core.Errors != 1 || core.Files[0].Error != "binary" {
		t.Fatalf("Sources[core] = %+v", core)
	}
}
