package lockfile_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/g5becks/impex/internal/lockfile"
)

func TestLoadReturnsEmptyLockWhenFileMissing(t *testing.T) {
	t.Parallel()

	lock, err := lockfile.Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if lock.Version != 1 || len(lock.Sources) != 0 {
		t.Fatalf("Load() = %+v, want empty version 1 lock", lock)
	}
}

func TestSaveAndLoadKeepsHashes(t *testing.T) {
	t.Parallel()

	outputDir := filepath.Join(t.TempDir(), ".impex")
	now := time.Now().UTC().Truncate(time.Second)

	lock := lockfile.New()
	lock.SetEntry("core", &lockfile.LockEntry{
		Type:      "local",
		CheckedAt: now,
		Files: map[string]string{
			"essentialdata.impex":      "h1",
			"sampledata/product.impex": "h2",
		},
	})
	lock.SetEntry("remote", &lockfile.LockEntry{
		Type:      "url",
		ETag:      `"etag"`,
		LastMod:   "Tue, 15 Jan 2024 10:30:00 GMT",
		CheckedAt: now,
	})

	if err := lock.Save(outputDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := lockfile.Load(outputDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	core := loaded.GetEntry("core")
	if core == nil || !core.CheckedAt.Equal(now) {
		t.Fatalf("core entry = %+v", core)
	}
	if !core.Unchanged("sampledata/product.impex", "h2") {
		t.Fatalf("Unchanged(product) = false, want true")
	}
	if core.Unchanged("sampledata/product.impex", "other") {
		t.Fatalf("Unchanged(other hash) = true, want false")
	}
	if core.Unchanged("new.impex", "h3") {
		t.Fatalf("Unchanged(new file) = true, want false")
	}

	if remote := loaded.GetEntry("remote"); remote == nil || remote.ETag != `"etag"` {
		t.Fatalf("remote entry = %+v", remote)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	outputDir := t.TempDir()
	if err := lockfile.New().Save(outputDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temporary file %q left behind", entry.Name())
		}
	}
	if len(entries) != 1 || entries[0].Name() != ".impex.lock" {
		t.Fatalf("entries = %v, want only .impex.lock", entries)
	}
}

func TestLoadInvalidJSONReturnsError(t *testing.T) {
	t.Parallel()

	outputDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(outputDir, ".impex.lock"), []byte("{bad"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := lockfile.Load(outputDir)
	if err == nil || !strings.Contains(err.Error(), "parsing lock file") {
		t.Fatalf("Load() error = %v, want parse error", err)
	}
}

func TestPrune(t *testing.T) {
	t.Parallel()

	lock := lockfile.New()
	lock.SetEntry("keep", &lockfile.LockEntry{Type: "local"})
	lock.SetEntry("drop", &lockfile.LockEntry{Type: "url"})

	lock.Prune(func(name string) bool { return name == "keep" })

	if lock.GetEntry("drop") != nil || lock.GetEntry("keep") == nil {
		t.Fatalf("Sources after Prune = %v", lock.Sources)
	}
}

func TestNilLock(t *testing.T) {
	t.Parallel()

	var lock *lockfile.LockFile
	if err := lock.Save(t.TempDir()); err == nil {
		t.Fatalf("Save() error = nil, want non-nil")
	}
	if lock.GetEntry("x") != nil {
		t.Fatalf("GetEntry() on nil lock = non-nil")
	}

	var entry *lockfile.LockEntry
	if entry.Unchanged("a", "b") {
		t.Fatalf("Unchanged() on nil entry = true")
	}
}
