// Package lockfile records what the last check saw of each source: content
// hashes of local files and the validators of remote ones.
package lockfile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
)

const (
	fileName       = ".impex.lock"
	currentVersion = 1
)

type LockFile struct {
	Version int                   `json:"version"`
	Sources map[string]*LockEntry `json:"sources"`
}

type LockEntry struct {
	Type      string    `json:"type"`
	ETag      string    `json:"etag,omitempty"`
	LastMod   string    `json:"last_modified,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	// Files maps a path relative to the source root to its content hash.
	Files map[string]string `json:"files,omitempty"`
}

// Unchanged reports whether the file had the same hash at the last check.
func (e *LockEntry) Unchanged(relPath, hash string) bool {
	if e == nil {
		return false
	}
	prev, ok := e.Files[relPath]
	return ok && prev == hash
}

func Load(outputDir string) (*LockFile, error) {
	lockPath := filepath.Join(outputDir, fileName)
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}

		return nil, oops.
			Code("LOCK_ERROR").
			With("path", lockPath).
			Wrapf(err, "reading lock file")
	}

	lock := &LockFile{}
	if unmarshalErr := json.Unmarshal(data, lock); unmarshalErr != nil {
		return nil, oops.
			Code("LOCK_ERROR").
			With("path", lockPath).
			Hint("Delete the lock file; the next 'impex check' rebuilds it").
			Wrapf(unmarshalErr, "parsing lock file")
	}

	if lock.Version == 0 {
		lock.Version = currentVersion
	}
	if lock.Sources == nil {
		lock.Sources = map[string]*LockEntry{}
	}

	return lock, nil
}

func New() *LockFile {
	return &LockFile{
		Version: currentVersion,
		Sources: map[string]*LockEntry{},
	}
}

// Save writes the lock file next to the other outputs, replacing the old one
// in a single rename.
func (l *LockFile) Save(outputDir string) error {
	if l == nil {
		return oops.
			Code("LOCK_ERROR").
			Errorf("cannot save nil lock file")
	}

	if l.Version == 0 {
		l.Version = currentVersion
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return oops.
			Code("LOCK_ERROR").
			Wrapf(err, "encoding lock file")
	}

	if err := WriteAtomic(filepath.Join(outputDir, fileName), append(data, '\n')); err != nil {
		return oops.Code("LOCK_ERROR").Wrap(err)
	}
	return nil
}

// WriteAtomic writes data to a temporary file in the target directory and
// renames it over path.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return oops.
			With("path", dir).
			Wrapf(err, "creating directory")
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return oops.
			With("path", dir).
			Wrapf(err, "creating temporary file")
	}

	tempPath := tempFile.Name()
	defer func() {
		_ = os.Remove(tempPath)
	}()

	if _, writeErr := tempFile.Write(data); writeErr != nil {
		_ = tempFile.Close()
		return oops.
			With("path", tempPath).
			Wrapf(writeErr, "writing temporary file")
	}

	if closeErr := tempFile.Close(); closeErr != nil {
		return oops.
			With("path", tempPath).
			Wrapf(closeErr, "closing temporary file")
	}

	if renameErr := os.Rename(tempPath, path); renameErr != nil {
		return oops.
			With("from", tempPath).
			With("to", path).
			Wrapf(renameErr, "replacing %s", filepath.Base(path))
	}

	return nil
}

func (l *LockFile) GetEntry(name string) *LockEntry {
	if l == nil {
		return nil
	}
	return l.Sources[name]
}

func (l *LockFile) SetEntry(name string, entry *LockEntry) {
	if l == nil {
		return
	}
	if l.Sources == nil {
		l.Sources = map[string]*LockEntry{}
	}
	l.Sources[name] = entry
}

// Prune drops entries for sources no longer configured.
func (l *LockFile) Prune(keep func(name string) bool) {
	if l == nil {
		return
	}
	for name := range l.Sources {
		if !keep(name) {
			delete(l.Sources, name)
		}
	}
}
