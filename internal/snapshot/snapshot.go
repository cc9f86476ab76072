// Package snapshot stores the outcome of the last check as JSON so that
// search, listing and reports can run without parsing every file again.
package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"

	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/lockfile"
	"github.com/g5becks/impex/internal/parser"
)

const (
	CurrentVersion = "1.0.0"
	FileName       = "snapshot.json"
)

type Snapshot struct {
	Version   string             `json:"version"`
	Generated time.Time          `json:"generated"`
	Sources   map[string]*Source `json:"sources"`
}

type Source struct {
	Name      string     `json:"name"`
	Type      string     `json:"type,omitempty"`
	Location  string     `json:"location,omitempty"`
	CheckedAt time.Time  `json:"checked_at"`
	FileCount int        `json:"file_count"`
	Errors    int        `json:"errors"`
	Warnings  int        `json:"warnings"`
	Files     []FileInfo `json:"files"`
}

type FileInfo struct {
	Path        string          `json:"path"`
	Hash        string          `json:"hash"`
	Lines       int             `json:"lines"`
	Description string          `json:"description,omitempty"`
	Outline     *parser.Outline `json:"outline,omitempty"`
	Diagnostics diag.List       `json:"diagnostics,omitempty"`
	// Error is set when the file could not be parsed at all.
	Error string `json:"error,omitempty"`
}

func New() *Snapshot {
	return &Snapshot{
		Version:   CurrentVersion,
		Generated: time.Now(),
		Sources:   make(map[string]*Source),
	}
}

func Path(outputDir string) string {
	return filepath.Join(outputDir, FileName)
}

func Load(outputDir string) (*Snapshot, error) {
	snapshotPath := Path(outputDir)
	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, oops.
				Code("SNAPSHOT_NOT_FOUND").
				With("path", snapshotPath).
				Hint("Run 'impex check' to create the snapshot").
				Errorf("snapshot not found at %q", snapshotPath)
		}

		return nil, oops.
			Code("SNAPSHOT_READ_ERROR").
			With("path", snapshotPath).
			Wrapf(err, "reading snapshot file")
	}

	s := &Snapshot{}
	if unmarshalErr := json.Unmarshal(data, s); unmarshalErr != nil {
		return nil, oops.
			Code("SNAPSHOT_CORRUPTED").
			With("path", snapshotPath).
			Hint("Delete the snapshot and run 'impex check'").
			Wrapf(unmarshalErr, "parsing snapshot file")
	}

	if s.Sources == nil {
		s.Sources = make(map[string]*Source)
	}
	return s, nil
}

func (s *Snapshot) Save(outputDir string) error {
	if s == nil {
		return oops.
			Code("SNAPSHOT_WRITE_ERROR").
			Errorf("cannot save nil snapshot")
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return oops.
			Code("SNAPSHOT_WRITE_ERROR").
			Wrapf(err, "encoding snapshot")
	}

	if err := lockfile.WriteAtomic(Path(outputDir), append(data, '\n')); err != nil {
		return oops.Code("SNAPSHOT_WRITE_ERROR").Wrap(err)
	}
	return nil
}

// Files returns every file of every source, sources in name order.
func (s *Snapshot) Files() []FileRef {
	var out []FileRef
	for _, name := range s.SourceNames() {
		for i := range s.Sources[name].Files {
			out = append(out, FileRef{Source: name, File: &s.Sources[name].Files[i]})
		}
	}
	return out
}

type FileRef struct {
	Source string
	File   *FileInfo
}
