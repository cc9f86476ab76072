package snapshot

import (
	"slices"
	"strings"
	"time"

	"github.com/g5becks/impex/internal/config"
	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/lockfile"
	"github.com/g5becks/impex/internal/workspace"
)

// Generate builds a snapshot from a check run. Files of prev that were
// skipped as unchanged are carried over as long as the lock still lists
// their hash.
func Generate(prev *Snapshot, run *workspace.RunResult, cfg *config.Config, lock *lockfile.LockFile) *Snapshot {
	s := New()

	for _, f := range run.Files {
		src := s.source(f.Source, cfg, lock)
		src.Files = append(src.Files, fileInfo(f))
	}

	if prev != nil {
		for name, old := range prev.Sources {
			entry := lock.GetEntry(name)
			if entry == nil {
				continue
			}
			hashes := make(map[string]struct{}, len(entry.Files))
			for _, h := range entry.Files {
				hashes[h] = struct{}{}
			}

			src := s.source(name, cfg, lock)
			for _, fi := range old.Files {
				if _, ok := hashes[fi.Hash]; !ok || src.has(fi.Path) {
					continue
				}
				src.Files = append(src.Files, fi)
			}
		}
	}

	for _, src := range s.Sources {
		slices.SortFunc(src.Files, func(a, b FileInfo) int { return strings.Compare(a.Path, b.Path) })
		src.FileCount = len(src.Files)
		for _, fi := range src.Files {
			src.Errors += len(fi.Diagnostics.Errors())
			src.Warnings += len(fi.Diagnostics.Warnings())
			if fi.Error != "" {
				src.Errors++
			}
		}
	}

	return s
}

func (s *Snapshot) source(name string, cfg *config.Config, lock *lockfile.LockFile) *Source {
	if src, ok := s.Sources[name]; ok {
		return src
	}

	src := &Source{Name: name, CheckedAt: time.Now().UTC()}
	if cfg != nil {
		if sc, ok := cfg.Sources[name]; ok {
			src.Type = sc.Type
			src.Location = sc.Path
			if sc.URL != "" {
				src.Location = sc.URL
			}
		}
	}
	if entry := lock.GetEntry(name); entry != nil {
		src.CheckedAt = entry.CheckedAt
		if src.Type == "" {
			src.Type = entry.Type
		}
	}
	s.Sources[name] = src
	return src
}

func (src *Source) has(path string) bool {
	return slices.ContainsFunc(src.Files, func(fi FileInfo) bool { return fi.Path == path })
}

func fileInfo(f *workspace.File) FileInfo {
	fi := FileInfo{Path: f.Path, Hash: f.Hash}
	if f.Err != nil {
		fi.Error = f.Err.Error()
		return fi
	}

	fi.Lines = f.Result.Lines
	fi.Description = f.Result.Description
	fi.Outline = f.Result.Outline
	fi.Diagnostics = f.Diagnostics().Sorted()
	return fi
}

// SourceNames returns the source names in order.
func (s *Snapshot) SourceNames() []string {
	names := make([]string, 0, len(s.Sources))
	for name := range s.Sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Diagnostics counts the diagnostics of every file at or above minSeverity.
func (s *Snapshot) Diagnostics(minSeverity diag.Severity) int {
	n := 0
	for _, ref := range s.Files() {
		n += len(ref.File.Diagnostics.AtLeast(minSeverity))
	}
	return n
}
