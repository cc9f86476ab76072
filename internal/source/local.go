package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/oops"

	"github.com/g5becks/impex/internal/config"
	"github.com/g5becks/impex/internal/lockfile"
)

type localSource struct {
	name   string
	source config.Source
}

func NewLocal(name string, cfg config.Source) Source {
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = config.DefaultPatterns()
	}
	return &localSource{name: name, source: cfg}
}

func (s *localSource) Name() string {
	return s.name
}

func (s *localSource) Load(ctx context.Context, prevLock *lockfile.LockEntry, _ LoadOptions) (*LoadResult, error) {
	root := s.source.Path
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, oops.
				Code("SOURCE_NOT_FOUND").
				With("source", s.name).
				With("path", root).
				Hint("Check the path of the source in impex.toml").
				Errorf("path %q does not exist", root)
		}
		return nil, oops.With("path", root).Wrapf(err, "reading source %q", s.name)
	}

	var files []string
	if info.IsDir() {
		files, err = s.match(root)
		if err != nil {
			return nil, err
		}
	} else {
		root, files = filepath.Dir(root), []string{filepath.Base(root)}
	}

	lock := &lockfile.LockEntry{
		Type:      config.SourceLocal,
		CheckedAt: time.Now().UTC(),
		Files:     make(map[string]string, len(files)),
	}
	result := &LoadResult{LockEntry: lock}

	for _, rel := range files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, oops.Wrapf(ctxErr, "loading source %q", s.name)
		}

		fullPath := filepath.Join(root, filepath.FromSlash(rel))
		content, readErr := os.ReadFile(fullPath)
		if readErr != nil {
			return nil, oops.
				Code("READ_FAILED").
				With("source", s.name).
				With("path", fullPath).
				Wrapf(readErr, "reading %q", fullPath)
		}

		hash := Hash(content)
		lock.Files[rel] = hash
		result.Inputs = append(result.Inputs, Input{
			Source:    s.name,
			Path:      fullPath,
			Content:   content,
			Hash:      hash,
			Unchanged: prevLock.Unchanged(rel, hash),
		})
	}

	return result, nil
}

// match returns the slash-separated paths under root selected by the
// patterns and not excluded, sorted.
func (s *localSource) match(root string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]struct{})

	for _, pattern := range s.source.Patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, oops.
				Code("CONFIG_INVALID").
				With("source", s.name).
				With("pattern", pattern).
				Wrapf(err, "invalid glob pattern")
		}

		for _, rel := range matches {
			excluded, matchErr := matchesAny(s.source.Exclude, rel)
			if matchErr != nil {
				return nil, matchErr
			}
			if !excluded {
				seen[rel] = struct{}{}
			}
		}
	}

	files := make([]string, 0, len(seen))
	for rel := range seen {
		files = append(files, rel)
	}
	slices.Sort(files)
	return files, nil
}

func matchesAny(patterns []string, candidate string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(strings.TrimPrefix(pattern, "./"), candidate)
		if err != nil {
			return false, oops.
				Code("CONFIG_INVALID").
				With("pattern", pattern).
				With("path", candidate).
				Wrapf(err, "invalid glob pattern")
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
