// Package source loads ImpEx inputs: files under a local directory selected
// by glob patterns, or a single document fetched over HTTP.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"

	"github.com/g5becks/impex/internal/config"
	"github.com/g5becks/impex/internal/lockfile"
)

// Input is one document read from a source.
type Input struct {
	Source  string
	Path    string
	Content []byte
	Hash    string
	// Unchanged is set when the hash matches the previous lock entry.
	Unchanged bool
}

// LoadResult reports what a source produced.
type LoadResult struct {
	Inputs []Input
	// Skipped is set when a remote source answered 304 Not Modified.
	Skipped   bool
	LockEntry *lockfile.LockEntry
}

// LoadOptions controls behavior for source loads.
type LoadOptions struct {
	// ChangedOnly sends conditional requests so unchanged remote documents
	// are not downloaded again.
	ChangedOnly bool
}

// Source defines where ImpEx documents come from.
type Source interface {
	Name() string
	Load(ctx context.Context, prevLock *lockfile.LockEntry, opts LoadOptions) (*LoadResult, error)
}

// New creates a Source from config.
func New(name string, cfg config.Source) (Source, error) {
	switch cfg.Type {
	case config.SourceLocal:
		return NewLocal(name, cfg), nil
	case config.SourceURL:
		return NewURL(name, cfg), nil
	default:
		return nil, oops.
			Code("UNKNOWN_SOURCE_TYPE").
			With("type", cfg.Type).
			Hint("Supported types: local, url").
			Errorf("unknown source type %q for source %q", cfg.Type, name)
	}
}

// FromArgument turns a command line argument into a source: http(s) URLs
// are fetched, anything else is a local file or directory.
func FromArgument(arg string, excludes []string) Source {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return NewURL(arg, config.Source{Type: config.SourceURL, URL: arg})
	}
	return NewLocal(arg, config.Source{
		Type:     config.SourceLocal,
		Path:     arg,
		Patterns: config.DefaultPatterns(),
		Exclude:  excludes,
	})
}

// Hash returns the hex SHA-256 of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
