// Package workspace checks many ImpEx documents at once: it loads every
// configured source, parses the documents in parallel and keeps recently
// parsed documents in a cache keyed by content hash.
package workspace

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/g5becks/impex/internal/config"
	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/lockfile"
	"github.com/g5becks/impex/internal/parser"
	"github.com/g5becks/impex/internal/source"
)

type EventKind int

const (
	EventSourceStart EventKind = iota
	EventSourceDone
	EventFileDone
)

// Event is emitted while a run progresses. Handlers may be called from
// several goroutines at once.
type Event struct {
	Kind   EventKind
	Source string
	Result *SourceResult
	File   *File
	Err    error
}

type SourceResult struct {
	Name      string
	Files     int
	Unchanged int
	Skipped   bool
}

// File is one parsed document.
type File struct {
	Source string
	Path   string
	Hash   string
	Result *parser.ParseResult
	Cached bool
	Err    error
}

// Diagnostics returns the document's diagnostics, or nil when the file could
// not be parsed.
func (f *File) Diagnostics() diag.List {
	if f.Result == nil || f.Result.Document == nil {
		return nil
	}
	return f.Result.Document.Diagnostics
}

type Options struct {
	SourceNames []string
	// ChangedOnly skips documents whose hash matches the lock file.
	ChangedOnly bool
	MaxParallel int
	OnEvent     func(Event)
}

type RunResult struct {
	Files     []*File
	Sources   int
	Skipped   int
	Unchanged int
	Errors    int
}

// Diagnostics counts the diagnostics of all files by severity.
func (r *RunResult) Diagnostics() (errs, warnings, infos int) {
	for _, f := range r.Files {
		for _, d := range f.Diagnostics() {
			switch d.Severity {
			case diag.SeverityError:
				errs++
			case diag.SeverityWarning:
				warnings++
			default:
				infos++
			}
		}
	}
	return errs, warnings, infos
}

type Workspace struct {
	cfg    *config.Config
	parser *parser.ImpExParser
	cache  *lru.Cache[string, *parser.ParseResult]
	logger *slog.Logger
}

type Option func(*Workspace)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func New(cfg *config.Config, opts ...Option) (*Workspace, error) {
	if cfg == nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			Errorf("config is required")
	}

	w := &Workspace{
		cfg:    cfg,
		parser: parser.NewImpExParser(cfg.DocumentOptions()),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, *parser.ParseResult](cfg.CacheSize)
		if err != nil {
			return nil, oops.
				Code("CONFIG_INVALID").
				With("cache_size", cfg.CacheSize).
				Wrapf(err, "creating document cache")
		}
		w.cache = cache
	}

	return w, nil
}

// Parse parses one document, reusing a cached result for identical content.
func (w *Workspace) Parse(path string, content []byte) (*parser.ParseResult, bool, error) {
	hash := source.Hash(content)
	if w.cache != nil {
		if result, ok := w.cache.Get(hash); ok {
			w.logger.Debug("document cache hit", "path", path, "hash", hash[:12])
			return result, true, nil
		}
	}

	result, err := w.parser.Parse(path, content)
	if err != nil {
		return nil, false, err
	}
	if w.cache != nil {
		w.cache.Add(hash, result)
	}

	w.logger.Debug("parsed document",
		"path", path,
		"headers", len(result.Document.Headers),
		"lines", len(result.Document.Lines),
		"diagnostics", len(result.Document.Diagnostics),
	)
	return result, false, nil
}

// CheckConfigured runs the sources named in the config and records what was
// seen in the lock file.
func (w *Workspace) CheckConfigured(ctx context.Context, opts Options) (*RunResult, error) {
	names, err := resolveSourceNames(w.cfg.Sources, opts.SourceNames)
	if err != nil {
		return nil, err
	}

	sources := make([]source.Source, 0, len(names))
	for _, name := range names {
		src, srcErr := source.New(name, w.cfg.Sources[name])
		if srcErr != nil {
			return nil, srcErr
		}
		sources = append(sources, src)
	}

	lock, err := lockfile.Load(w.cfg.OutputDir())
	if err != nil {
		return nil, err
	}

	result, err := w.Run(ctx, sources, lock, opts)
	if err != nil {
		return nil, err
	}

	if len(opts.SourceNames) == 0 {
		lock.Prune(func(name string) bool {
			_, ok := w.cfg.Sources[name]
			return ok
		})
	}
	if saveErr := lock.Save(w.cfg.OutputDir()); saveErr != nil {
		return nil, saveErr
	}

	return result, nil
}

type loaded struct {
	result *source.LoadResult
	err    error
}

// Run loads and parses the given sources. Lock entries are updated in lock
// when it is non-nil.
func (w *Workspace) Run(ctx context.Context, sources []source.Source, lock *lockfile.LockFile, opts Options) (*RunResult, error) {
	maxParallel := opts.MaxParallel
	if maxParallel <= 0 {
		maxParallel = w.cfg.Parallel
	}
	if maxParallel <= 0 {
		maxParallel = config.DefaultParallel
	}
	emit := opts.OnEvent
	if emit == nil {
		emit = func(Event) {}
	}

	loads := make([]loaded, len(sources))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallel)

	for i, src := range sources {
		prev := lock.GetEntry(src.Name())
		group.Go(func() error {
			emit(Event{Kind: EventSourceStart, Source: src.Name()})
			result, err := src.Load(groupCtx, prev, source.LoadOptions{ChangedOnly: opts.ChangedOnly})
			loads[i] = loaded{result: result, err: err}
			if err != nil {
				w.logger.Warn("source failed", "source", src.Name(), "error", err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, oops.Wrapf(err, "waiting for source loaders")
	}

	run := &RunResult{Sources: len(sources)}
	var inputs []source.Input
	summaries := make([]*SourceResult, len(sources))

	for i, src := range sources {
		l := loads[i]
		if l.err != nil {
			run.Errors++
			emit(Event{Kind: EventSourceDone, Source: src.Name(), Err: l.err})
			continue
		}

		summary := &SourceResult{Name: src.Name(), Skipped: l.result.Skipped}
		summaries[i] = summary
		if l.result.Skipped {
			run.Skipped++
		}
		if l.result.LockEntry != nil {
			lock.SetEntry(src.Name(), l.result.LockEntry)
		}

		for _, in := range l.result.Inputs {
			if opts.ChangedOnly && in.Unchanged {
				summary.Unchanged++
				run.Unchanged++
				continue
			}
			summary.Files++
			inputs = append(inputs, in)
		}
	}

	run.Files = w.parseAll(ctx, inputs, maxParallel, emit)
	for _, f := range run.Files {
		if f.Err != nil {
			run.Errors++
		}
	}

	for i, src := range sources {
		if summaries[i] != nil {
			emit(Event{Kind: EventSourceDone, Source: src.Name(), Result: summaries[i]})
		}
	}

	return run, nil
}

func (w *Workspace) parseAll(ctx context.Context, inputs []source.Input, maxParallel int, emit func(Event)) []*File {
	files := make([]*File, len(inputs))
	var group errgroup.Group
	group.SetLimit(maxParallel)

	for i, in := range inputs {
		group.Go(func() error {
			f := &File{Source: in.Source, Path: in.Path, Hash: in.Hash}
			if err := ctx.Err(); err != nil {
				f.Err = err
			} else {
				f.Result, f.Cached, f.Err = w.Parse(in.Path, in.Content)
			}
			files[i] = f

			emit(Event{Kind: EventFileDone, Source: in.Source, File: f, Err: f.Err})
			return nil
		})
	}
	_ = group.Wait()

	slices.SortStableFunc(files, func(a, b *File) int {
		return strings.Compare(a.Path, b.Path)
	})
	return files
}

func resolveSourceNames(sourceConfigs map[string]config.Source, requestedNames []string) ([]string, error) {
	if len(requestedNames) == 0 {
		names := make([]string, 0, len(sourceConfigs))
		for name := range sourceConfigs {
			names = append(names, name)
		}
		slices.Sort(names)
		return names, nil
	}

	names := make([]string, 0, len(requestedNames))
	seen := make(map[string]struct{}, len(requestedNames))

	for _, name := range requestedNames {
		if _, ok := sourceConfigs[name]; !ok {
			return nil, oops.
				Code("SOURCE_NOT_FOUND").
				With("source", name).
				Hint("Run 'impex sources' to see configured sources").
				Errorf("source %q not found in config", name)
		}

		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	return names, nil
}
