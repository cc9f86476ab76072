package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/impex/internal/config"
	"github.com/g5becks/impex/internal/lockfile"
	"github.com/g5becks/impex/internal/search"
	"github.com/g5becks/impex/internal/snapshot"
	"github.com/g5becks/impex/internal/source"
	"github.com/g5becks/impex/internal/ui"
	"github.com/g5becks/impex/internal/workspace"
)

func newSearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search macros, types and keys of checked files, or cell values",
		ArgsUsage: "<query> [file, directory or url...]",
		Flags: append([]cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "source",
				Usage: "Search only within one source",
			},
			&cli.StringSliceFlag{
				Name:  "kind",
				Usage: "Symbol kinds to search: macro, type, key, script, file (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "values",
				Usage: "Search resolved cell values instead of symbols",
			},
			&cli.BoolFlag{
				Name:  "regex",
				Usage: "Treat query as regex (requires --values)",
			},
			&cli.StringFlag{
				Name:  "param",
				Usage: "Only match cells of this header parameter (requires --values)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Max results (0 = use config default)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Show all results (no limit)",
			},
			verboseFlag(),
		}, formatFlags()...),
		Action: searchAction,
	}
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return oops.
			Code("INVALID_ARGS").
			Hint("Usage: impex search <query> [file...]").
			Errorf("expected a search query")
	}

	query := strings.TrimSpace(cmd.Args().First())
	if query == "" {
		return oops.
			Code("INVALID_ARGS").
			Hint("Provide a non-empty search query").
			Errorf("search query cannot be empty")
	}

	values := cmd.Bool("values")
	if (cmd.Bool("regex") || cmd.IsSet("param")) && !values {
		return oops.
			Code("INVALID_ARGS").
			Hint("--regex and --param require --values flag").
			Errorf("--regex and --param can only be used with --values")
	}
	if cmd.Args().Len() > 1 && !values {
		return oops.
			Code("INVALID_ARGS").
			Hint("Symbol search reads the snapshot of 'impex check'; pass files only with --values").
			Errorf("file arguments require --values")
	}

	var cfg *config.Config
	var err error
	if values {
		cfg, err = loadConfigOrDefault(cmd)
	} else {
		cfg, err = loadConfig(cmd)
	}
	if err != nil {
		return err
	}

	format, err := resolveFormat(cmd, cfg)
	if err != nil {
		return err
	}
	limit := resolveLimit(cmd, cfg)

	if values {
		return runValueSearch(ctx, cmd, cfg, query, format, limit)
	}
	return runSymbolSearch(cmd, cfg, query, format, limit)
}

func runSymbolSearch(cmd *cli.Command, cfg *config.Config, query, format string, limit int) error {
	snap, err := snapshot.Load(cfg.OutputDir())
	if err != nil {
		return err
	}

	var kinds []search.SymbolKind
	for _, k := range cmd.StringSlice("kind") {
		kinds = append(kinds, search.SymbolKind(strings.ToLower(k)))
	}

	results, err := search.Symbols(snap, search.SymbolOptions{
		Query:  query,
		Source: cmd.String("source"),
		Kinds:  kinds,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	switch format {
	case ui.FormatJSON:
		return outputJSON(results, "encoding results")
	case ui.FormatCSV:
		return outputSymbolsCSV(results)
	default:
		return outputSymbolsTable(results)
	}
}

func runValueSearch(ctx context.Context, cmd *cli.Command, cfg *config.Config, query, format string, limit int) error {
	sources, err := valueSearchSources(cmd, cfg)
	if err != nil {
		return err
	}

	ws, err := workspace.New(cfg, workspace.WithLogger(newLogger(cmd)))
	if err != nil {
		return err
	}

	run, err := ws.Run(ctx, sources, lockfile.New(), workspace.Options{})
	if err != nil {
		return err
	}

	docs := make([]search.Source, 0, len(run.Files))
	for _, f := range run.Files {
		if f.Result != nil {
			docs = append(docs, search.Source{Path: f.Path, Document: f.Result.Document})
		}
	}

	results, err := search.Values(docs, search.ValueOptions{
		Query:     query,
		Parameter: cmd.String("param"),
		UseRegex:  cmd.Bool("regex"),
		Limit:     limit,
	})
	if err != nil {
		return err
	}

	switch format {
	case ui.FormatJSON:
		if results == nil {
			results = []search.ValueResult{}
		}
		return outputJSON(results, "encoding results")
	case ui.FormatCSV:
		return outputValuesCSV(results)
	default:
		return outputValuesTable(results)
	}
}

// valueSearchSources returns the argument paths, or the configured sources
// when none were given.
func valueSearchSources(cmd *cli.Command, cfg *config.Config) ([]source.Source, error) {
	if args := cmd.Args().Slice()[1:]; len(args) > 0 {
		sources := make([]source.Source, 0, len(args))
		for _, arg := range args {
			sources = append(sources, source.FromArgument(arg, cfg.Excludes))
		}
		return sources, nil
	}

	names := slices.Sorted(maps.Keys(cfg.Sources))
	if only := cmd.String("source"); only != "" {
		if _, ok := cfg.Sources[only]; !ok {
			return nil, oops.
				Code("SOURCE_NOT_FOUND").
				With("source", only).
				Hint("Run 'impex sources' to see configured sources").
				Errorf("source %q not found", only)
		}
		names = []string{only}
	}
	if len(names) == 0 {
		return nil, oops.
			Code("NO_SOURCES").
			Hint("Add a [sources.<name>] table to impex.toml or pass files to search").
			Errorf("no sources configured")
	}

	sources := make([]source.Source, 0, len(names))
	for _, name := range names {
		src, err := source.New(name, cfg.Sources[name])
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func outputJSON(v any, what string) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return oops.Code("JSON_ERROR").Wrapf(err, "%s", what)
	}
	return nil
}

func outputSymbolsCSV(results []search.SymbolResult) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"source", "path", "line", "kind", "name", "detail", "score"}); err != nil {
		return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV header")
	}

	for _, r := range results {
		if err := w.Write([]string{
			r.Source,
			r.Path,
			strconv.Itoa(r.Line),
			string(r.Kind),
			r.Name,
			r.Detail,
			strconv.Itoa(r.Score),
		}); err != nil {
			return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV row")
		}
	}

	return nil
}

func outputSymbolsTable(results []search.SymbolResult) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"SOURCE", "PATH", "LINE", "KIND", "NAME", "DETAIL"})

	for _, r := range results {
		t.AppendRow(table.Row{
			r.Source,
			r.Path,
			r.Line,
			r.Kind,
			r.Name,
			truncate(r.Detail, detailWidth),
		})
	}

	t.Render()
	return nil
}

func outputValuesCSV(results []search.ValueResult) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"path", "line", "column", "type", "parameter", "value"}); err != nil {
		return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV header")
	}

	for _, r := range results {
		if err := w.Write([]string{
			r.Path,
			strconv.Itoa(r.Line),
			strconv.Itoa(r.Column),
			r.Type,
			r.Parameter,
			r.Value,
		}); err != nil {
			return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV row")
		}
	}

	return nil
}

func outputValuesTable(results []search.ValueResult) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"PATH", "LINE", "TYPE", "PARAMETER", "VALUE"})

	for _, r := range results {
		t.AppendRow(table.Row{
			r.Path,
			r.Line,
			r.Type,
			r.Parameter,
			truncate(r.Value, detailWidth),
		})
	}

	t.Render()
	return nil
}

const detailWidth = 60

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	const ellipsis = "..."
	if maxLen <= len(ellipsis) {
		return ellipsis
	}
	return s[:maxLen-len(ellipsis)] + ellipsis
}
