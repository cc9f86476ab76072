package main

import (
	"context"
	"os"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/impex/internal/config"
	"github.com/g5becks/impex/internal/lockfile"
	"github.com/g5becks/impex/internal/snapshot"
	"github.com/g5becks/impex/internal/source"
	"github.com/g5becks/impex/internal/ui"
	"github.com/g5becks/impex/internal/workspace"
)

func newCheckCommand() *cli.Command {
	flags := []cli.Flag{
		configFlag(),
		&cli.StringSliceFlag{
			Name:    "source",
			Aliases: []string{"s"},
			Usage:   "Check only the named source (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "changed",
			Usage: "Skip files whose content did not change since the last check",
		},
		&cli.IntFlag{
			Name:    "parallel",
			Aliases: []string{"p"},
			Usage:   "Maximum documents parsed in parallel (0 = use config)",
		},
		&cli.StringFlag{
			Name:  "min-severity",
			Usage: "Lowest severity to report: info, warning, error",
		},
		&cli.BoolFlag{
			Name:  "files",
			Usage: "Print a line for every checked file",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "Show a progress bar instead of per-source lines",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Fail on warnings as well as errors",
		},
		verboseFlag(),
	}

	return &cli.Command{
		Name:      "check",
		Usage:     "Parse ImpEx files and report diagnostics",
		ArgsUsage: "[file, directory or url...]",
		Flags:     append(flags, formatFlags()...),
		Action:    checkAction,
	}
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadCheckConfig(cmd)
	if err != nil {
		return err
	}

	format, err := resolveFormat(cmd, cfg)
	if err != nil {
		return err
	}
	minSeverity, err := resolveMinSeverity(cmd, cfg)
	if err != nil {
		return err
	}

	ws, err := workspace.New(cfg, workspace.WithLogger(newLogger(cmd)))
	if err != nil {
		return err
	}

	printer := ui.NewCheckPrinter(cmd.Bool("files"))
	opts := workspace.Options{
		SourceNames: cmd.StringSlice("source"),
		ChangedOnly: cmd.Bool("changed"),
		MaxParallel: cmd.Int("parallel"),
		OnEvent:     printer.HandleEvent,
	}

	var bar *ui.CheckProgress
	if cmd.Bool("progress") {
		bar = ui.NewCheckProgress(os.Stderr)
		opts.OnEvent = bar.HandleEvent
		bar.Start()
	}

	var result *workspace.RunResult
	if cmd.Args().Present() {
		result, err = checkArguments(ctx, ws, cfg, cmd.Args().Slice(), opts)
	} else {
		result, err = checkConfigured(ctx, ws, cfg, opts)
	}
	if bar != nil {
		bar.Stop()
	}
	if err != nil {
		return err
	}

	if renderErr := ui.RenderDiagnostics(os.Stdout, ui.RunDiagnostics(result, minSeverity), format); renderErr != nil {
		return renderErr
	}
	printer.PrintSummary(result)

	return checkOutcome(result, cmd.Bool("strict"))
}

// loadCheckConfig allows checking plain paths without a config file.
func loadCheckConfig(cmd *cli.Command) (*config.Config, error) {
	if cmd.Args().Present() {
		return loadConfigOrDefault(cmd)
	}
	return loadConfig(cmd)
}

// checkArguments checks ad-hoc paths and URLs. Nothing is recorded in the
// lock file or the snapshot.
func checkArguments(
	ctx context.Context,
	ws *workspace.Workspace,
	cfg *config.Config,
	args []string,
	opts workspace.Options,
) (*workspace.RunResult, error) {
	if len(opts.SourceNames) > 0 || opts.ChangedOnly {
		return nil, oops.
			Code("INVALID_ARGS").
			Hint("--source and --changed apply to configured sources only").
			Errorf("cannot combine file arguments with --source or --changed")
	}

	sources := make([]source.Source, 0, len(args))
	for _, arg := range args {
		sources = append(sources, source.FromArgument(arg, cfg.Excludes))
	}

	return ws.Run(ctx, sources, lockfile.New(), opts)
}

// checkConfigured checks the configured sources and refreshes the snapshot
// used by sources, search and report.
func checkConfigured(
	ctx context.Context,
	ws *workspace.Workspace,
	cfg *config.Config,
	opts workspace.Options,
) (*workspace.RunResult, error) {
	if len(cfg.Sources) == 0 {
		return nil, oops.
			Code("NO_SOURCES").
			Hint("Add a [sources.<name>] table to impex.toml or pass files to check").
			Errorf("no sources configured")
	}

	result, err := ws.CheckConfigured(ctx, opts)
	if err != nil {
		return nil, err
	}

	lock, err := lockfile.Load(cfg.OutputDir())
	if err != nil {
		return nil, err
	}

	// A missing or unreadable snapshot is rebuilt from this run.
	prev, _ := snapshot.Load(cfg.OutputDir())

	if saveErr := snapshot.Generate(prev, result, cfg, lock).Save(cfg.OutputDir()); saveErr != nil {
		return nil, saveErr
	}
	return result, nil
}

func checkOutcome(result *workspace.RunResult, strict bool) error {
	errs, warnings, _ := result.Diagnostics()
	if strict {
		errs += warnings
	}

	if result.Errors > 0 || errs > 0 {
		return oops.
			Code("CHECK_FAILED").
			With("errors", errs).
			With("failed", result.Errors).
			Errorf("check found %d problem(s) and %d unreadable input(s)", errs, result.Errors)
	}
	return nil
}
