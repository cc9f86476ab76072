package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/impex/internal/config"
	"github.com/g5becks/impex/internal/diag"
	"github.com/g5becks/impex/internal/parser"
	"github.com/g5becks/impex/internal/ui"
	"github.com/g5becks/impex/internal/workspace"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output as JSON",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format: table, json, csv",
		},
	}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Log debug output to stderr",
	}
}

// loadConfig loads the config named by --config or found in a parent
// directory.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(cmd.String("config"))
}

// loadConfigOrDefault is loadConfig for commands that also work on plain
// files: without a config file the defaults for the working directory apply.
func loadConfigOrDefault(cmd *cli.Command) (*config.Config, error) {
	if cmd.String("config") != "" {
		return loadConfig(cmd)
	}

	configPath, err := config.FindConfigFile()
	if err == nil {
		return config.Load(configPath)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, oops.Wrapf(err, "resolving working directory")
	}
	return config.Default(wd), nil
}

func newLogger(cmd *cli.Command) *slog.Logger {
	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func resolveFormat(cmd *cli.Command, cfg *config.Config) (string, error) {
	format := cfg.Display.Format
	if cmd.Bool("json") {
		format = ui.FormatJSON
	} else if cmd.IsSet("format") {
		format = strings.ToLower(cmd.String("format"))
	}

	switch format {
	case ui.FormatTable, ui.FormatJSON, ui.FormatCSV:
		return format, nil
	default:
		return "", oops.
			Code("INVALID_ARGS").
			With("format", format).
			Hint("Supported formats: table, json, csv").
			Errorf("unknown output format %q", format)
	}
}

func resolveLimit(cmd *cli.Command, cfg *config.Config) int {
	if cmd.Bool("all") {
		return 0
	}
	if cmd.IsSet("limit") {
		return cmd.Int("limit")
	}
	return cfg.Display.DefaultLimit
}

func resolveMinSeverity(cmd *cli.Command, cfg *config.Config) (diag.Severity, error) {
	value := cfg.Display.MinSeverity
	if cmd.IsSet("min-severity") {
		value = cmd.String("min-severity")
	}

	var severity diag.Severity
	if err := severity.UnmarshalText([]byte(value)); err != nil {
		return 0, oops.
			Code("INVALID_ARGS").
			With("min-severity", value).
			Hint("Supported severities: info, warning, error").
			Wrap(err)
	}
	return severity, nil
}

// requireOneFile checks that the command got exactly one file argument.
func requireOneFile(cmd *cli.Command, usage string) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", oops.
			Code("INVALID_ARGS").
			Hint("Usage: " + usage).
			Errorf("expected 1 argument, got %d", cmd.Args().Len())
	}
	return cmd.Args().First(), nil
}

// parseFile reads and parses a single ImpEx file with the config's parse
// settings.
func parseFile(cmd *cli.Command, cfg *config.Config, path string) (*parser.ParseResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, oops.
				Code("FILE_NOT_FOUND").
				With("file", path).
				Errorf("file %q does not exist", path)
		}
		return nil, oops.
			Code("FILE_READ_ERROR").
			With("file", path).
			Wrapf(err, "reading %q", path)
	}

	ws, err := workspace.New(cfg, workspace.WithLogger(newLogger(cmd)))
	if err != nil {
		return nil, err
	}

	result, _, err := ws.Parse(path, content)
	return result, err
}
