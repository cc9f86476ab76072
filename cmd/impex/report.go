package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/g5becks/impex/internal/lockfile"
	"github.com/g5becks/impex/internal/report"
	"github.com/g5becks/impex/internal/snapshot"
)

func newReportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Write a markdown or HTML report of a file or of the last check",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "html",
				Usage: "Render HTML instead of markdown",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write the report to this file instead of stdout",
			},
			&cli.IntFlag{
				Name:  "max-rows",
				Usage: "Value lines shown per header (0 = 20, -1 = none)",
			},
			&cli.StringFlag{
				Name:  "min-severity",
				Usage: "Lowest severity to include: info, warning, error",
			},
			verboseFlag(),
		},
		Action: reportAction,
	}
}

func reportAction(_ context.Context, cmd *cli.Command) error {
	file := cmd.Args().First()

	// A snapshot report needs the configured output directory.
	load := loadConfig
	if file != "" {
		load = loadConfigOrDefault
	}
	cfg, err := load(cmd)
	if err != nil {
		return err
	}

	minSeverity, err := resolveMinSeverity(cmd, cfg)
	if err != nil {
		return err
	}
	opts := report.Options{MaxRows: cmd.Int("max-rows"), MinSeverity: minSeverity}

	var md []byte
	title := "ImpEx check report"
	if file != "" {
		result, parseErr := parseFile(cmd, cfg, file)
		if parseErr != nil {
			return parseErr
		}
		md = report.Document(file, result, opts)
		title = filepath.Base(file)
	} else {
		snap, loadErr := snapshot.Load(cfg.OutputDir())
		if loadErr != nil {
			return loadErr
		}
		md = report.Snapshot(snap, opts)
	}

	out := md
	if cmd.Bool("html") || strings.HasSuffix(cmd.String("out"), ".html") {
		out = report.ToHTML(md, title)
	}

	if path := cmd.String("out"); path != "" {
		if writeErr := lockfile.WriteAtomic(path, out); writeErr != nil {
			return writeErr
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
		return nil
	}

	_, err = os.Stdout.Write(out)
	return err
}
