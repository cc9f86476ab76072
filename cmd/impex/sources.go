package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/g5becks/impex/internal/snapshot"
	"github.com/g5becks/impex/internal/ui"
)

func newSourcesCommand() *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "List configured sources and their last check result",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output as JSON",
			},
			verboseFlag(),
		},
		Action: sourcesAction,
	}
}

func sourcesAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Sources that were never checked are listed as pending.
	snap, err := snapshot.Load(cfg.OutputDir())
	if err != nil {
		newLogger(cmd).Debug("no snapshot", "error", err)
		snap = nil
	}

	return ui.RenderSourceList(os.Stdout, ui.SourceStatuses(cfg, snap), ui.ListOptions{
		JSON:    cmd.Bool("json"),
		Verbose: cmd.Bool("verbose"),
	})
}
