package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/g5becks/impex/internal/macro"
	"github.com/g5becks/impex/internal/parser"
	"github.com/g5becks/impex/internal/ui"
)

func newMacrosCommand() *cli.Command {
	return &cli.Command{
		Name:      "macros",
		Usage:     "List macro definitions with their resolved values",
		ArgsUsage: "<file>",
		Flags: append([]cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "problems",
				Usage: "Show only macros that do not resolve cleanly",
			},
		}, formatFlags()...),
		Action: macrosAction,
	}
}

func macrosAction(_ context.Context, cmd *cli.Command) error {
	path, err := requireOneFile(cmd, "impex macros <file>")
	if err != nil {
		return err
	}

	cfg, err := loadConfigOrDefault(cmd)
	if err != nil {
		return err
	}

	format, err := resolveFormat(cmd, cfg)
	if err != nil {
		return err
	}

	result, err := parseFile(cmd, cfg, path)
	if err != nil {
		return err
	}

	macros := result.Outline.Macros
	if cmd.Bool("problems") {
		var problems []parser.MacroEntry
		for _, m := range macros {
			if m.Status != macro.StatusResolved.String() && m.Status != macro.StatusEmpty.String() {
				problems = append(problems, m)
			}
		}
		macros = problems
	}

	return ui.RenderMacros(os.Stdout, macros, format)
}
