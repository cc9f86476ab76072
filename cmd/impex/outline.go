package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/impex/internal/macro"
	"github.com/g5becks/impex/internal/parser"
)

func newOutlineCommand() *cli.Command {
	return &cli.Command{
		Name:      "outline",
		Usage:     "Show file structure (headers, macros, scripts)",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output as JSON",
			},
		},
		Action: outlineAction,
	}
}

func outlineAction(_ context.Context, cmd *cli.Command) error {
	path, err := requireOneFile(cmd, "impex outline <file>")
	if err != nil {
		return err
	}

	cfg, err := loadConfigOrDefault(cmd)
	if err != nil {
		return err
	}

	result, err := parseFile(cmd, cfg, path)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return outputOutlineJSON(result.Outline)
	}

	outputOutlineText(path, result)
	return nil
}

func outputOutlineJSON(outline *parser.Outline) error {
	data, err := json.MarshalIndent(outline, "", "  ")
	if err != nil {
		return oops.
			Code("JSON_ERROR").
			Wrapf(err, "encoding outline")
	}

	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

func outputOutlineText(path string, result *parser.ParseResult) {
	fmt.Fprintf(os.Stdout, "%s (%d lines)\n", path, result.Lines)
	if result.Description != "" {
		fmt.Fprintln(os.Stdout, result.Description)
	}
	fmt.Fprintln(os.Stdout)

	outline := result.Outline
	if len(outline.Headers) == 0 && len(outline.Macros) == 0 && len(outline.Scripts) == 0 && outline.UserRights == 0 {
		fmt.Fprintln(os.Stdout, "No headers, macros or scripts found.")
		return
	}

	if len(outline.Macros) > 0 {
		fmt.Fprintln(os.Stdout, "MACROS:")
		for _, m := range outline.Macros {
			fmt.Fprintf(os.Stdout, "%4d  %s = %s", m.Line, m.Name, m.Value)
			if m.Status != macro.StatusResolved.String() {
				fmt.Fprintf(os.Stdout, "  (%s)", m.Status)
			}
			fmt.Fprintln(os.Stdout)
		}
		fmt.Fprintln(os.Stdout)
	}

	if len(outline.Headers) > 0 {
		fmt.Fprintln(os.Stdout, "HEADERS:")
		for _, h := range outline.Headers {
			fmt.Fprintf(os.Stdout, "%4d  %s %s  %d columns, %d lines", h.Line, h.Mode, h.Type, h.Columns, h.Rows)
			if len(h.Keys) > 0 {
				fmt.Fprintf(os.Stdout, "  keys: %s", strings.Join(h.Keys, ", "))
			}
			fmt.Fprintln(os.Stdout)
		}
		fmt.Fprintln(os.Stdout)
	}

	if len(outline.Scripts) > 0 {
		fmt.Fprintln(os.Stdout, "SCRIPTS:")
		for _, s := range outline.Scripts {
			fmt.Fprintf(os.Stdout, "%4d  %s %s\n", s.Line, s.Language, s.Action)
		}
		fmt.Fprintln(os.Stdout)
	}

	if outline.UserRights > 0 {
		fmt.Fprintf(os.Stdout, "USER RIGHTS: %d table(s)\n", outline.UserRights)
	}
}
