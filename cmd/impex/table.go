package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/g5becks/impex/internal/document"
	"github.com/g5becks/impex/internal/ui"
)

func newTableCommand() *cli.Command {
	return &cli.Command{
		Name:      "table",
		Usage:     "Show the value lines of a header as a table",
		ArgsUsage: "<file>",
		Flags: append([]cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "type",
				Usage: "Show only headers for this item type",
			},
			&cli.IntFlag{
				Name:  "line",
				Usage: "Show only the header whose table covers this line",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Show first N value lines per header (0 = use config default)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Show all value lines (no limit)",
			},
			&cli.BoolFlag{
				Name:  "short",
				Usage: "Shorten jar:, zip: and file: references",
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: "Max column width in table output (0 = unlimited)",
			},
		}, formatFlags()...),
		Action: tableAction,
	}
}

func tableAction(_ context.Context, cmd *cli.Command) error {
	path, err := requireOneFile(cmd, "impex table <file> [--type <type>] [--line <n>]")
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

	headers, err := selectHeaders(cmd, result.Document)
	if err != nil {
		return err
	}

	opts := ui.HeaderTableOptions{
		Limit:       resolveLimit(cmd, cfg),
		Presentable: cmd.Bool("short"),
		MaxWidth:    cmd.Int("width"),
	}

	tables := make([]ui.HeaderTable, 0, len(headers))
	for _, h := range headers {
		tables = append(tables, ui.NewHeaderTable(result.Document, h, opts))
	}

	if format == ui.FormatJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if encodeErr := encoder.Encode(tables); encodeErr != nil {
			return oops.Code("JSON_ERROR").Wrapf(encodeErr, "encoding tables")
		}
		return nil
	}

	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(os.Stdout)
		}
		if renderErr := ui.RenderHeaderTable(os.Stdout, t, format, opts); renderErr != nil {
			return renderErr
		}
	}
	return nil
}

func selectHeaders(cmd *cli.Command, doc *document.Document) ([]*document.Header, error) {
	if cmd.IsSet("line") {
		line := cmd.Int("line")
		for _, h := range doc.Headers {
			start, end := doc.TableRange(h)
			if line >= doc.Tree.Line(start) && line <= doc.Tree.Line(end) {
				return []*document.Header{h}, nil
			}
		}
		return nil, oops.
			Code("HEADER_NOT_FOUND").
			With("line", line).
			Hint("Run 'impex outline <file>' to see header lines").
			Errorf("no header table covers line %d", line)
	}

	typeName := cmd.String("type")
	if typeName == "" {
		return doc.Headers, nil
	}

	var out []*document.Header
	for _, h := range doc.Headers {
		if strings.EqualFold(h.ResolvedTypeName, typeName) {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return nil, oops.
			Code("HEADER_NOT_FOUND").
			With("type", typeName).
			Hint("Run 'impex outline <file>' to see header types").
			Errorf("no header for type %q", typeName)
	}
	return out, nil
}
