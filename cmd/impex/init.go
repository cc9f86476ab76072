package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"
)

const starterConfig = `# Where the lock file, snapshot and reports are written.
output = ".impex"

# Parse settings.
delimiter = ";"
overflow = "warn"            # ignore, warn or error
blank_line_ends_table = true
max_macro_depth = 256
parallel = 4

excludes = ["**/node_modules/**", "**/.git/**"]

# Values for $config- macros. Later property files override earlier ones;
# [properties] overrides them all.
# property_files = ["config/local.properties"]
[properties]
# "website.url" = "https://localhost:9002"

[sources.core]
path = "resources/impex"
patterns = ["**/*.impex"]

# [sources.remote]
# url = "https://example.com/essentialdata.impex"

[display]
format = "table"             # table, json or csv
default_limit = 50
min_severity = "info"
`

func newInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a starter impex.toml in the current directory",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Overwrite an existing impex.toml",
			},
		},
		Action: initAction,
	}
}

func initAction(_ context.Context, cmd *cli.Command) error {
	wd, err := os.Getwd()
	if err != nil {
		return oops.Wrapf(err, "resolving working directory")
	}
	path := filepath.Join(wd, "impex.toml")

	if _, statErr := os.Stat(path); statErr == nil && !cmd.Bool("force") {
		return oops.
			Code("CONFIG_EXISTS").
			With("path", path).
			Hint("Use --force to overwrite it").
			Errorf("%s already exists", path)
	} else if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return oops.Wrapf(statErr, "checking %q", path)
	}

	if writeErr := os.WriteFile(path, []byte(starterConfig), 0o644); writeErr != nil { //nolint:gosec // Config files are meant to be readable.
		return oops.
			Code("CONFIG_WRITE_ERROR").
			With("path", path).
			Wrapf(writeErr, "writing config")
	}

	fmt.Fprintf(os.Stdout, "created %s\n", path)
	return nil
}
