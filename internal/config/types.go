package config

import (
	"errors"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/g5becks/impex/internal/document"
	"github.com/g5becks/impex/internal/macro"
)

const (
	DefaultOutput        = ".impex"
	DefaultDelimiter     = ";"
	DefaultOverflow      = "warn"
	DefaultParallel      = 4
	DefaultCacheSize     = 256
	DefaultDisplayLimit  = 50
	DefaultDisplayFormat = "table"

	SourceLocal = "local"
	SourceURL   = "url"

	validationTagRequiredIf = "required_if"
)

func DefaultPatterns() []string {
	return []string{"**/*.impex"}
}

func DefaultExcludes() []string {
	return []string{
		"**/node_modules/**",
		"**/.git/**",
		"**/build/**",
		"**/target/**",
	}
}

type Config struct {
	Output             string            `koanf:"output"`
	Delimiter          string            `koanf:"delimiter"             validate:"len=1"`
	Overflow           string            `koanf:"overflow"              validate:"oneof=ignore warn error"`
	BlankLineEndsTable *bool             `koanf:"blank_line_ends_table"`
	MaxMacroDepth      int               `koanf:"max_macro_depth"       validate:"gte=1,lte=4096"`
	Parallel           int               `koanf:"parallel"              validate:"gte=1,lte=64"`
	CacheSize          int               `koanf:"cache_size"            validate:"gte=0"`
	Excludes           []string          `koanf:"excludes"`
	Properties         map[string]string `koanf:"properties"`
	PropertyFiles      []string          `koanf:"property_files"`
	Sources            map[string]Source `koanf:"sources"               validate:"dive"`
	Display            Display           `koanf:"display"`
	ConfigDir          string            `koanf:"-"`
}

// Source is a named set of ImpEx inputs: files under a local directory or a
// single document behind a URL.
type Source struct {
	Type     string   `koanf:"type"     validate:"required,oneof=local url"`
	Path     string   `koanf:"path"     validate:"required_if=Type local"`
	Patterns []string `koanf:"patterns"`
	Exclude  []string `koanf:"exclude"`
	URL      string   `koanf:"url"      validate:"required_if=Type url,omitempty,url"`
}

type Display struct {
	DefaultLimit int    `koanf:"default_limit" validate:"gte=0"`
	Format       string `koanf:"format"        validate:"omitempty,oneof=table json csv"`
	MinSeverity  string `koanf:"min_severity"  validate:"omitempty,oneof=info warning warn error"`
}

// Default returns the settings used when no config file exists.
func Default(dir string) *Config {
	cfg := &Config{ConfigDir: dir}
	cfg.ApplyDefaults()
	cfg.Output = filepath.Join(dir, cfg.Output)
	return cfg
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func (c *Config) ApplyDefaults() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Delimiter == "" {
		c.Delimiter = DefaultDelimiter
	}
	if c.Overflow == "" {
		c.Overflow = DefaultOverflow
	}
	if c.BlankLineEndsTable == nil {
		blank := true
		c.BlankLineEndsTable = &blank
	}
	if c.MaxMacroDepth == 0 {
		c.MaxMacroDepth = macro.DefaultMaxDepth
	}
	if c.Parallel == 0 {
		c.Parallel = DefaultParallel
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.Display.DefaultLimit == 0 {
		c.Display.DefaultLimit = DefaultDisplayLimit
	}
	if c.Display.Format == "" {
		c.Display.Format = DefaultDisplayFormat
	}
	if c.Display.MinSeverity == "" {
		c.Display.MinSeverity = "info"
	}

	for name, src := range c.Sources {
		c.Sources[name] = applySourceDefaults(src, c.Excludes)
	}
}

func applySourceDefaults(src Source, globalExcludes []string) Source {
	if src.Type == "" {
		switch {
		case src.URL != "":
			src.Type = SourceURL
		case src.Path != "":
			src.Type = SourceLocal
		}
	}

	if src.Type == SourceLocal {
		if len(src.Patterns) == 0 {
			src.Patterns = DefaultPatterns()
		}
		src.Exclude = mergeExcludes(globalExcludes, src.Exclude)
	}
	return src
}

// mergeExcludes returns the union of both lists, sorted, or nil when both
// are empty.
func mergeExcludes(global, source []string) []string {
	set := make(map[string]struct{}, len(global)+len(source))
	for _, p := range global {
		set[p] = struct{}{}
	}
	for _, p := range source {
		set[p] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(set))
}

func (c *Config) Validate() error {
	v := newValidator()

	if valErr := v.StructExcept(c, "Sources"); valErr != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(valErr, &validationErrors) {
			return oops.Code("CONFIG_INVALID").Wrapf(valErr, "validating config")
		}
		return mapSettingError(c, validationErrors[0])
	}

	for _, sourceName := range slices.Sorted(maps.Keys(c.Sources)) {
		sourceCfg := c.Sources[sourceName]
		valErr := v.Struct(sourceCfg)
		if valErr == nil {
			continue
		}

		var validationErrors validator.ValidationErrors
		if !errors.As(valErr, &validationErrors) {
			return oops.
				Code("CONFIG_INVALID").
				With("source", sourceName).
				Wrapf(valErr, "validating source %q", sourceName)
		}

		return mapValidationError(sourceName, sourceCfg, validationErrors[0])
	}

	return nil
}

func mapSettingError(c *Config, fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())

	switch field {
	case "delimiter":
		return oops.
			Code("CONFIG_INVALID").
			With("field", "delimiter").
			With("value", c.Delimiter).
			Hint("Use a single character such as ';' or '|'").
			Errorf("invalid delimiter %q", c.Delimiter)

	case "overflow":
		return oops.
			Code("CONFIG_INVALID").
			With("field", "overflow").
			With("value", c.Overflow).
			Hint("Supported policies: ignore, warn, error").
			Errorf("unknown overflow policy %q", c.Overflow)

	default:
		return oops.
			Code("CONFIG_INVALID").
			With("field", field).
			With("tag", fe.Tag()).
			Errorf("validation failed for field %q", fe.Namespace())
	}
}

func mapValidationError(sourceName string, sourceCfg Source, fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())

	switch {
	case fe.Tag() == "required" && field == "type":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			Hint("Set path for local sources or url for remote ones").
			Errorf("source %q has neither 'path' nor 'url'", sourceName)

	case fe.Tag() == "oneof" && field == "type":
		return oops.
			Code("UNKNOWN_SOURCE_TYPE").
			With("source", sourceName).
			With("type", sourceCfg.Type).
			Hint("Supported types: local, url").
			Errorf("unknown source type %q for source %q", sourceCfg.Type, sourceName)

	case fe.Tag() == validationTagRequiredIf && field == "path":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", "path").
			Hint("Set path to a directory or file containing ImpEx").
			Errorf("missing 'path' for source %q", sourceName)

	case fe.Tag() == validationTagRequiredIf && field == "url":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", "url").
			Hint("Set url for url sources").
			Errorf("missing 'url' for source %q", sourceName)

	case fe.Tag() == "url":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", "url").
			With("value", sourceCfg.URL).
			Errorf("invalid url %q for source %q", sourceCfg.URL, sourceName)

	default:
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", field).
			With("tag", fe.Tag()).
			Errorf("validation failed for field %q in source %q", field, sourceName)
	}
}

// DocumentOptions turns the parse settings into builder options. Properties
// back $config- usages.
func (c *Config) DocumentOptions() document.Options {
	opts := document.DefaultOptions()
	if c.Delimiter != "" {
		opts.Delimiter = c.Delimiter[0]
	}
	if c.Overflow != "" {
		opts.Overflow = document.OverflowPolicy(c.Overflow)
	}
	if c.BlankLineEndsTable != nil {
		opts.BlankLineContinuesTable = !*c.BlankLineEndsTable
	}
	if c.MaxMacroDepth > 0 {
		opts.MaxMacroDepth = c.MaxMacroDepth
	}
	if len(c.Properties) > 0 {
		opts.Config = macro.MapResolver(c.Properties)
	}
	return opts
}

// SnapshotPath is where the last check result is stored.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.OutputDir(), "snapshot.json")
}

// OutputDir is the directory holding the lock file, snapshot and reports.
func (c *Config) OutputDir() string {
	if filepath.IsAbs(c.Output) {
		return c.Output
	}
	return filepath.Join(c.ConfigDir, c.Output)
}
