// Package config loads impex.toml: where ImpEx files come from, how they are
// parsed and the property values used for $config- macros. Property values
// come from [properties] and from hybris style .properties files listed in
// property_files.
package config

import (
	"errors"
	"maps"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

func configFilenames() []string {
	return []string{"impex.toml", ".impex.toml"}
}

func Load(configPath string) (*Config, error) {
	resolvedPath, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}

	absConfigPath, err := filepath.Abs(resolvedPath)
	if err != nil {
		return nil, oops.Wrapf(err, "resolving absolute config path")
	}

	cfg := &Config{}
	k := koanf.New(".")

	if loadErr := k.Load(file.Provider(absConfigPath), toml.Parser()); loadErr != nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			With("path", absConfigPath).
			Hint("Fix TOML syntax and required fields in your config").
			Wrapf(loadErr, "loading config from %q", absConfigPath)
	}

	if unmarshalErr := k.Unmarshal("", cfg); unmarshalErr != nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			With("path", absConfigPath).
			Hint("Fix config structure to match the impex.toml schema").
			Wrapf(unmarshalErr, "decoding config from %q", absConfigPath)
	}

	cfg.ConfigDir = filepath.Dir(absConfigPath)
	cfg.ApplyDefaults()

	if valErr := cfg.Validate(); valErr != nil {
		return nil, valErr
	}

	cfg.resolvePaths()

	if propErr := cfg.loadPropertyFiles(); propErr != nil {
		return nil, propErr
	}

	return cfg, nil
}

// resolvePaths makes the output directory, local source roots and property
// files absolute against the directory holding the config file.
func (c *Config) resolvePaths() {
	c.Output = c.relativeToConfig(c.Output)

	for name, src := range c.Sources {
		if src.Type == SourceLocal {
			src.Path = c.relativeToConfig(src.Path)
			c.Sources[name] = src
		}
	}

	for i, path := range c.PropertyFiles {
		c.PropertyFiles[i] = c.relativeToConfig(path)
	}
}

func (c *Config) relativeToConfig(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Clean(filepath.Join(c.ConfigDir, path))
}

// loadPropertyFiles reads the property_files in order, later files
// overriding earlier ones the way local.properties overrides
// project.properties. Keys set under [properties] win over every file.
func (c *Config) loadPropertyFiles() error {
	if len(c.PropertyFiles) == 0 {
		return nil
	}

	merged := make(map[string]string)
	for _, path := range c.PropertyFiles {
		f, err := os.Open(path)
		if err != nil {
			return oops.
				Code("CONFIG_INVALID").
				With("path", path).
				Hint("Remove the entry from property_files or fix the path").
				Wrapf(err, "opening property file %q", path)
		}

		props, readErr := readProperties(f)
		_ = f.Close()
		if readErr != nil {
			return oops.
				Code("CONFIG_INVALID").
				With("path", path).
				Wrapf(readErr, "reading property file %q", path)
		}

		maps.Copy(merged, props)
	}

	maps.Copy(merged, c.Properties)
	c.Properties = merged
	return nil
}

func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", oops.Wrapf(err, "getting working directory")
	}

	for {
		foundPath, found, findErr := findConfigInDirectory(dir)
		if findErr != nil {
			return "", findErr
		}

		if found {
			return foundPath, nil
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			return "", oops.
				Code("CONFIG_NOT_FOUND").
				Hint("Run 'impex init' to create a config file").
				Errorf("no impex.toml or .impex.toml found in any parent directory")
		}

		dir = parentDir
	}
}

func resolveConfigPath(configPath string) (string, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", oops.
					Code("CONFIG_NOT_FOUND").
					With("path", configPath).
					Hint("Create the file or pass a valid --config path").
					Errorf("config file %q does not exist", configPath)
			}

			return "", oops.Wrapf(err, "checking config file %q", configPath)
		}

		return configPath, nil
	}

	return FindConfigFile()
}

func findConfigInDirectory(dir string) (string, bool, error) {
	for _, name := range configFilenames() {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, oops.Wrapf(err, "checking for config file at %q", path)
		}
	}

	return "", false, nil
}
