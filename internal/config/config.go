// Package config loads optional defaults for agentwatch from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "AGENTWATCH_CONFIG"

// Color choices.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Warning modes for malformed lines.
const (
	ErrorsStderr = "stderr"
	ErrorsIgnore = "ignore"
)

// Config holds defaults that command-line flags override.
type Config struct {
	Format       string `yaml:"format"`
	Color        string `yaml:"color"`
	KeepNewlines bool   `yaml:"keep_newlines"`
	MaxWidth     int    `yaml:"max_width"`
	Errors       string `yaml:"errors"`
	Last         int    `yaml:"last"`
	IndexPath    string `yaml:"index"`
	SessionKey   string `yaml:"session_key"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Format: "text",
		Color:  ColorAuto,
		Errors: ErrorsStderr,
	}
}

// DefaultPath returns ~/.config/agentwatch/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "agentwatch", "config.yaml")
}

// Load reads the config file at path. When path is empty it tries
// $AGENTWATCH_CONFIG and then DefaultPath; a missing file in that case is not
// an error and yields Default(). An explicitly named file must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.IndexPath = expandHome(cfg.IndexPath)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	switch strings.ToLower(c.Format) {
	case "text", "table", "jsonl":
	default:
		return fmt.Errorf("unsupported format: %s", c.Format)
	}
	switch strings.ToLower(c.Color) {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color choice %q (want auto, always or never)", c.Color)
	}
	switch strings.ToLower(c.Errors) {
	case ErrorsStderr, ErrorsIgnore:
	default:
		return fmt.Errorf("invalid errors mode %q (want stderr or ignore)", c.Errors)
	}
	if c.MaxWidth < 0 {
		return fmt.Errorf("max_width must not be negative")
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
