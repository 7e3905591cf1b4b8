package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	SourceFormat string `yaml:"source_format"`
	File         string `yaml:"file"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
	MaxBackups   int    `yaml:"max_backups"`
}

// Default returns the settings used when no config file is given
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:        "warn",
			Format:       "text",
			SourceFormat: "short",
			MaxSizeMB:    10,
			MaxBackups:   3,
		},
	}
}

// Load reads a YAML config on top of Default. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	cfg := Default()
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.resolvePaths(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("config.log.level %q is not a log level", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json", "nocolor":
	default:
		return fmt.Errorf("config.log.format must be one of text, json, nocolor")
	}
	switch c.Log.SourceFormat {
	case "short", "long", "none":
	default:
		return fmt.Errorf("config.log.source_format must be one of short, long, none")
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("config.log.max_size_mb must be positive")
	}
	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("config.log.max_backups must not be negative")
	}
	return nil
}

// resolvePaths makes a relative log file path relative to the config file
func (c *Config) resolvePaths(configPath string) {
	if c.Log.File == "" || filepath.IsAbs(c.Log.File) {
		return
	}
	c.Log.File = filepath.Join(filepath.Dir(configPath), c.Log.File)
}
