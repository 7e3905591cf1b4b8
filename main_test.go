package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jenish-rudani/nfctool/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func runLoadConfig(t *testing.T, args ...string) (*config.Config, []string, error) {
	t.Helper()
	var (
		cfg  *config.Config
		rest []string
	)
	app := newApp()
	app.Action = func(c *cli.Context) error {
		var err error
		cfg, err = loadConfig(c)
		rest = []string(c.Args())
		return err
	}
	err := app.Run(append([]string{"nfctool"}, args...))
	return cfg, rest, err
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, rest, err := runLoadConfig(t, "getuid")
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
	require.Equal(t, []string{"getuid"}, rest)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nfctool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n  format: json\n"), 0o600))

	cfg, rest, err := runLoadConfig(t, "--config", path, "--log-level", "debug", "write", "1", "00")
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, []string{"write", "1", "00"}, rest)
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	_, _, err := runLoadConfig(t, "--log-format", "xml", "info")
	require.EqualError(t, err, "config.log.format must be one of text, json, nocolor")
}

func TestHelpIsPositional(t *testing.T) {
	_, rest, err := runLoadConfig(t, "help")
	require.NoError(t, err)
	require.Equal(t, []string{"help"}, rest)
}
