package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jenish-rudani/nfctool/internal/command"
	"github.com/jenish-rudani/nfctool/internal/config"
	"github.com/jenish-rudani/nfctool/internal/pcsc"
	"github.com/jenish-rudani/nfctool/internal/utils/log"
	"github.com/urfave/cli"
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = command.ToolName
	app.Usage = "MIFARE Classic and reader utility over PC/SC"
	app.UsageText = command.ToolName + " [global options] help|getuid|info|loadkey|read|write|firmver|mute|unmute [arguments...]"
	app.Version = VERSION
	// "help" is a subcommand handled by the dispatcher
	app.HideHelp = true

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "YAML config file",
		},
		cli.StringFlag{
			Name:  "log-level, l",
			Usage: `log level, one of "debug", "info", "warn", "error"`,
		},
		cli.StringFlag{
			Name:  "log-format",
			Usage: `log format, one of "text", "json", "nocolor"`,
		},
		cli.StringFlag{
			Name:  "log-file",
			Usage: "write logs to a rotated file instead of stderr",
		},
	}

	app.Action = run
	return app
}

// loadConfig merges defaults, the optional config file and explicit flags
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}
	return cfg, cfg.Validate()
}

func initLogger(cfg *config.Config) io.Closer {
	log.SetLevel(cfg.Log.Level)
	log.SetFormat(cfg.Log.Format)
	log.SetSourceFormat(cfg.Log.SourceFormat)
	if cfg.Log.File != "" {
		return log.SetOutputFile(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	}
	log.DisableColorsUnlessTerminal()
	return nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if closer := initLogger(cfg); closer != nil {
		defer closer.Close()
	}

	d := command.NewDispatcher(pcsc.NewContext, os.Stdout)
	return d.Run([]string(c.Args()))
}

func main() {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("%s v%s\n", command.ToolName, VERSION)
		fmt.Printf("Git commit: %s\n", GITCOMMIT)
		fmt.Printf("Built at: %s\n", BUILDTIME)
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
