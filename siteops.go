package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/siteops/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "siteops",
		Usage:   "Keeps project pages on a static site in sync with their repositories",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "siteops.toml",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Directory for run artifacts",
				Value: "_data",
			},
			&cli.StringFlag{
				Name:  "logs",
				Usage: "Directory for run logs",
				Value: "_data/logs",
			},
		},
		Commands: []*cli.Command{
			cmd.CollectCommand(),
			cmd.DraftCommand(),
			cmd.ReviewCommand(),
			cmd.RunCommand(),
			cmd.DeployCommand(),
			cmd.ObserveCommand(),
			cmd.ServeCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
