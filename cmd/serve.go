package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/siteops/internal/api"
)

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the run dashboard over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Value:   8080,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}

	port := c.Int("port")
	fmt.Printf("Serving dashboard on http://localhost:%d\n", port)
	return api.NewServer(rt.st, port).Start()
}
