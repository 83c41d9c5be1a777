package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/siteops/internal/collector"
)

// CollectCommand returns the collect command
func CollectCommand() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Discover tracked repositories and build the run context",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output",
			},
		},
		Action: runCollect,
	}
}

func runCollect(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Minute)
	defer cancel()

	prev, err := rt.st.LoadRunContext()
	if err != nil {
		return fmt.Errorf("failed to read previous run context: %w", err)
	}

	rc, err := collector.New(rt.gh, rt.site, rt.cfg).Collect(ctx, prev)
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}
	if err := rt.st.SaveRunContext(rc); err != nil {
		return fmt.Errorf("failed to save run context: %w", err)
	}

	fmt.Printf("Collected %d projects: %d updates, %d new, %d skipped (%d locked)\n",
		rc.Summary.Total, rc.Summary.Updates, rc.Summary.New, rc.Summary.Skips, rc.Summary.Locked)
	return nil
}
