package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/siteops/internal/deployer"
)

// DeployCommand returns the deploy command
func DeployCommand() *cli.Command {
	return &cli.Command{
		Name:  "deploy",
		Usage: "Publish approved drafts and open a review PR for the rest",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Show deployment decisions without touching the site repo",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output",
			},
		},
		Action: runDeploy,
	}
}

func runDeploy(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}

	rc, err := rt.st.LoadRunContext()
	if err != nil || rc == nil {
		return fmt.Errorf("no run context found, run `siteops collect` first")
	}
	editor, err := rt.st.LoadEditorResults()
	if err != nil {
		return fmt.Errorf("no verdicts found, run `siteops review` first")
	}

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Minute)
	defer cancel()

	d := deployer.New(rt.site, rt.st, deployer.Options{
		Mode:              rt.cfg.Workflow.Mode,
		ForcePROnHighRisk: rt.cfg.Workflow.ForcePROnHighRisk,
		HighRiskThreshold: rt.cfg.Workflow.HighRiskThreshold,
		DryRun:            c.Bool("dry-run"),
	})
	results, err := d.Run(ctx, rc, editor)
	if err != nil {
		return fmt.Errorf("deployment failed: %w", err)
	}

	fmt.Printf("Deployed: %d pushed, %d in review PR, %d skipped, %d errors\n",
		len(results.Pushed), len(results.PRs), len(results.Skipped), len(results.Errors))
	for _, pr := range results.PRs {
		if pr.URL != "" {
			fmt.Printf("  review: %s\n", pr.URL)
			break
		}
	}
	return nil
}
