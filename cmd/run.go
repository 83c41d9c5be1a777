package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/siteops/internal/collector"
	"github.com/siteops/internal/deployer"
	"github.com/siteops/internal/drafter"
	"github.com/siteops/internal/llm"
	"github.com/siteops/internal/logging"
	"github.com/siteops/internal/observer"
	"github.com/siteops/internal/pipeline"
	"github.com/siteops/internal/validator"
)

// RunCommand returns the run command
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the full pipeline: collect, draft, review, deploy, observe",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "ai",
				Aliases: []string{"a"},
				Usage:   "Override the AI provider to use",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Skip deployment, only report what would happen",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output",
			},
		},
		Action: runPipeline,
	}
}

func runPipeline(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}

	runID := uuid.New().String()[:8]
	startedAt := time.Now().UTC().Format(time.RFC3339)

	runLog, err := logging.StartRunLogging(c.String("logs"), runID)
	if err != nil {
		return err
	}
	defer runLog.Close()
	runLog.LogSection("PIPELINE RUN " + runID)

	ctx, cancel := context.WithTimeout(c.Context, time.Hour)
	defer cancel()

	// Collect
	prev, err := rt.st.LoadRunContext()
	if err != nil {
		return fmt.Errorf("failed to read previous run context: %w", err)
	}
	rc, err := collector.New(rt.gh, rt.site, rt.cfg).Collect(ctx, prev)
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}
	if err := rt.st.SaveRunContext(rc); err != nil {
		return err
	}
	fmt.Printf("[1/5] Collected %d projects (%d to draft)\n",
		rc.Summary.Total, rc.Summary.Updates+rc.Summary.New)

	client, err := newLLMClient(ctx, rt.cfg, c.String("ai"))
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	resilient := llm.NewResilientClientWithDefaults(client)

	// Draft
	p := pipeline.New(
		drafter.New(resilient),
		validator.New(resilient, validator.Thresholds{Disproportion: rt.cfg.Workflow.HighRiskThreshold}),
		rt.st,
		stageTimeout(rt.cfg),
	)
	writer, err := p.RunWriter(ctx, rc, rt.cfg.PolicyConfig())
	if err != nil {
		return fmt.Errorf("drafting failed: %w", err)
	}
	writer.Usage = client.Usage()
	if err := rt.st.SaveWriterResults(writer); err != nil {
		return err
	}
	fmt.Printf("[2/5] Drafted %d pages (%d failures)\n", len(writer.Drafts), len(writer.Errors))

	// Review
	editor, err := p.RunEditor(ctx, rc, rt.cfg.PolicyConfig(), writer)
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}
	editor.Usage = client.Usage().Since(writer.Usage)
	if err := rt.st.SaveEditorResults(editor); err != nil {
		return err
	}
	fmt.Printf("[3/5] Reviewed: %d approved, %d flagged, %d rejected\n",
		editor.Approved, editor.Flagged, editor.Rejected)

	// Deploy
	d := deployer.New(rt.site, rt.st, deployer.Options{
		Mode:              rt.cfg.Workflow.Mode,
		ForcePROnHighRisk: rt.cfg.Workflow.ForcePROnHighRisk,
		HighRiskThreshold: rt.cfg.Workflow.HighRiskThreshold,
		DryRun:            c.Bool("dry-run"),
	})
	deployed, err := d.Run(ctx, rc, editor)
	if err != nil {
		return fmt.Errorf("deployment failed: %w", err)
	}
	fmt.Printf("[4/5] Deployed: %d pushed, %d in review, %d skipped\n",
		len(deployed.Pushed), len(deployed.PRs), len(deployed.Skipped))

	// Observe
	obs := observer.New(rt.st, client.Name())
	record := obs.BuildRecord(runID, startedAt, rc, writer, editor, deployed)
	reportPath, err := obs.Publish(record, rc, editor, deployed)
	if err != nil {
		return fmt.Errorf("observation failed: %w", err)
	}
	fmt.Printf("[5/5] Report: %s (estimated cost $%.4f)\n", reportPath, record.CostUSD)
	return nil
}
