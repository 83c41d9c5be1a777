package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/siteops/internal/llm"
	"github.com/siteops/internal/logging"
	"github.com/siteops/internal/pipeline"
	"github.com/siteops/internal/validator"
)

// ReviewCommand returns the review command
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Review generated drafts against policy and produce verdicts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "ai",
				Aliases: []string{"a"},
				Usage:   "Override the AI provider to use",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output",
			},
		},
		Action: runReview,
	}
}

func runReview(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}

	rc, err := rt.st.LoadRunContext()
	if err != nil || rc == nil {
		return fmt.Errorf("no run context found, run `siteops collect` first")
	}
	writer, err := rt.st.LoadWriterResults()
	if err != nil {
		return fmt.Errorf("no drafts found, run `siteops draft` first")
	}

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Minute)
	defer cancel()

	runLog, err := logging.StartRunLogging(c.String("logs"), uuid.New().String()[:8])
	if err != nil {
		return err
	}
	defer runLog.Close()

	client, err := newLLMClient(ctx, rt.cfg, c.String("ai"))
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	resilient := llm.NewResilientClientWithDefaults(client)

	v := validator.New(resilient, validator.Thresholds{
		Disproportion: rt.cfg.Workflow.HighRiskThreshold,
	})
	p := pipeline.New(nil, v, rt.st, stageTimeout(rt.cfg))
	results, err := p.RunEditor(ctx, rc, rt.cfg.PolicyConfig(), writer)
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	results.Usage = client.Usage()
	if err := rt.st.SaveEditorResults(results); err != nil {
		return err
	}

	fmt.Printf("Reviewed %d drafts: %d approved, %d flagged, %d rejected\n",
		len(results.Verdicts), results.Approved, results.Flagged, results.Rejected)
	return nil
}
