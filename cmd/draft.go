package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/siteops/internal/drafter"
	"github.com/siteops/internal/llm"
	"github.com/siteops/internal/logging"
	"github.com/siteops/internal/pipeline"
)

// DraftCommand returns the draft command
func DraftCommand() *cli.Command {
	return &cli.Command{
		Name:  "draft",
		Usage: "Generate page drafts for projects the collector marked for update",
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
		Action: runDraft,
	}
}

func runDraft(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}

	rc, err := rt.st.LoadRunContext()
	if err != nil {
		return fmt.Errorf("failed to load run context: %w", err)
	}
	if rc == nil {
		return fmt.Errorf("no run context found, run `siteops collect` first")
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

	p := pipeline.New(drafter.New(resilient), nil, rt.st, stageTimeout(rt.cfg))
	results, err := p.RunWriter(ctx, rc, rt.cfg.PolicyConfig())
	if err != nil {
		return fmt.Errorf("drafting failed: %w", err)
	}

	results.Usage = client.Usage()
	if err := rt.st.SaveWriterResults(results); err != nil {
		return err
	}

	fmt.Printf("Drafted %d pages (%d failures)\n", len(results.Drafts), len(results.Errors))
	for _, phaseErr := range results.Errors {
		fmt.Printf("  %s: %s\n", phaseErr.Slug, phaseErr.Error)
	}
	return nil
}
