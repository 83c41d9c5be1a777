package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/siteops/internal/observer"
)

// ObserveCommand returns the observe command
func ObserveCommand() *cli.Command {
	return &cli.Command{
		Name:  "observe",
		Usage: "Aggregate the latest phase artifacts into a report and dashboard",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output",
			},
		},
		Action: runObserve,
	}
}

func runObserve(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}

	rc, err := rt.st.LoadRunContext()
	if err != nil || rc == nil {
		return fmt.Errorf("no run context found, run `siteops collect` first")
	}
	// Later phases may not have run yet; report whatever exists.
	writer, _ := rt.st.LoadWriterResults()
	editor, _ := rt.st.LoadEditorResults()
	deployed, _ := rt.st.LoadDeployerResults()

	obs := observer.New(rt.st, rt.cfg.General.DefaultAI)
	record := obs.BuildRecord(uuid.New().String()[:8], rc.GeneratedAt, rc, writer, editor, deployed)
	record.FinishedAt = time.Now().UTC().Format(time.RFC3339)

	reportPath, err := obs.Publish(record, rc, editor, deployed)
	if err != nil {
		return fmt.Errorf("observation failed: %w", err)
	}

	fmt.Printf("Report written to %s (estimated cost $%.4f)\n", reportPath, record.CostUSD)
	return nil
}
