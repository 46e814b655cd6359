package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/recon-engine/internal/replay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	replayJSON bool

	replayCmd = &cobra.Command{
		Use:   "replay [fixture.json]",
		Short: "Replay a fixture and compare outcomes against its expected results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := replay.LoadFixture(args[0])
			if err != nil {
				return err
			}
			rep, err := replay.Run(cmd.Context(), f, logger)
			if err != nil {
				return err
			}
			mismatches := replay.Mismatches(f, rep)
			if err := printReport(f, rep, mismatches, replayJSON); err != nil {
				return err
			}
			if len(mismatches) > 0 {
				return fmt.Errorf("%d of %d turns diverged from the fixture", len(mismatches), len(rep.Steps))
			}
			logger.Info("replay matched", zap.String("seed", rep.Seed), zap.Int("turns", len(rep.Steps)))
			return nil
		},
	}
)

func init() {
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "output the full report as JSON")
}

// #region report
func printReport(f *replay.Fixture, rep replay.Report, mismatches []string, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			replay.Report
			Mismatches []string `json:"mismatches,omitempty"`
		}{rep, mismatches})
	}

	if f.Description != "" {
		fmt.Println(f.Description)
	}
	fmt.Printf("seed %s, %d actions\n", rep.Seed, len(rep.Steps))
	for _, s := range rep.Steps {
		fmt.Printf("  turn %-3d %-6s (%d,%d) -> %s\n", s.Turn, s.Action.Type, s.Action.X, s.Action.Y, s.Outcome)
	}
	fmt.Printf("best strike %s ev=%.3f | risk ev=%.3f cvar95=%.3f p_loss=%.3f\n",
		rep.Best.Center, rep.Best.EV, rep.Risk.ExpectedValue, rep.Risk.CVaR95, rep.Risk.ProbabilityOfLoss)
	fmt.Printf("belief: %s\n", rep.Eval.Reason)
	for _, m := range mismatches {
		fmt.Fprintf(os.Stderr, "MISMATCH %s\n", m)
	}
	return nil
}

// #endregion report
