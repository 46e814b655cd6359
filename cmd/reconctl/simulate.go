package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/recon-engine/internal/config"
	"github.com/danielpatrickdp/recon-engine/internal/eval"
	"github.com/danielpatrickdp/recon-engine/internal/logging"
	"github.com/danielpatrickdp/recon-engine/internal/policy"
	"github.com/danielpatrickdp/recon-engine/internal/replay"
	"github.com/danielpatrickdp/recon-engine/internal/state"
	"github.com/danielpatrickdp/recon-engine/internal/voi"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	simTurns    int
	simStrategy string
	simDBPath   string
	simJSON     bool

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Drive a seeded episode with the advisor and record it to SQLite",
		Long: `simulate generates the world from the configured seed, then on each turn
asks the advisor for recommendations and acts on them: reconnaissance while
the recon policy finds positive net value of information, otherwise the
strike policy's recommendation. It stops when every policy says wait or the
turn limit is reached. Every reading and strike goes to the event log and
every turn's belief is committed as a new version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := policy.Kind(simStrategy)
			if kind != policy.KindGreedyEV && kind != policy.KindRiskAverse {
				return fmt.Errorf("--strike-policy must be %q or %q", policy.KindGreedyEV, policy.KindRiskAverse)
			}
			path := simDBPath
			if path == "" {
				path = engineConfig.Store.Path
			}
			store, err := state.NewStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			sum, err := runSimulation(cmd.Context(), engineConfig, store, simTurns, kind, logger)
			if err != nil {
				return err
			}
			return printSummary(sum, simJSON)
		},
	}
)

func init() {
	simulateCmd.Flags().IntVar(&simTurns, "turns", 20, "maximum number of turns")
	simulateCmd.Flags().StringVar(&simStrategy, "strike-policy", string(policy.KindGreedyEV), "policy whose strike recommendation is followed")
	simulateCmd.Flags().StringVar(&simDBPath, "db", "", "SQLite path (defaults to store.path)")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "output as JSON instead of text")
}

// #region simulate
type simSummary struct {
	EpisodeID string              `json:"episode_id"`
	Seed      string              `json:"seed"`
	Steps     []replay.StepResult `json:"steps"`
	Summary   replay.Summary      `json:"summary"`
	Eval      eval.EvalResult     `json:"eval"`
	VersionID string              `json:"version_id"` // final committed belief
}

type turnMetrics struct {
	Action  string  `json:"action"`
	Outcome string  `json:"outcome"`
	Budget  float64 `json:"budget"`
	Policy  string  `json:"policy"`
	Value   float64 `json:"value"`
}

func runSimulation(ctx context.Context, cfg config.EngineConfig, store *state.Store, turns int, strikeKind policy.Kind, log *zap.Logger) (simSummary, error) {
	ep, err := replay.NewEpisode(uuid.New().String(), cfg)
	if err != nil {
		return simSummary{}, err
	}
	log = log.With(zap.String("episode", ep.ID))

	opts := []policy.Option{policy.WithLogger(log)}
	if cfg.VOI.OutcomeModel == voi.OutcomeTruth {
		opts = append(opts, policy.WithOracle(ep.Truth))
	}
	advisor, err := policy.NewAdvisor(cfg.Policy(), opts...)
	if err != nil {
		return simSummary{}, err
	}

	version, err := store.CreateInitial(ep.ID, ep.Grid)
	if err != nil {
		return simSummary{}, err
	}

	var steps []replay.StepResult
	for len(steps) < turns {
		advice, err := advisor.Advise(ctx, policy.Input{
			Grid:         ep.Grid,
			Budget:       ep.Budget,
			Turn:         ep.Turn,
			RecentWindow: cfg.Recon.RecentWindow,
			Stream:       ep.Stream(ep.Turn).Derive("advice"),
		})
		if err != nil {
			return simSummary{}, err
		}

		action, chosen, ok := choose(advice, strikeKind)
		if !ok {
			log.Info("every policy recommends waiting", zap.Int("turn", ep.Turn))
			break
		}
		res, err := ep.Apply(action)
		if err != nil {
			return simSummary{}, err
		}
		steps = append(steps, res)

		if err := recordEvent(store, ep.ID, res); err != nil {
			return simSummary{}, err
		}
		version, err = store.CommitGrid(ep.Grid, version.VersionID, ep.ID, res.Turn, turnMetrics{
			Action:  string(action.Type),
			Outcome: res.Outcome,
			Budget:  res.BudgetAfter,
			Policy:  string(chosen.Policy()),
			Value:   chosen.Summary().Value,
		})
		if err != nil {
			return simSummary{}, err
		}

		log.Info("turn",
			zap.Int("turn", res.Turn),
			zap.String("policy", string(chosen.Policy())),
			zap.String("action", string(action.Type)),
			zap.Int("x", action.X),
			zap.Int("y", action.Y),
			zap.String("outcome", res.Outcome),
			zap.Float64("budget", res.BudgetAfter))

		if res.Outcome == replay.OutcomeRejected {
			break
		}
	}

	ev, err := eval.NewEvalHarness(cfg.Eval).Run(ep.Grid, ep.Truth.HostileTruth, ep.Truth.Hostile)
	if err != nil {
		return simSummary{}, err
	}
	return simSummary{
		EpisodeID: ep.ID,
		Seed:      cfg.Seed,
		Steps:     steps,
		Summary:   replay.Summarize(steps, ep.Budget),
		Eval:      ev,
		VersionID: version.VersionID,
	}, nil
}

// choose prefers reconnaissance with positive net value, then the chosen
// strike policy. ok is false when both say wait.
func choose(advice policy.Advice, strikeKind policy.Kind) (replay.Action, policy.Recommendation, bool) {
	if r := advice.ReconVOI; r.Action == policy.ActionRecon {
		return replay.Action{Type: replay.ActionRecon, X: r.Target.X, Y: r.Target.Y, Sensor: r.Sensor}, r, true
	}
	var rec policy.Recommendation = advice.GreedyEV
	if strikeKind == policy.KindRiskAverse {
		rec = advice.RiskAverse
	}
	d := rec.Summary()
	if d.Action != policy.ActionStrike {
		return replay.Action{}, nil, false
	}
	return replay.Action{Type: replay.ActionStrike, X: d.Target.X, Y: d.Target.Y}, rec, true
}

func recordEvent(store *state.Store, episodeID string, res replay.StepResult) error {
	var (
		entry logging.EventEntry
		err   error
	)
	switch {
	case res.Reading != nil:
		entry, err = logging.SensorEvent(episodeID, res.Action.X, res.Action.Y, *res.Reading)
	case res.Result != nil:
		entry, err = logging.StrikeEvent(episodeID, res.Turn, *res.Result)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	return logging.LogEvent(store.DB(), entry)
}

// #endregion simulate

// #region output
func printSummary(sum simSummary, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	fmt.Printf("episode %s (seed %s)\n", sum.EpisodeID, sum.Seed)
	fmt.Printf("%-5s %-7s %-8s %-9s %s\n", "TURN", "ACTION", "TARGET", "OUTCOME", "DETAIL")
	for _, s := range sum.Steps {
		target := fmt.Sprintf("(%d,%d)", s.Action.X, s.Action.Y)
		detail := s.Reason
		if s.Result != nil {
			detail = fmt.Sprintf("hostiles=%d infra=%d value=%.2f", s.Result.HostilesHit, s.Result.InfraHit, s.Result.Value)
		}
		fmt.Printf("%-5d %-7s %-8s %-9s %s\n", s.Turn, s.Action.Type, target, s.Outcome, detail)
	}
	fmt.Printf("recons=%d strikes=%d rejected=%d strike_value=%.2f budget_left=%.2f\n",
		sum.Summary.Recons, sum.Summary.Strikes, sum.Summary.Rejected, sum.Summary.StrikeValue, sum.Summary.BudgetLeft)
	fmt.Printf("belief: %s (brier=%.4f log_loss=%.4f) version %s\n",
		sum.Eval.Reason, sum.Eval.Calibration.Brier, sum.Eval.Calibration.LogLoss, sum.VersionID)
	return nil
}

// #endregion output
