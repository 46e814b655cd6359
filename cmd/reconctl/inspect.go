package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/danielpatrickdp/recon-engine/internal/heatmap"
	"github.com/danielpatrickdp/recon-engine/internal/logging"
	"github.com/danielpatrickdp/recon-engine/internal/state"
	"github.com/spf13/cobra"
)

var (
	inspectDBPath  string
	inspectEpisode string
	inspectLast    int
	inspectVersion string
	inspectJSON    bool

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "List stored belief versions, or show one version with its events",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := inspectDBPath
			if path == "" {
				path = engineConfig.Store.Path
			}
			store, err := state.NewStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			if inspectVersion != "" {
				return runDetailMode(store, inspectVersion, inspectJSON)
			}
			return runListMode(store, inspectEpisode, inspectLast, inspectJSON)
		},
	}
)

func init() {
	inspectCmd.Flags().StringVar(&inspectDBPath, "db", "", "SQLite path (defaults to store.path)")
	inspectCmd.Flags().StringVar(&inspectEpisode, "episode", "", "only list this episode")
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent versions")
	inspectCmd.Flags().StringVar(&inspectVersion, "version", "", "show single version detail")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of table")
}

// #region list-mode

type listRow struct {
	VersionID     string  `json:"version_id"`
	EpisodeID     string  `json:"episode_id"`
	Turn          int     `json:"turn"`
	MeanPosterior float64 `json:"mean_posterior"`
	MaxPosterior  float64 `json:"max_posterior"`
	CreatedAt     string  `json:"created_at"`
	Metrics       string  `json:"metrics,omitempty"`
}

func runListMode(store *state.Store, episode string, last int, jsonOut bool) error {
	versions, err := store.ListVersions(episode, last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no versions found")
		return nil
	}

	rows := make([]listRow, len(versions))
	for i, v := range versions {
		mean, peak := posteriorStats(v.Posterior)
		rows[i] = listRow{
			VersionID:     v.VersionID,
			EpisodeID:     v.EpisodeID,
			Turn:          v.Turn,
			MeanPosterior: mean,
			MaxPosterior:  peak,
			CreatedAt:     v.CreatedAt.Format("2006-01-02 15:04:05"),
			Metrics:       v.MetricsJSON,
		}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Printf("%-36s  %-36s  %4s  %6s  %6s  %s\n", "VERSION", "EPISODE", "TURN", "MEAN", "MAX", "CREATED")
	for _, r := range rows {
		fmt.Printf("%-36s  %-36s  %4d  %6.4f  %6.4f  %s\n",
			r.VersionID, r.EpisodeID, r.Turn, r.MeanPosterior, r.MaxPosterior, r.CreatedAt)
	}
	return nil
}

func posteriorStats(p []float64) (mean, peak float64) {
	if len(p) == 0 {
		return 0, 0
	}
	for _, v := range p {
		mean += v
		peak = math.Max(peak, v)
	}
	return mean / float64(len(p)), peak
}

// #endregion list-mode

// #region detail-mode

type detailView struct {
	state.BeliefVersion
	Events []logging.EventEntry `json:"events"`
}

func runDetailMode(store *state.Store, versionID string, jsonOut bool) error {
	v, err := store.GetVersion(versionID)
	if err != nil {
		return err
	}
	events, err := logging.ListEvents(store.DB(), v.EpisodeID)
	if err != nil {
		return err
	}
	// events up to and including this version's turn
	n := 0
	for n < len(events) && events[n].Turn <= v.Turn {
		n++
	}
	events = events[:n]

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detailView{BeliefVersion: v, Events: events})
	}

	fmt.Printf("version %s (parent %s)\n", v.VersionID, orDash(v.ParentID))
	fmt.Printf("episode %s turn %d, %dx%d, created %s\n",
		v.EpisodeID, v.Turn, v.Width, v.Height, v.CreatedAt.Format("2006-01-02 15:04:05"))
	if v.MetricsJSON != "" {
		fmt.Printf("metrics %s\n", v.MetricsJSON)
	}

	layer := heatmap.Layer{Name: heatmap.LayerPosterior, Width: v.Width, Height: v.Height, Values: v.Posterior}
	fmt.Println("posterior:")
	for y := 0; y < v.Height; y++ {
		for x := 0; x < v.Width; x++ {
			fmt.Printf(" %4.2f", layer.At(x, y))
		}
		fmt.Println()
	}

	fmt.Printf("events (%d):\n", len(events))
	for _, e := range events {
		fmt.Printf("  turn %-3d %-14s (%d,%d) %s\n", e.Turn, e.Kind, e.X, e.Y, e.PayloadJSON)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion detail-mode
