package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/recon-engine/internal/config"
	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/logging"
	"github.com/danielpatrickdp/recon-engine/internal/policy"
	"github.com/danielpatrickdp/recon-engine/internal/replay"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
	"github.com/danielpatrickdp/recon-engine/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func simConfig() config.EngineConfig {
	c := config.Default()
	c.Seed = "sim-test"
	c.Grid = config.GridConfig{Width: 6, Height: 6}
	c.Risk.PolicySamples = 50
	c.Risk.Workers = 2
	c.VOI.Samples = 8
	// default pricing makes every policy wait on a fresh 6x6 belief
	c.Strike.Reward = 40
	return c
}

func TestRunSimulationRecordsEveryTurn(t *testing.T) {
	store, err := state.NewStore(filepath.Join(t.TempDir(), "sim.db"))
	require.NoError(t, err)
	defer store.Close()

	sum, err := runSimulation(context.Background(), simConfig(), store, 8, policy.KindGreedyEV, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotEmpty(t, sum.Steps, "advisor should act under a positive reward")
	require.LessOrEqual(t, len(sum.Steps), 8)

	versions, err := store.ListVersions(sum.EpisodeID, 100)
	require.NoError(t, err)
	require.Len(t, versions, len(sum.Steps)+1, "initial belief plus one version per turn")
	assert.Equal(t, sum.VersionID, versions[0].VersionID)
	assert.Equal(t, 0, versions[len(versions)-1].Turn)
	for i, s := range sum.Steps {
		assert.Equal(t, i+1, s.Turn)
		// newest first
		assert.Equal(t, s.Turn, versions[len(sum.Steps)-1-i].Turn)
	}

	cur, err := store.GetCurrent()
	require.NoError(t, err)
	assert.Equal(t, sum.VersionID, cur.VersionID)

	events, err := logging.ListEvents(store.DB(), sum.EpisodeID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, sum.Summary.Recons+sum.Summary.Strikes, len(events))
	var acted []int
	for _, s := range sum.Steps {
		if s.Outcome != replay.OutcomeRejected {
			acted = append(acted, s.Turn)
		}
	}
	require.Len(t, events, len(acted))
	for i, e := range events {
		assert.Equal(t, acted[i], e.Turn)
	}
}

func TestChoosePrefersRecon(t *testing.T) {
	advice := policy.Advice{
		GreedyEV: policy.GreedyEV{Decision: policy.Decision{Action: policy.ActionStrike, Target: grid.Point{X: 1, Y: 1}}},
		ReconVOI: policy.ReconVOI{Decision: policy.Decision{Action: policy.ActionRecon, Target: grid.Point{X: 2, Y: 3}}, Sensor: sensor.Drone},
	}
	a, rec, ok := choose(advice, policy.KindGreedyEV)
	require.True(t, ok)
	assert.Equal(t, replay.Action{Type: replay.ActionRecon, X: 2, Y: 3, Sensor: sensor.Drone}, a)
	assert.Equal(t, policy.KindReconVOI, rec.Policy())

	advice.ReconVOI.Action = policy.ActionWait
	a, rec, ok = choose(advice, policy.KindGreedyEV)
	require.True(t, ok)
	assert.Equal(t, replay.ActionStrike, a.Type)
	assert.Equal(t, policy.KindGreedyEV, rec.Policy())

	_, _, ok = choose(advice, policy.KindRiskAverse)
	assert.False(t, ok, "risk-averse recommendation is wait")
}
