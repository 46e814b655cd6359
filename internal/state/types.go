package state

import (
	"errors"
	"time"
)

// ErrVersionNotFound is returned when a belief version ID has no row.
var ErrVersionNotFound = errors.New("belief version not found")

// #region belief-version
// BeliefVersion is a persisted snapshot of the posterior layer of a grid.
// Static priors and recon history are not stored; they are reproduced from
// the episode seed and the event log.
type BeliefVersion struct {
	VersionID   string
	ParentID    string
	EpisodeID   string
	Turn        int
	Width       int
	Height      int
	Posterior   []float64 // row-major, len Width*Height
	CreatedAt   time.Time
	MetricsJSON string
}

// #endregion belief-version
