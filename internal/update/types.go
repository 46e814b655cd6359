package update

// #region update-config
// UpdateConfig holds spatial diffusion parameters for the belief update.
type UpdateConfig struct {
	KernelRadius  int     `json:"kernel_radius" yaml:"kernel_radius"`   // neighbours within this Euclidean distance are touched
	Strength      float64 `json:"strength" yaml:"strength"`             // fraction of the log-odds delta passed to an adjacent cell
	DistanceDecay float64 `json:"distance_decay" yaml:"distance_decay"` // e-folding distance of the diffusion weight
}

// DefaultUpdateConfig returns a short-range, weak diffusion kernel.
func DefaultUpdateConfig() UpdateConfig {
	return UpdateConfig{
		KernelRadius:  2,
		Strength:      0.3,
		DistanceDecay: 1.0,
	}
}

// NoDiffusion disables neighbour propagation.
func NoDiffusion() UpdateConfig {
	return UpdateConfig{}
}

// #endregion update-config

// #region update-result
// UpdateResult records what a single observation did to the grid.
type UpdateResult struct {
	Prior            float64
	Posterior        float64
	LogOddsDelta     float64
	NeighborsTouched int
	MaxNeighborShift float64 // largest absolute probability change among neighbours
}

// #endregion update-result
