package sensor

import "fmt"

// #region kinds
// Kind identifies a reconnaissance asset.
type Kind string

const (
	Drone     Kind = "drone"
	Satellite Kind = "satellite"
	SIGINT    Kind = "sigint"
	Patrol    Kind = "patrol"
)

// Kinds lists the catalog in a stable order.
func Kinds() []Kind {
	return []Kind{Drone, Satellite, SIGINT, Patrol}
}

// #endregion kinds

// #region context
type Terrain string

const (
	Open     Terrain = "open"
	Forest   Terrain = "forest"
	Urban    Terrain = "urban"
	Mountain Terrain = "mountain"
)

type Lighting string

const (
	Day   Lighting = "day"
	Dusk  Lighting = "dusk"
	Night Lighting = "night"
)

type Weather string

const (
	Clear Weather = "clear"
	Rain  Weather = "rain"
	Fog   Weather = "fog"
	Storm Weather = "storm"
)

type Concealment string

const (
	NoConcealment      Concealment = "none"
	PartialConcealment Concealment = "partial"
	HeavyConcealment   Concealment = "heavy"
)

type Jamming string

const (
	NoJamming    Jamming = "none"
	LightJamming Jamming = "light"
	HeavyJamming Jamming = "heavy"
)

// Context describes the operating conditions of a single observation.
type Context struct {
	Terrain     Terrain     `json:"terrain"`
	Lighting    Lighting    `json:"lighting"`
	Weather     Weather     `json:"weather"`
	Concealment Concealment `json:"concealment"`
	Jamming     Jamming     `json:"jamming"`
}

// NeutralContext is the clear-day, open-ground baseline.
func NeutralContext() Context {
	return Context{
		Terrain:     Open,
		Lighting:    Day,
		Weather:     Clear,
		Concealment: NoConcealment,
		Jamming:     NoJamming,
	}
}

// String renders a compact summary for event logs.
func (c Context) String() string {
	return fmt.Sprintf("%s/%s/%s/conceal=%s/jam=%s", c.Terrain, c.Lighting, c.Weather, c.Concealment, c.Jamming)
}

// #endregion context

// #region rates
// Rates are the context-adjusted sensor characteristics.
type Rates struct {
	Kind Kind    `json:"kind"`
	TPR  float64 `json:"tpr"`
	FPR  float64 `json:"fpr"`
	Cost int     `json:"cost"`
}

// #endregion rates

// #region reading
// Reading is one immutable sensor result. Turn is stamped by the caller.
type Reading struct {
	Kind       Kind    `json:"kind"`
	Positive   bool    `json:"positive"`
	Confidence float64 `json:"confidence"`
	TPR        float64 `json:"tpr"`
	FPR        float64 `json:"fpr"`
	Cost       int     `json:"cost"`
	Context    Context `json:"context"`
	Summary    string  `json:"summary"`
	Turn       int     `json:"turn"`
}

// #endregion reading
