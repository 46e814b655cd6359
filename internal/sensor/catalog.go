package sensor

// Modifier scales a sensor's TPR, FPR, and cost under one context category.
type Modifier struct {
	TPR  float64
	FPR  float64
	Cost float64
}

var unit = Modifier{TPR: 1, FPR: 1, Cost: 1}

// Spec is a catalog entry: base characteristics plus per-category modifier tables.
// Categories absent from a table leave the rates unchanged.
type Spec struct {
	Kind        Kind
	BaseTPR     float64
	BaseFPR     float64
	BaseCost    float64
	Terrain     map[Terrain]Modifier
	Lighting    map[Lighting]Modifier
	Weather     map[Weather]Modifier
	Concealment map[Concealment]Modifier
	Jamming     map[Jamming]Modifier
}

// #region catalog
var catalog = map[Kind]Spec{
	Drone: {
		Kind:     Drone,
		BaseTPR:  0.85,
		BaseFPR:  0.10,
		BaseCost: 2,
		Terrain: map[Terrain]Modifier{
			Forest:   {TPR: 0.75, FPR: 1.2, Cost: 1.0},
			Urban:    {TPR: 0.85, FPR: 1.3, Cost: 1.0},
			Mountain: {TPR: 0.9, FPR: 1.1, Cost: 1.5},
		},
		Lighting: map[Lighting]Modifier{
			Dusk:  {TPR: 0.9, FPR: 1.1, Cost: 1.0},
			Night: {TPR: 0.7, FPR: 1.4, Cost: 1.0},
		},
		Weather: map[Weather]Modifier{
			Rain:  {TPR: 0.85, FPR: 1.2, Cost: 1.0},
			Fog:   {TPR: 0.6, FPR: 1.5, Cost: 1.0},
			Storm: {TPR: 0.5, FPR: 1.6, Cost: 2.0},
		},
		Concealment: map[Concealment]Modifier{
			PartialConcealment: {TPR: 0.8, FPR: 1.0, Cost: 1.0},
			HeavyConcealment:   {TPR: 0.55, FPR: 1.0, Cost: 1.0},
		},
		Jamming: map[Jamming]Modifier{
			LightJamming: {TPR: 0.85, FPR: 1.3, Cost: 1.0},
			HeavyJamming: {TPR: 0.6, FPR: 1.8, Cost: 1.5},
		},
	},
	Satellite: {
		Kind:     Satellite,
		BaseTPR:  0.75,
		BaseFPR:  0.05,
		BaseCost: 3,
		Terrain: map[Terrain]Modifier{
			Forest: {TPR: 0.6, FPR: 1.1, Cost: 1.0},
			Urban:  {TPR: 0.8, FPR: 1.5, Cost: 1.0},
		},
		Lighting: map[Lighting]Modifier{
			Night: {TPR: 0.8, FPR: 1.2, Cost: 1.0},
		},
		Weather: map[Weather]Modifier{
			Rain:  {TPR: 0.8, FPR: 1.1, Cost: 1.0},
			Fog:   {TPR: 0.5, FPR: 1.3, Cost: 1.0},
			Storm: {TPR: 0.4, FPR: 1.5, Cost: 1.0},
		},
		Concealment: map[Concealment]Modifier{
			PartialConcealment: {TPR: 0.75, FPR: 1.0, Cost: 1.0},
			HeavyConcealment:   {TPR: 0.45, FPR: 1.0, Cost: 1.0},
		},
	},
	SIGINT: {
		Kind:     SIGINT,
		BaseTPR:  0.70,
		BaseFPR:  0.15,
		BaseCost: 1,
		Terrain: map[Terrain]Modifier{
			Urban:    {TPR: 1.1, FPR: 1.4, Cost: 1.0},
			Mountain: {TPR: 0.8, FPR: 0.9, Cost: 1.0},
		},
		Concealment: map[Concealment]Modifier{
			HeavyConcealment: {TPR: 0.9, FPR: 1.0, Cost: 1.0},
		},
		Jamming: map[Jamming]Modifier{
			LightJamming: {TPR: 0.6, FPR: 1.6, Cost: 1.0},
			HeavyJamming: {TPR: 0.3, FPR: 2.5, Cost: 2.0},
		},
	},
	Patrol: {
		Kind:     Patrol,
		BaseTPR:  0.90,
		BaseFPR:  0.08,
		BaseCost: 4,
		Terrain: map[Terrain]Modifier{
			Forest:   {TPR: 0.9, FPR: 1.1, Cost: 1.25},
			Urban:    {TPR: 0.95, FPR: 1.2, Cost: 1.25},
			Mountain: {TPR: 0.85, FPR: 1.0, Cost: 1.75},
		},
		Lighting: map[Lighting]Modifier{
			Night: {TPR: 0.75, FPR: 1.3, Cost: 1.25},
		},
		Weather: map[Weather]Modifier{
			Storm: {TPR: 0.8, FPR: 1.2, Cost: 1.5},
		},
		Concealment: map[Concealment]Modifier{
			PartialConcealment: {TPR: 0.9, FPR: 1.0, Cost: 1.0},
			HeavyConcealment:   {TPR: 0.7, FPR: 1.0, Cost: 1.0},
		},
	},
}

// #endregion catalog

// #region context-weights
// Context categories are sampled with these weights rather than uniformly,
// biasing toward common operating conditions.
var (
	terrainOptions = []Terrain{Open, Forest, Urban, Mountain}
	terrainWeights = []float64{0.35, 0.25, 0.25, 0.15}

	lightingOptions = []Lighting{Day, Dusk, Night}
	lightingWeights = []float64{0.55, 0.20, 0.25}

	weatherOptions = []Weather{Clear, Rain, Fog, Storm}
	weatherWeights = []float64{0.50, 0.20, 0.15, 0.15}

	concealmentOptions = []Concealment{NoConcealment, PartialConcealment, HeavyConcealment}
	concealmentWeights = []float64{0.50, 0.35, 0.15}

	jammingOptions = []Jamming{NoJamming, LightJamming, HeavyJamming}
	jammingWeights = []float64{0.70, 0.20, 0.10}
)

// #endregion context-weights

// Lookup returns the catalog entry for a kind.
func Lookup(kind Kind) (Spec, bool) {
	s, ok := catalog[kind]
	return s, ok
}

func pick[K comparable](table map[K]Modifier, key K) Modifier {
	if m, ok := table[key]; ok {
		return m
	}
	return unit
}
