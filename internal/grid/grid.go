package grid

import (
	"fmt"

	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
)

// #region point
// Point is a cell coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// #endregion point

// #region cell
// Cell is one square of the belief grid.
//
// Posterior is the only field inference mutates. HostilePrior is the static
// latent field value kept for analytics. InfraPrior is the static
// infrastructure base rate. ReconHistory is append-only.
type Cell struct {
	X            int              `json:"x"`
	Y            int              `json:"y"`
	Posterior    float64          `json:"posterior"`
	HostilePrior float64          `json:"hostile_prior"`
	InfraPrior   float64          `json:"infra_prior"`
	ReconHistory []sensor.Reading `json:"recon_history,omitempty"`
}

// RecentRecons counts readings stamped after turn-window.
func (c *Cell) RecentRecons(turn, window int) int {
	n := 0
	for _, r := range c.ReconHistory {
		if r.Turn > turn-window {
			n++
		}
	}
	return n
}

// #endregion cell

// #region grid
// Grid is a fixed-size, row-major array of cells.
type Grid struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cells  []Cell `json:"cells"`
}

// New builds a grid with every posterior set to prior and every infra prior set to infra.
func New(width, height int, prior, infra float64) *Grid {
	g := &Grid{Width: width, Height: height, Cells: make([]Cell, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.Cells[y*width+x] = Cell{
				X:            x,
				Y:            y,
				Posterior:    mathx.ClampProb(prior),
				HostilePrior: mathx.ClampProb(prior),
				InfraPrior:   mathx.ClampProb(infra),
			}
		}
	}
	return g
}

// InBounds reports whether (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Index converts a coordinate to a row-major offset. Callers check InBounds first.
func (g *Grid) Index(x, y int) int {
	return y*g.Width + x
}

// At returns the cell at (x, y) or ErrOutOfBounds.
func (g *Grid) At(x, y int) (*Cell, error) {
	if !g.InBounds(x, y) {
		return nil, fmt.Errorf("cell (%d,%d) on %dx%d grid: %w", x, y, g.Width, g.Height, mathx.ErrOutOfBounds)
	}
	return &g.Cells[g.Index(x, y)], nil
}

// Size returns the number of cells.
func (g *Grid) Size() int {
	return len(g.Cells)
}

// Clone returns a deep copy, including each cell's recon history.
func (g *Grid) Clone() *Grid {
	out := &Grid{Width: g.Width, Height: g.Height, Cells: make([]Cell, len(g.Cells))}
	copy(out.Cells, g.Cells)
	for i := range out.Cells {
		if h := g.Cells[i].ReconHistory; h != nil {
			out.Cells[i].ReconHistory = append([]sensor.Reading(nil), h...)
		}
	}
	return out
}

// Posteriors returns a row-major copy of every cell's posterior.
func (g *Grid) Posteriors() []float64 {
	out := make([]float64, len(g.Cells))
	for i := range g.Cells {
		out[i] = g.Cells[i].Posterior
	}
	return out
}

// InfraPriors returns a row-major copy of every cell's infrastructure prior.
func (g *Grid) InfraPriors() []float64 {
	out := make([]float64, len(g.Cells))
	for i := range g.Cells {
		out[i] = g.Cells[i].InfraPrior
	}
	return out
}

// Validate checks structural consistency of a snapshot received from outside.
func (g *Grid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("grid %dx%d: %w", g.Width, g.Height, mathx.ErrInvalidParameter)
	}
	if len(g.Cells) != g.Width*g.Height {
		return fmt.Errorf("grid %dx%d has %d cells: %w", g.Width, g.Height, len(g.Cells), mathx.ErrInvalidParameter)
	}
	return nil
}

// #endregion grid
