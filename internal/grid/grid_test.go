package grid

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
)

func TestNewGridLayout(t *testing.T) {
	g := New(4, 3, 0.2, 0.05)
	if g.Size() != 12 {
		t.Fatalf("expected 12 cells, got %d", g.Size())
	}
	c, err := g.At(3, 2)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if c.X != 3 || c.Y != 2 {
		t.Fatalf("expected (3,2), got (%d,%d)", c.X, c.Y)
	}
	if c.Posterior != 0.2 || c.InfraPrior != 0.05 {
		t.Fatalf("unexpected probabilities %+v", c)
	}
}

func TestAtOutOfBounds(t *testing.T) {
	g := New(2, 2, 0.5, 0.1)
	for _, p := range []Point{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		_, err := g.At(p.X, p.Y)
		if !errors.Is(err, mathx.ErrOutOfBounds) {
			t.Fatalf("expected ErrOutOfBounds for %v, got %v", p, err)
		}
	}
}

func TestNewClampsProbabilities(t *testing.T) {
	g := New(1, 1, 0, 1)
	c := g.Cells[0]
	if c.Posterior <= 0 || c.InfraPrior >= 1 {
		t.Fatalf("probabilities should be strictly inside (0,1): %+v", c)
	}
}

func TestCloneIsDeep(t *testing.T) {
	g := New(2, 2, 0.5, 0.1)
	g.Cells[0].ReconHistory = []sensor.Reading{{Kind: sensor.Drone, Turn: 1}}

	c := g.Clone()
	c.Cells[0].Posterior = 0.9
	c.Cells[0].ReconHistory[0].Turn = 7
	c.Cells[0].ReconHistory = append(c.Cells[0].ReconHistory, sensor.Reading{Turn: 2})

	if g.Cells[0].Posterior != 0.5 {
		t.Fatal("clone posterior write leaked into original")
	}
	if g.Cells[0].ReconHistory[0].Turn != 1 || len(g.Cells[0].ReconHistory) != 1 {
		t.Fatal("clone history write leaked into original")
	}
}

func TestRecentRecons(t *testing.T) {
	c := Cell{ReconHistory: []sensor.Reading{{Turn: 1}, {Turn: 4}, {Turn: 5}}}
	if got := c.RecentRecons(5, 3); got != 2 {
		t.Fatalf("expected 2 recent recons, got %d", got)
	}
	if got := c.RecentRecons(10, 3); got != 0 {
		t.Fatalf("expected 0 recent recons, got %d", got)
	}
}

func TestValidate(t *testing.T) {
	g := New(3, 3, 0.5, 0.1)
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	g.Cells = g.Cells[:4]
	if err := g.Validate(); !errors.Is(err, mathx.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}
