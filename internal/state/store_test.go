package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	_ "modernc.org/sqlite"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleGrid() *grid.Grid {
	g := grid.New(3, 2, 0.2, 0.05)
	g.Cells[g.Index(1, 1)].Posterior = 0.8125
	return g
}

func TestCreateInitialAndGetCurrent(t *testing.T) {
	s := tempDB(t)
	g := sampleGrid()

	rec, err := s.CreateInitial("ep-1", g)
	if err != nil {
		t.Fatalf("CreateInitial: %v", err)
	}
	if rec.VersionID == "" {
		t.Fatal("expected non-empty version ID")
	}
	if rec.ParentID != "" {
		t.Fatalf("expected empty parent, got %s", rec.ParentID)
	}

	cur, err := s.GetCurrent()
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if cur.VersionID != rec.VersionID {
		t.Fatalf("expected %s, got %s", rec.VersionID, cur.VersionID)
	}
	if cur.Width != 3 || cur.Height != 2 || cur.EpisodeID != "ep-1" {
		t.Fatalf("unexpected header: %+v", cur)
	}
	for i, p := range g.Posteriors() {
		if cur.Posterior[i] != p {
			t.Fatalf("posterior[%d]: expected %v, got %v", i, p, cur.Posterior[i])
		}
	}
}

func TestCommitGridAndRollback(t *testing.T) {
	s := tempDB(t)
	g := sampleGrid()
	v1, err := s.CreateInitial("ep", g)
	if err != nil {
		t.Fatalf("CreateInitial: %v", err)
	}

	g.Cells[0].Posterior = 0.6
	v2, err := s.CommitGrid(g, v1.VersionID, "ep", 1, map[string]float64{"brier": 0.12})
	if err != nil {
		t.Fatalf("CommitGrid: %v", err)
	}
	if v2.ParentID != v1.VersionID {
		t.Fatalf("expected parent %s, got %s", v1.VersionID, v2.ParentID)
	}

	cur, _ := s.GetCurrent()
	if cur.VersionID != v2.VersionID {
		t.Fatalf("expected active %s, got %s", v2.VersionID, cur.VersionID)
	}
	if cur.Posterior[0] != 0.6 {
		t.Fatalf("expected 0.6, got %v", cur.Posterior[0])
	}
	if !strings.Contains(cur.MetricsJSON, `"brier":0.12`) {
		t.Fatalf("metrics not stored: %q", cur.MetricsJSON)
	}

	if err := s.Rollback(v1.VersionID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	cur, _ = s.GetCurrent()
	if cur.VersionID != v1.VersionID {
		t.Fatalf("expected rollback to %s, got %s", v1.VersionID, cur.VersionID)
	}
	if cur.Posterior[0] != 0.2 {
		t.Fatalf("expected original posterior 0.2, got %v", cur.Posterior[0])
	}
}

func TestRollbackNonExistent(t *testing.T) {
	s := tempDB(t)
	if _, err := s.CreateInitial("ep", sampleGrid()); err != nil {
		t.Fatalf("CreateInitial: %v", err)
	}
	err := s.Rollback("nope")
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestGetVersionNotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetVersion("missing")
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestGetCurrentNoActiveState(t *testing.T) {
	s := tempDB(t)
	if _, err := s.GetCurrent(); err == nil {
		t.Fatal("expected error with no active belief")
	}
}

func TestListVersionsNewestFirst(t *testing.T) {
	s := tempDB(t)
	g := sampleGrid()
	v, err := s.CreateInitial("a", g)
	if err != nil {
		t.Fatalf("CreateInitial: %v", err)
	}
	parent := v.VersionID
	for turn := 1; turn <= 3; turn++ {
		next, err := s.CommitGrid(g, parent, "a", turn, nil)
		if err != nil {
			t.Fatalf("CommitGrid turn %d: %v", turn, err)
		}
		parent = next.VersionID
	}
	if _, err := s.CreateInitial("b", g); err != nil {
		t.Fatalf("CreateInitial b: %v", err)
	}

	all, err := s.ListVersions("", 10)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 versions, got %d", len(all))
	}
	if all[0].EpisodeID != "b" {
		t.Fatalf("expected newest first, got episode %s", all[0].EpisodeID)
	}

	a, err := s.ListVersions("a", 2)
	if err != nil {
		t.Fatalf("ListVersions a: %v", err)
	}
	if len(a) != 2 || a[0].Turn != 3 || a[1].Turn != 2 {
		t.Fatalf("unexpected episode listing: %+v", a)
	}
}

func TestCommitRejectsShortPosterior(t *testing.T) {
	s := tempDB(t)
	rec := Snapshot(sampleGrid(), "", "ep", 0)
	rec.Posterior = rec.Posterior[:2]
	if err := s.Commit(rec); !errors.Is(err, mathx.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestRestore(t *testing.T) {
	g := sampleGrid()
	v := Snapshot(g, "", "ep", 0)

	other := grid.New(3, 2, 0.5, 0.05)
	if err := v.Restore(other); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if other.Cells[other.Index(1, 1)].Posterior != 0.8125 {
		t.Fatalf("restore did not copy posteriors")
	}
	if err := v.Restore(grid.New(2, 2, 0.5, 0.05)); !errors.Is(err, mathx.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestFloatsRoundTrip(t *testing.T) {
	in := []float64{0, 1e-6, 0.5, 0.999999, -3.25}
	out, err := decodeFloats(encodeFloats(in), len(in))
	if err != nil {
		t.Fatalf("decodeFloats: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: %v != %v", i, in[i], out[i])
		}
	}
	if _, err := decodeFloats([]byte{1, 2, 3}, 1); err == nil {
		t.Fatal("expected length error")
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore("/nonexistent/dir/test.db")
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestNewStoreCorruptDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.db")
	if err := os.WriteFile(path, []byte("not a sqlite database at all, just junk bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewStore(path); err == nil {
		t.Fatal("expected error for corrupt db")
	}
}

func TestOperationsOnClosedDB(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "closed.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Close()

	if _, err := s.CreateInitial("ep", sampleGrid()); err == nil {
		t.Fatal("expected CreateInitial error on closed db")
	}
	if _, err := s.GetCurrent(); err == nil {
		t.Fatal("expected GetCurrent error on closed db")
	}
	if err := s.Rollback("x"); err == nil {
		t.Fatal("expected Rollback error on closed db")
	}
	if _, err := s.ListVersions("", 5); err == nil {
		t.Fatal("expected ListVersions error on closed db")
	}
}
