package state

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS belief_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	episode_id    TEXT NOT NULL,
	turn          INTEGER NOT NULL,
	width         INTEGER NOT NULL,
	height        INTEGER NOT NULL,
	posterior     BLOB NOT NULL,
	created_at    TEXT NOT NULL,
	metrics_json  TEXT,
	FOREIGN KEY (parent_id) REFERENCES belief_versions(version_id)
);

CREATE TABLE IF NOT EXISTS event_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id      TEXT NOT NULL UNIQUE,
	episode_id    TEXT NOT NULL,
	turn          INTEGER NOT NULL,
	kind          TEXT NOT NULL,
	x             INTEGER NOT NULL,
	y             INTEGER NOT NULL,
	payload_json  TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_belief (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES belief_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store manages versioned belief grids in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the event log writer.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region create-initial
// CreateInitial records the turn-0 belief of an episode and makes it active.
func (s *Store) CreateInitial(episodeID string, g *grid.Grid) (BeliefVersion, error) {
	rec := Snapshot(g, "", episodeID, 0)
	if err := s.Commit(rec); err != nil {
		return BeliefVersion{}, fmt.Errorf("create initial: %w", err)
	}
	return rec, nil
}

// Snapshot captures g's posteriors as a new, uncommitted version.
func Snapshot(g *grid.Grid, parentID, episodeID string, turn int) BeliefVersion {
	return BeliefVersion{
		VersionID: uuid.New().String(),
		ParentID:  parentID,
		EpisodeID: episodeID,
		Turn:      turn,
		Width:     g.Width,
		Height:    g.Height,
		Posterior: g.Posteriors(),
		CreatedAt: time.Now().UTC(),
	}
}

// Restore writes the version's posteriors into g, which must have the same
// dimensions.
func (v BeliefVersion) Restore(g *grid.Grid) error {
	if g.Width != v.Width || g.Height != v.Height || len(v.Posterior) != len(g.Cells) {
		return fmt.Errorf("restore %dx%d into %dx%d: %w", v.Width, v.Height, g.Width, g.Height, mathx.ErrInvalidParameter)
	}
	for i := range g.Cells {
		g.Cells[i].Posterior = v.Posterior[i]
	}
	return nil
}

// #endregion create-initial

// #region get-current
// GetCurrent reads the active belief version.
func (s *Store) GetCurrent() (BeliefVersion, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_belief WHERE id = 1`).Scan(&versionID)
	if err != nil {
		return BeliefVersion{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// #endregion get-current

// #region get-version
const selectVersion = `SELECT version_id, parent_id, episode_id, turn, width, height, posterior, created_at, metrics_json
	FROM belief_versions`

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (BeliefVersion, error) {
	var rec BeliefVersion
	var parentID, metricsJSON sql.NullString
	var blob []byte
	var createdStr string
	if err := row.Scan(&rec.VersionID, &parentID, &rec.EpisodeID, &rec.Turn, &rec.Width, &rec.Height,
		&blob, &createdStr, &metricsJSON); err != nil {
		return BeliefVersion{}, err
	}
	rec.ParentID = parentID.String
	rec.MetricsJSON = metricsJSON.String
	posterior, err := decodeFloats(blob, rec.Width*rec.Height)
	if err != nil {
		return BeliefVersion{}, fmt.Errorf("decode %s: %w", rec.VersionID, err)
	}
	rec.Posterior = posterior
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// GetVersion retrieves a specific belief version by ID.
func (s *Store) GetVersion(id string) (BeliefVersion, error) {
	rec, err := scanVersion(s.db.QueryRow(selectVersion+` WHERE version_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return BeliefVersion{}, fmt.Errorf("get version %s: %w", id, ErrVersionNotFound)
	}
	if err != nil {
		return BeliefVersion{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get-version

// #region commit
// Commit inserts a version and points the active pointer at it atomically.
func (s *Store) Commit(rec BeliefVersion) error {
	if len(rec.Posterior) != rec.Width*rec.Height {
		return fmt.Errorf("commit %s: %d values for %dx%d: %w",
			rec.VersionID, len(rec.Posterior), rec.Width, rec.Height, mathx.ErrInvalidParameter)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr, metricsPtr any
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}
	if rec.MetricsJSON != "" {
		metricsPtr = rec.MetricsJSON
	}

	_, err = tx.Exec(
		`INSERT INTO belief_versions (version_id, parent_id, episode_id, turn, width, height, posterior, created_at, metrics_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, parentPtr, rec.EpisodeID, rec.Turn, rec.Width, rec.Height,
		encodeFloats(rec.Posterior), rec.CreatedAt.Format(time.RFC3339Nano), metricsPtr,
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_belief (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		rec.VersionID,
	)
	if err != nil {
		return fmt.Errorf("update active: %w", err)
	}
	return tx.Commit()
}

// CommitGrid snapshots g as a child of parentID, attaches metrics and commits.
func (s *Store) CommitGrid(g *grid.Grid, parentID, episodeID string, turn int, metrics any) (BeliefVersion, error) {
	rec := Snapshot(g, parentID, episodeID, turn)
	if metrics != nil {
		b, err := json.Marshal(metrics)
		if err != nil {
			return BeliefVersion{}, fmt.Errorf("marshal metrics: %w", err)
		}
		rec.MetricsJSON = string(b)
	}
	if err := s.Commit(rec); err != nil {
		return BeliefVersion{}, err
	}
	return rec, nil
}

// #endregion commit

// #region rollback
// Rollback sets the active pointer to a previous version.
func (s *Store) Rollback(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM belief_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("rollback to %s: %w", targetVersionID, ErrVersionNotFound)
	}

	_, err = s.db.Exec(`UPDATE active_belief SET version_id = ? WHERE id = 1`, targetVersionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListVersions returns the most recent belief versions, newest first.
// An empty episodeID lists every episode.
func (s *Store) ListVersions(episodeID string, limit int) ([]BeliefVersion, error) {
	q := selectVersion
	args := []any{}
	if episodeID != "" {
		q += ` WHERE episode_id = ?`
		args = append(args, episodeID)
	}
	q += ` ORDER BY rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []BeliefVersion
	for rows.Next() {
		rec, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions

// #region float-encoding
func encodeFloats(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeFloats(b []byte, n int) ([]float64, error) {
	if len(b) != n*8 {
		return nil, fmt.Errorf("blob has %d bytes, want %d: %w", len(b), n*8, mathx.ErrInvalidParameter)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out, nil
}

// #endregion float-encoding
