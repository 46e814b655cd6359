package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/recon-engine/internal/sensor"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"github.com/google/uuid"
)

// #region log-event
// LogEvent writes one entry to event_log. Missing IDs and timestamps are
// filled in.
func LogEvent(db *sql.DB, entry EventEntry) error {
	if entry.EventID == "" {
		entry.EventID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO event_log (event_id, episode_id, turn, kind, x, y, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EventID,
		entry.EpisodeID,
		entry.Turn,
		entry.Kind,
		entry.X,
		entry.Y,
		entry.PayloadJSON,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// #endregion log-event

// #region builders
// SensorEvent wraps a reading taken at (x, y).
func SensorEvent(episodeID string, x, y int, r sensor.Reading) (EventEntry, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return EventEntry{}, fmt.Errorf("marshal reading: %w", err)
	}
	return EventEntry{
		EpisodeID:   episodeID,
		Turn:        r.Turn,
		Kind:        KindSensorReading,
		X:           x,
		Y:           y,
		PayloadJSON: string(payload),
	}, nil
}

// StrikeEvent wraps a resolved strike.
func StrikeEvent(episodeID string, turn int, res strike.StrikeResult) (EventEntry, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return EventEntry{}, fmt.Errorf("marshal strike: %w", err)
	}
	return EventEntry{
		EpisodeID:   episodeID,
		Turn:        turn,
		Kind:        KindStrikeResult,
		X:           res.Center.X,
		Y:           res.Center.Y,
		PayloadJSON: string(payload),
	}, nil
}

// #endregion builders

// #region list-events
// ListEvents returns an episode's events in insertion order.
func ListEvents(db *sql.DB, episodeID string) ([]EventEntry, error) {
	rows, err := db.Query(
		`SELECT event_id, episode_id, turn, kind, x, y, payload_json, created_at
		 FROM event_log WHERE episode_id = ? ORDER BY id`, episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []EventEntry
	for rows.Next() {
		var e EventEntry
		var created string
		if err := rows.Scan(&e.EventID, &e.EpisodeID, &e.Turn, &e.Kind, &e.X, &e.Y, &e.PayloadJSON, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-events
