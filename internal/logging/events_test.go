package logging

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/danielpatrickdp/recon-engine/internal/grid"
	"github.com/danielpatrickdp/recon-engine/internal/sensor"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"go.uber.org/zap/zapcore"
	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE event_log (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id     TEXT NOT NULL UNIQUE,
		episode_id   TEXT NOT NULL,
		turn         INTEGER NOT NULL,
		kind         TEXT NOT NULL,
		x            INTEGER NOT NULL,
		y            INTEGER NOT NULL,
		payload_json TEXT NOT NULL,
		created_at   TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-event-tests
func TestLogEvent_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := EventEntry{
		EventID:     "e1",
		EpisodeID:   "ep",
		Turn:        3,
		Kind:        KindSensorReading,
		X:           2,
		Y:           4,
		PayloadJSON: `{"positive":true}`,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogEvent(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, err := ListEvents(db, "ep")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("created_at: got %v, want %v", got.CreatedAt, entry.CreatedAt)
	}
	got.CreatedAt = entry.CreatedAt
	if got != entry {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, entry)
	}
}

func TestLogEvent_FillsDefaults(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC().Add(-time.Second)
	if err := LogEvent(db, EventEntry{EpisodeID: "ep", Kind: KindStrikeResult, PayloadJSON: "{}"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events, _ := ListEvents(db, "ep")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventID == "" {
		t.Error("expected generated event ID")
	}
	if events[0].CreatedAt.Before(before) {
		t.Errorf("expected recent timestamp, got %v", events[0].CreatedAt)
	}
}

func TestLogEvent_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogEvent(db, EventEntry{EpisodeID: "ep", Kind: KindSensorReading, PayloadJSON: "{}"}); err == nil {
		t.Fatal("expected error on closed db")
	}
	if _, err := ListEvents(db, "ep"); err == nil {
		t.Fatal("expected list error on closed db")
	}
}

func TestListEvents_FiltersEpisode(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	for i, ep := range []string{"a", "b", "a"} {
		if err := LogEvent(db, EventEntry{EpisodeID: ep, Turn: i, Kind: KindSensorReading, PayloadJSON: "{}"}); err != nil {
			t.Fatalf("LogEvent: %v", err)
		}
	}
	events, err := ListEvents(db, "a")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 || events[0].Turn != 0 || events[1].Turn != 2 {
		t.Fatalf("unexpected events: %+v", events)
	}
}

// #endregion log-event-tests

// #region builder-tests
func TestSensorEvent(t *testing.T) {
	r := sensor.Reading{Kind: sensor.Drone, Positive: true, Confidence: 0.8, TPR: 0.9, FPR: 0.1, Turn: 7}
	e, err := SensorEvent("ep", 1, 2, r)
	if err != nil {
		t.Fatalf("SensorEvent: %v", err)
	}
	if e.Kind != KindSensorReading || e.Turn != 7 || e.X != 1 || e.Y != 2 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	var back sensor.Reading
	if err := json.Unmarshal([]byte(e.PayloadJSON), &back); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if back.Kind != sensor.Drone || !back.Positive {
		t.Fatalf("payload lost fields: %+v", back)
	}
}

func TestStrikeEvent(t *testing.T) {
	res := strike.StrikeResult{Center: grid.Point{X: 3, Y: 1}, Radius: 1, HostilesHit: 2, Value: 17}
	e, err := StrikeEvent("ep", 4, res)
	if err != nil {
		t.Fatalf("StrikeEvent: %v", err)
	}
	if e.Kind != KindStrikeResult || e.X != 3 || e.Y != 1 || e.Turn != 4 {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

// #endregion builder-tests

// #region logger-tests
func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug enabled")
	}
	if _, err := NewLogger("chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := NewLogger(""); err != nil {
		t.Errorf("empty level: %v", err)
	}
}

// #endregion logger-tests
