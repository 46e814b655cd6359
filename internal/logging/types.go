package logging

import "time"

// Event kinds recorded in event_log.
const (
	KindSensorReading = "sensor_reading"
	KindStrikeResult  = "strike_result"
)

// #region event-entry
// EventEntry is a single row in the event_log table. PayloadJSON holds the
// full SensorReading or StrikeResult.
type EventEntry struct {
	EventID     string
	EpisodeID   string
	Turn        int
	Kind        string
	X           int
	Y           int
	PayloadJSON string
	CreatedAt   time.Time
}

// #endregion event-entry
