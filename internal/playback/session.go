// Package playback replays captured I/Q recordings as a paced chunk stream
// with load/play/pause/seek/stop transport control.
package playback

import (
	"math"
	"time"
)

// Status is the transport state of a playback session.
type Status string

const (
	StatusLoaded  Status = "loaded"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
)

var transitions = map[Status][]Status{
	StatusLoaded:  {StatusPlaying, StatusStopped},
	StatusPlaying: {StatusPaused, StatusStopped},
	StatusPaused:  {StatusPlaying, StatusStopped},
	StatusStopped: nil,
}

// CanTransition reports whether the state machine allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Session is a snapshot of the single live playback session. Sinks and
// callers always receive copies; the controller owns the live value.
type Session struct {
	SessionID   string  `json:"session_id"`
	RecordingID string  `json:"recording_id"`
	Status      Status  `json:"status"`
	Position    float64 `json:"position"`
	Offset      int64   `json:"offset"`

	FilePath       string `json:"file_path"`
	FileSizeBytes  int64  `json:"file_size_bytes"`
	SampleRate     int    `json:"sample_rate"`
	Frequency      int64  `json:"frequency"`
	Mode           string `json:"mode"`
	DurationMs     int64  `json:"duration_ms"`
	BytesPerSecond int64  `json:"bytes_per_second"`

	// Diagnostics only; position is derived from the byte offset.
	StartedAt time.Time `json:"started_at,omitzero"`
	PausedAt  time.Time `json:"paused_at,omitzero"`
}

// clampPosition bounds an externally supplied fraction to [0,1].
func clampPosition(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// offsetFor maps a normalized position onto a byte offset.
func offsetFor(position float64, size int64) int64 {
	return int64(math.Floor(position * float64(size)))
}

// positionFor maps a byte offset back onto [0,1].
func positionFor(offset, size int64) float64 {
	if size <= 0 {
		return 0
	}
	return clampPosition(float64(offset) / float64(size))
}
