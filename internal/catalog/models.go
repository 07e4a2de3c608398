// Package catalog is the read-only view of captured recordings that the
// playback engine replays.
package catalog

import "time"

// Recording status values written by the capture path.
const (
	StatusRecording = "recording"
	StatusComplete  = "complete"
	StatusFailed    = "failed"
)

// Recording is one raw I/Q capture on disk.
type Recording struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Name       string    `json:"name"`
	FilePath   string    `gorm:"not null" json:"file_path"`
	SampleRate int       `json:"sample_rate"` // Hz, 0 when the capture did not record it
	Frequency  int64     `json:"frequency"`   // center frequency in Hz
	Mode       string    `gorm:"size:16" json:"mode"`
	DurationMs int64     `json:"duration_ms"`
	Status     string    `gorm:"size:16;index;not null" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Complete reports whether the capture finished and can be replayed.
func (r Recording) Complete() bool {
	return r.Status == StatusComplete
}
