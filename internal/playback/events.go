package playback

import "time"

// Chunk is one tick's worth of raw samples.
type Chunk struct {
	SessionID       string    `json:"session_id"`
	Samples         []byte    `json:"-"`
	SampleRate      int       `json:"sample_rate"`
	CenterFrequency int64     `json:"center_frequency"`
	Timestamp       time.Time `json:"timestamp"`
	Position        float64   `json:"position"`
}

// Sink receives playback notifications. Calls are made while the controller
// holds its lock, in the order the operations happened, so implementations
// must return quickly and must not call back into the controller.
type Sink interface {
	// OnState receives the full session snapshot after every transition and seek.
	OnState(s Session)
	// OnChunk receives each chunk read while playing. The sample slice is not reused.
	OnChunk(c Chunk)
}

type nopSink struct{}

func (nopSink) OnState(Session) {}
func (nopSink) OnChunk(Chunk)   {}
