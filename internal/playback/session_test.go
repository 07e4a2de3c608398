package playback

import (
	"math"
	"testing"
)

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusLoaded, StatusPlaying, true},
		{StatusLoaded, StatusStopped, true},
		{StatusLoaded, StatusPaused, false},
		{StatusPlaying, StatusPaused, true},
		{StatusPlaying, StatusStopped, true},
		{StatusPlaying, StatusLoaded, false},
		{StatusPaused, StatusPlaying, true},
		{StatusPaused, StatusStopped, true},
		{StatusPaused, StatusLoaded, false},
		{StatusStopped, StatusPlaying, false},
		{StatusStopped, StatusLoaded, false},
		{Status("bogus"), StatusPlaying, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClampPosition(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{-0.001, 0},
		{1.001, 1},
		{math.NaN(), 0},
		{math.Inf(-1), 0},
		{math.Inf(1), 1},
	}
	for _, tt := range tests {
		if got := clampPosition(tt.in); got != tt.want {
			t.Errorf("clampPosition(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOffsetPositionRoundTrip(t *testing.T) {
	const size = 100000
	tests := []struct {
		position float64
		offset   int64
	}{
		{0, 0},
		{0.5, 50000},
		{0.08192, 8192},
		{1, size},
	}
	for _, tt := range tests {
		if got := offsetFor(tt.position, size); got != tt.offset {
			t.Errorf("offsetFor(%v) = %d, want %d", tt.position, got, tt.offset)
		}
		if got := positionFor(tt.offset, size); got != tt.position {
			t.Errorf("positionFor(%d) = %v, want %v", tt.offset, got, tt.position)
		}
	}

	if got := positionFor(10, 0); got != 0 {
		t.Errorf("positionFor on empty file = %v, want 0", got)
	}
	if got := positionFor(size+10, size); got != 1 {
		t.Errorf("positionFor past end = %v, want 1", got)
	}
}
