// Package buffer paces raw sample delivery on a fixed wall-clock cadence.
package buffer

import (
	"sync"
	"time"
)

// BytesPerComplexSample is the size of one interleaved 8-bit I/Q pair.
const BytesPerComplexSample = 2

// maxChunk bounds a single read in realtime mode so one tick can never
// stall on a multi-megabyte read.
const maxChunk = 4 << 20

type Config struct {
	ChunkSize int
	Interval  time.Duration
	// Realtime sizes each chunk from the sample rate instead of using ChunkSize,
	// so one second of wall clock carries one second of samples.
	Realtime bool
}

// BytesPerSecond is the theoretical byte rate of a recording at sampleRate.
func BytesPerSecond(sampleRate int) int64 {
	if sampleRate <= 0 {
		return 0
	}
	return int64(sampleRate) * BytesPerComplexSample
}

// ChunkFor returns how many bytes one tick should read.
func (c Config) ChunkFor(sampleRate int) int {
	if !c.Realtime || c.Interval <= 0 {
		return c.ChunkSize
	}
	bytes := int64(float64(BytesPerSecond(sampleRate)) * c.Interval.Seconds())
	bytes -= bytes % BytesPerComplexSample
	if bytes < BytesPerComplexSample {
		return c.ChunkSize
	}
	if bytes > maxChunk {
		return maxChunk
	}
	return int(bytes)
}

// Pacer runs a tick function on a fixed interval until cancelled or until the
// tick reports that it is done. Only one tick runs at a time.
type Pacer struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Start launches a pacer. tick receives the pacer that fired it so callers can
// recognise a superseded pacer and return false.
func Start(interval time.Duration, tick func(p *Pacer) bool) *Pacer {
	p := &Pacer{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(p.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				select {
				case <-p.stop:
					return
				default:
				}
				if !tick(p) {
					return
				}
			}
		}
	}()

	return p
}

// Cancel stops future ticks. It does not wait for an in-flight tick; callers
// that hold the lock a tick needs must rely on the tick detecting supersession.
func (p *Pacer) Cancel() {
	p.once.Do(func() { close(p.stop) })
}

// Done is closed once the pacer goroutine has exited.
func (p *Pacer) Done() <-chan struct{} {
	return p.done
}
