package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"timemachine/internal/buffer"
	"timemachine/internal/catalog"
)

// RecordingStore looks up complete recordings by id.
type RecordingStore interface {
	Lookup(ctx context.Context, id string) (catalog.Recording, error)
}

// Options configures a Controller. Zero values fall back to the defaults below.
type Options struct {
	Pacing            buffer.Config
	DefaultSampleRate int
	DefaultMode       string
	// Root resolves relative recording paths.
	Root string
	Fs   afero.Fs
	Sink Sink
	Log  zerolog.Logger
	Now  func() time.Time
}

const (
	DefaultChunkSize    = 8192
	DefaultTickInterval = 50 * time.Millisecond
	DefaultSampleRate   = 2048000
	DefaultMode         = "FM"
)

// Controller is the transport surface over the single playback session.
// One mutex serialises every operation with the paced read loop.
type Controller struct {
	store RecordingStore
	opts  Options
	log   zerolog.Logger

	mu      sync.Mutex
	session *Session
	reader  *sampleReader
	pacer   *buffer.Pacer
}

// NewController creates a controller with no session loaded.
func NewController(store RecordingStore, opts Options) *Controller {
	if opts.Pacing.ChunkSize <= 0 {
		opts.Pacing.ChunkSize = DefaultChunkSize
	}
	if opts.Pacing.Interval <= 0 {
		opts.Pacing.Interval = DefaultTickInterval
	}
	if opts.DefaultSampleRate <= 0 {
		opts.DefaultSampleRate = DefaultSampleRate
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = DefaultMode
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		store: store,
		opts:  opts,
		log:   opts.Log.With().Str("component", "playback").Logger(),
	}
}

// Load replaces any current session with a freshly loaded one for recordingID.
// On failure no session remains.
func (c *Controller) Load(ctx context.Context, recordingID string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.stopLocked(endReplaced)
	}

	rec, err := c.store.Lookup(ctx, recordingID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, recordingID)
		}
		return nil, err
	}
	if !rec.Complete() {
		return nil, fmt.Errorf("%w: %s is %s", ErrRecordingNotFound, recordingID, rec.Status)
	}

	path := rec.FilePath
	if !filepath.IsAbs(path) && c.opts.Root != "" {
		path = filepath.Join(c.opts.Root, path)
	}
	info, err := c.opts.Fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileUnavailable, path)
	}

	sampleRate := rec.SampleRate
	if sampleRate <= 0 {
		sampleRate = c.opts.DefaultSampleRate
	}
	mode := rec.Mode
	if mode == "" {
		mode = c.opts.DefaultMode
	}

	c.session = &Session{
		SessionID:      uuid.NewString(),
		RecordingID:    rec.ID,
		Status:         StatusLoaded,
		FilePath:       path,
		FileSizeBytes:  info.Size(),
		SampleRate:     sampleRate,
		Frequency:      rec.Frequency,
		Mode:           mode,
		DurationMs:     rec.DurationMs,
		BytesPerSecond: buffer.BytesPerSecond(sampleRate),
	}
	sessionsLoaded.Inc()
	transitionsTotal.WithLabelValues(string(StatusLoaded)).Inc()

	c.log.Info().
		Str("recording", rec.ID).
		Str("session", c.session.SessionID).
		Int64("size", info.Size()).
		Int("sample_rate", sampleRate).
		Msg("recording loaded")

	c.emitStateLocked()
	return c.snapshotLocked(), nil
}

// Play starts or resumes paced reading from the current position.
func (c *Controller) Play() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playLocked()
}

func (c *Controller) playLocked() (*Session, error) {
	s := c.session
	if s == nil {
		return nil, ErrNoSession
	}
	if s.Status == StatusPlaying {
		return c.snapshotLocked(), nil
	}
	if !s.Status.CanTransition(StatusPlaying) {
		return nil, ErrNoSession
	}

	// Offset is exact while Position is derived from it, so resume from the
	// offset to keep I/Q pairs aligned.
	offset := s.Offset
	r, err := openReader(c.opts.Fs, s.FilePath, s.FileSizeBytes, offset)
	if err != nil {
		c.log.Warn().Err(err).Str("session", s.SessionID).Msg("cannot open recording")
		return nil, err
	}
	c.reader = r
	openHandles.Inc()

	s.StartedAt = c.opts.Now()
	c.setStatusLocked(StatusPlaying)

	c.log.Debug().Str("session", s.SessionID).Int64("offset", offset).Msg("playing")

	c.pacer = buffer.Start(c.opts.Pacing.Interval, c.tick)
	return c.snapshotLocked(), nil
}

// Pause halts reading. It is a no-op unless the session is playing.
func (c *Controller) Pause() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return nil
	}
	if s.Status != StatusPlaying {
		return c.snapshotLocked()
	}

	c.haltLocked()
	s.PausedAt = c.opts.Now()
	c.setStatusLocked(StatusPaused)
	return c.snapshotLocked()
}

// Seek moves to position (clamped to [0,1]). A playing session restarts from
// the new offset; otherwise only the position changes.
func (c *Controller) Seek(position float64) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return nil
	}

	s.Position = clampPosition(position)
	s.Offset = offsetFor(s.Position, s.FileSizeBytes)

	if s.Status != StatusPlaying {
		c.emitStateLocked()
		return c.snapshotLocked()
	}

	c.haltLocked()
	s.PausedAt = c.opts.Now()
	c.setStatusLocked(StatusPaused)

	if _, err := c.playLocked(); err != nil {
		c.log.Warn().Err(err).Str("session", s.SessionID).Msg("seek restart failed, staying paused")
	}
	return c.snapshotLocked()
}

// Stop ends the session and returns its terminal snapshot.
func (c *Controller) Stop() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	return c.stopLocked(endStopped)
}

// Shutdown stops any session and waits for the last paced read loop to exit,
// so no chunk is emitted after it returns.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	p := c.pacer
	if c.session != nil {
		c.stopLocked(endStopped)
	}
	c.mu.Unlock()

	if p == nil {
		return nil
	}
	select {
	case <-p.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a copy of the current session, or nil when none is loaded.
func (c *Controller) State() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// tick is the paced read loop body. A tick whose pacer was superseded by a
// pause, seek or stop does nothing.
func (c *Controller) tick(p *buffer.Pacer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pacer != p {
		return false
	}
	return c.advanceLocked()
}

func (c *Controller) advanceLocked() bool {
	s := c.session
	if s == nil || s.Status != StatusPlaying || c.reader == nil {
		return false
	}

	samples, err := c.reader.next(c.opts.Pacing.ChunkFor(s.SampleRate))
	if len(samples) == 0 {
		reason := endEOF
		if err != nil && !errors.Is(err, io.EOF) {
			reason = endReadError
			c.log.Error().Err(err).Str("session", s.SessionID).Int64("offset", c.reader.offset).Msg("read failed")
		}
		c.stopLocked(reason)
		return false
	}

	s.Offset = c.reader.offset
	s.Position = positionFor(s.Offset, s.FileSizeBytes)

	chunksTotal.Inc()
	bytesTotal.Add(float64(len(samples)))

	c.opts.Sink.OnChunk(Chunk{
		SessionID:       s.SessionID,
		Samples:         samples,
		SampleRate:      s.SampleRate,
		CenterFrequency: s.Frequency,
		Timestamp:       c.opts.Now(),
		Position:        s.Position,
	})
	return true
}

// haltLocked cancels the pacer before releasing the file, so no tick can
// observe a closed reader.
func (c *Controller) haltLocked() {
	if c.pacer != nil {
		c.pacer.Cancel()
		c.pacer = nil
	}
	c.releaseLocked()
}

func (c *Controller) releaseLocked() {
	if c.reader == nil {
		return
	}
	if err := c.reader.close(); err != nil {
		c.log.Warn().Err(err).Msg("close recording")
	}
	c.reader = nil
	openHandles.Dec()
}

func (c *Controller) stopLocked(reason string) *Session {
	c.haltLocked()

	s := c.session
	c.setStatusLocked(StatusStopped)
	final := *s
	c.session = nil

	endedTotal.WithLabelValues(reason).Inc()
	c.log.Info().
		Str("session", s.SessionID).
		Str("reason", reason).
		Float64("position", s.Position).
		Msg("playback stopped")
	return &final
}

func (c *Controller) setStatusLocked(next Status) {
	c.session.Status = next
	transitionsTotal.WithLabelValues(string(next)).Inc()
	c.emitStateLocked()
}

func (c *Controller) emitStateLocked() {
	c.opts.Sink.OnState(*c.session)
}

func (c *Controller) snapshotLocked() *Session {
	if c.session == nil {
		return nil
	}
	snap := *c.session
	return &snap
}
