package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"timemachine/internal/catalog"
	"timemachine/internal/events"
	"timemachine/internal/playback"
)

// Transport is the playback surface the HTTP API drives.
type Transport interface {
	Load(ctx context.Context, recordingID string) (*playback.Session, error)
	Play() (*playback.Session, error)
	Pause() *playback.Session
	Seek(position float64) *playback.Session
	Stop() *playback.Session
	State() *playback.Session
}

// RecordingLister lists replayable recordings.
type RecordingLister interface {
	List(ctx context.Context) ([]catalog.Recording, error)
}

// API handles HTTP control endpoints.
type API struct {
	player     Transport
	recordings RecordingLister
	hub        *events.Hub
	log        zerolog.Logger
}

// NewAPI creates a new API handler.
func NewAPI(player Transport, recordings RecordingLister, hub *events.Hub, log zerolog.Logger) *API {
	return &API{
		player:     player,
		recordings: recordings,
		hub:        hub,
		log:        log.With().Str("component", "api").Logger(),
	}
}

func noSession(c *gin.Context) {
	c.JSON(http.StatusNotFound, PlaybackResponse{
		Status:  "not_found",
		Message: playback.ErrNoSession.Error(),
	})
}

func sessionOK(c *gin.Context, s *playback.Session) {
	c.JSON(http.StatusOK, PlaybackResponse{
		Status:  string(s.Status),
		Session: s,
	})
}

// errorStatus maps playback errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, playback.ErrRecordingNotFound), errors.Is(err, playback.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrFileUnavailable):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// Load loads a recording, replacing any current session.
func (a *API) Load(c *gin.Context) {
	var req LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, PlaybackResponse{
			Status:  "error",
			Message: "invalid request: " + err.Error(),
		})
		return
	}

	a.log.Info().Str("recording", req.RecordingID).Msg("load request")

	s, err := a.player.Load(c.Request.Context(), req.RecordingID)
	if err != nil {
		c.JSON(errorStatus(err), PlaybackResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}
	sessionOK(c, s)
}

// Play starts or resumes playback.
func (a *API) Play(c *gin.Context) {
	s, err := a.player.Play()
	if err != nil {
		c.JSON(errorStatus(err), PlaybackResponse{
			Status:  "error",
			Session: a.player.State(),
			Message: err.Error(),
		})
		return
	}
	sessionOK(c, s)
}

// Pause pauses playback.
func (a *API) Pause(c *gin.Context) {
	s := a.player.Pause()
	if s == nil {
		noSession(c)
		return
	}
	sessionOK(c, s)
}

// Seek moves the playback position.
func (a *API) Seek(c *gin.Context) {
	var req SeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, PlaybackResponse{
			Status:  "error",
			Message: "invalid request: " + err.Error(),
		})
		return
	}

	s := a.player.Seek(*req.Position)
	if s == nil {
		noSession(c)
		return
	}
	sessionOK(c, s)
}

// Stop ends the session and returns its final snapshot.
func (a *API) Stop(c *gin.Context) {
	s := a.player.Stop()
	if s == nil {
		noSession(c)
		return
	}
	sessionOK(c, s)
}

// State returns the current session.
func (a *API) State(c *gin.Context) {
	s := a.player.State()
	if s == nil {
		noSession(c)
		return
	}
	sessionOK(c, s)
}

// Events streams state snapshots as server-sent events, starting with the
// current one.
func (a *API) Events(c *gin.Context) {
	sub := a.hub.Subscribe(events.Filter{States: true}, 32)
	defer a.hub.Unsubscribe(sub)

	if s := a.player.State(); s != nil {
		c.SSEvent("state", s)
		c.Writer.Flush()
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			c.SSEvent("state", ev.State)
			c.Writer.Flush()
		}
	}
}

// Recordings lists replayable recordings from the catalog.
func (a *API) Recordings(c *gin.Context) {
	recs, err := a.recordings.List(c.Request.Context())
	if err != nil {
		a.log.Error().Err(err).Msg("list recordings")
		c.JSON(http.StatusInternalServerError, RecordingsResponse{
			Error: err.Error(),
		})
		return
	}
	if recs == nil {
		recs = []catalog.Recording{}
	}
	c.JSON(http.StatusOK, RecordingsResponse{
		Count:      len(recs),
		Recordings: recs,
	})
}
