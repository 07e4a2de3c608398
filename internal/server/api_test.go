package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"timemachine/internal/buffer"
	"timemachine/internal/catalog"
	"timemachine/internal/events"
	"timemachine/internal/playback"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memCatalog struct {
	recs    []catalog.Recording
	listErr error
}

func (m *memCatalog) Lookup(_ context.Context, id string) (catalog.Recording, error) {
	for _, r := range m.recs {
		if r.ID == id && r.Complete() {
			return r, nil
		}
	}
	return catalog.Recording{}, catalog.ErrNotFound
}

func (m *memCatalog) List(context.Context) ([]catalog.Recording, error) {
	return m.recs, m.listErr
}

type testEnv struct {
	router  *gin.Engine
	ctrl    *playback.Controller
	hub     *events.Hub
	fs      afero.Fs
	catalog *memCatalog
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/rec/rec-1.iq", make([]byte, 100000), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}

	cat := &memCatalog{recs: []catalog.Recording{
		{ID: "rec-1", FilePath: "/rec/rec-1.iq", SampleRate: 2048000, Frequency: 162400000, Status: catalog.StatusComplete},
		{ID: "gone", FilePath: "/rec/gone.iq", Status: catalog.StatusComplete},
	}}
	hub := events.NewHub()
	ctrl := playback.NewController(cat, playback.Options{
		Pacing: buffer.Config{ChunkSize: 8192, Interval: time.Hour},
		Fs:     fs,
		Sink:   hub,
		Log:    zerolog.Nop(),
	})
	t.Cleanup(func() { ctrl.Stop() })

	api := NewAPI(ctrl, cat, hub, zerolog.Nop())
	return &testEnv{
		router:  SetupRouter(api, []string{"*"}),
		ctrl:    ctrl,
		hub:     hub,
		fs:      fs,
		catalog: cat,
	}
}

func (e *testEnv) do(method, path, body string) (*httptest.ResponseRecorder, PlaybackResponse) {
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp PlaybackResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestLoadEndpoint_Valid(t *testing.T) {
	env := setupTestRouter(t)

	w, resp := env.do("POST", "/playback/load", `{"recording_id": "rec-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp.Status != "loaded" || resp.Session == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Session.RecordingID != "rec-1" || resp.Session.FileSizeBytes != 100000 {
		t.Errorf("session = %+v", resp.Session)
	}
}

func TestLoadEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing id", `{}`, http.StatusBadRequest},
		{"invalid json", `{invalid json}`, http.StatusBadRequest},
		{"unknown recording", `{"recording_id": "nope"}`, http.StatusNotFound},
		{"file missing", `{"recording_id": "gone"}`, http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestRouter(t)
			w, resp := env.do("POST", "/playback/load", tt.body)
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, w.Code)
			}
			if resp.Status != "error" {
				t.Errorf("expected status error, got %s", resp.Status)
			}
		})
	}
}

func TestTransportEndpoints_NoSession(t *testing.T) {
	env := setupTestRouter(t)

	for _, ep := range []struct{ method, path, body string }{
		{"POST", "/playback/play", ""},
		{"POST", "/playback/pause", ""},
		{"POST", "/playback/seek", `{"position": 0.5}`},
		{"POST", "/playback/stop", ""},
		{"GET", "/playback/state", ""},
	} {
		t.Run(ep.path, func(t *testing.T) {
			w, _ := env.do(ep.method, ep.path, ep.body)
			if w.Code != http.StatusNotFound {
				t.Errorf("expected status 404, got %d", w.Code)
			}
		})
	}
}

func TestTransportEndpoints_Flow(t *testing.T) {
	env := setupTestRouter(t)
	env.do("POST", "/playback/load", `{"recording_id": "rec-1"}`)

	w, resp := env.do("POST", "/playback/play", "")
	if w.Code != http.StatusOK || resp.Status != "playing" {
		t.Fatalf("play: %d %+v", w.Code, resp)
	}

	w, resp = env.do("POST", "/playback/seek", `{"position": 0.5}`)
	if w.Code != http.StatusOK || resp.Session.Position != 0.5 || resp.Session.Offset != 50000 {
		t.Fatalf("seek: %d %+v", w.Code, resp.Session)
	}

	w, resp = env.do("POST", "/playback/pause", "")
	if w.Code != http.StatusOK || resp.Status != "paused" {
		t.Fatalf("pause: %d %+v", w.Code, resp)
	}

	w, resp = env.do("GET", "/playback/state", "")
	if w.Code != http.StatusOK || resp.Session.Status != playback.StatusPaused {
		t.Fatalf("state: %d %+v", w.Code, resp)
	}

	w, resp = env.do("POST", "/playback/stop", "")
	if w.Code != http.StatusOK || resp.Status != "stopped" || resp.Session.Position != 0.5 {
		t.Fatalf("stop: %d %+v", w.Code, resp)
	}

	w, resp = env.do("GET", "/playback/state", "")
	if w.Code != http.StatusNotFound || resp.Status != "not_found" {
		t.Errorf("state after stop: %d %+v", w.Code, resp)
	}
}

func TestSeekEndpoint_Validation(t *testing.T) {
	env := setupTestRouter(t)
	env.do("POST", "/playback/load", `{"recording_id": "rec-1"}`)

	w, _ := env.do("POST", "/playback/seek", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing position: expected 400, got %d", w.Code)
	}

	w, resp := env.do("POST", "/playback/seek", `{"position": 3.5}`)
	if w.Code != http.StatusOK || resp.Session.Position != 1 {
		t.Errorf("out of range position should clamp to 1, got %d %+v", w.Code, resp.Session)
	}

	w, resp = env.do("POST", "/playback/seek", `{"position": 0}`)
	if w.Code != http.StatusOK || resp.Session.Position != 0 {
		t.Errorf("zero position must be accepted, got %d %+v", w.Code, resp.Session)
	}
}

func TestPlayEndpoint_FileRemoved(t *testing.T) {
	env := setupTestRouter(t)
	env.do("POST", "/playback/load", `{"recording_id": "rec-1"}`)
	env.fs.Remove("/rec/rec-1.iq")

	w, resp := env.do("POST", "/playback/play", "")
	if w.Code != http.StatusGone {
		t.Errorf("expected status 410, got %d", w.Code)
	}
	if resp.Session == nil || resp.Session.Status != playback.StatusLoaded {
		t.Errorf("response should carry the unchanged session, got %+v", resp.Session)
	}
}

func TestRecordingsEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	req, _ := http.NewRequest("GET", "/recordings", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp RecordingsResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 2 || len(resp.Recordings) != 2 {
		t.Errorf("unexpected listing: %+v", resp)
	}
}

func TestRecordingsEndpoint_Error(t *testing.T) {
	env := setupTestRouter(t)
	env.catalog.listErr = errors.New("database is locked")

	req, _ := http.NewRequest("GET", "/recordings", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestEventsEndpoint_InitialSnapshot(t *testing.T) {
	env := setupTestRouter(t)
	env.do("POST", "/playback/load", `{"recording_id": "rec-1"}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", "/playback/events", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "event:state") || !strings.Contains(body, `"status":"loaded"`) {
		t.Errorf("missing initial state event: %q", body)
	}
	if env.hub.SubscriberCount() != 0 {
		t.Errorf("subscriber leaked after disconnect: %d", env.hub.SubscriberCount())
	}
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestRouter(t)

	req, _ := http.NewRequest("OPTIONS", "/playback/play", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
