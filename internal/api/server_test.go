package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dgallion1/typewriter/internal/config"
	"github.com/dgallion1/typewriter/internal/playback"
	"github.com/dgallion1/typewriter/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "secret"

// slow keeps playback from advancing during a test: 50s per character.
const slow = `{"speed":0.001}`

func newTestServer(t *testing.T, maxSessions int) *Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	loop := playback.NewFrameLoop(time.Millisecond, log)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	cfg := config.Config{
		APIKey:         testKey,
		DefaultSpeed:   1,
		FrameInterval:  time.Millisecond,
		MaxSessions:    maxSessions,
		SessionTTL:     time.Hour,
		MaxUploadBytes: 1 << 20,
	}
	stats := playback.NewFrameStats(cfg.FrameInterval, 0)
	mgr := session.NewManager(loop, stats, session.Config{MaxSessions: maxSessions, TTL: time.Hour}, log)
	return NewServer(mgr, stats, log, cfg)
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testKey)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func create(t *testing.T, s *Server, markup string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"markup": markup, "options": json.RawMessage(slow)})
	rec, out := do(t, s, http.MethodPost, "/api/sessions", string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return out["id"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 10)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, 10)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/frames", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats/frames", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid api key")
}

func TestCreateSession(t *testing.T) {
	s := newTestServer(t, 10)
	rec, out := do(t, s, http.MethodPost, "/api/sessions", `{"markup":"<b>Hi</b> there","options":`+slow+`}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "playing", out["phase"])
	assert.Equal(t, 8.0, out["total"])
	assert.Equal(t, "html", out["format"])
	assert.Len(t, out["content_hash"], 64)
	opts := out["options"].(map[string]any)
	assert.Equal(t, 0.001, opts["speed"])
}

func TestCreateSession_ReducedMotion(t *testing.T) {
	s := newTestServer(t, 10)
	body := `{"markup":"<em>still</em>","reduced_motion":true,"options":{"respect_motion_preference":true}}`
	rec, out := do(t, s, http.MethodPost, "/api/sessions", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "completed", out["phase"])
	assert.Equal(t, "<em>still</em>", out["html"])
	assert.Equal(t, 1.0, out["progress"])
}

func TestCreateSession_Errors(t *testing.T) {
	s := newTestServer(t, 1)

	rec, _ := do(t, s, http.MethodPost, "/api/sessions", `{"markup":"x","format":"rtf"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/sessions", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	create(t, s, "first")
	rec, out := do(t, s, http.MethodPost, "/api/sessions", `{"markup":"second"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, out["error"], "session limit")
}

func TestCreateSession_Upload(t *testing.T) {
	s := newTestServer(t, 10)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "../notes.md")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("Some **bold** words"))
	require.NoError(t, mw.WriteField("speed", "0.001"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", &buf)
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "md", out["format"])
	assert.Equal(t, 0.001, out["options"].(map[string]any)["speed"])
}

func TestCreateSession_UploadRejectsUnknownExtension(t *testing.T) {
	s := newTestServer(t, 10)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "tool.exe")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("MZ"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", &buf)
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, 10)
	id := create(t, s, "<p>abcde<i>fghij</i></p>")
	base := "/api/sessions/" + id

	rec, out := do(t, s, http.MethodPost, base+"/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paused", out["phase"])

	rec, out = do(t, s, http.MethodPost, base+"/seek", `{"position":0.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5.0, out["index"])
	assert.Equal(t, "<p>abcde</p>", out["html"])
	assert.Equal(t, "paused", out["phase"])

	rec, out = do(t, s, http.MethodPost, base+"/complete", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", out["phase"])
	assert.Equal(t, "<p>abcde<i>fghij</i></p>", out["html"])

	rec, out = do(t, s, http.MethodPost, base+"/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", out["phase"])
	assert.Equal(t, 0.0, out["index"])

	rec, out = do(t, s, http.MethodPost, base+"/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "playing", out["phase"])

	rec, _ = do(t, s, http.MethodPost, base+"/rewind", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = do(t, s, http.MethodGet, base+"/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var kinds []string
	for _, e := range out["events"].([]any) {
		kinds = append(kinds, e.(map[string]any)["type"].(string))
	}
	assert.Equal(t, []string{"start", "pause", "seek", "complete", "reset", "start"}, kinds)
}

func TestSeek_RequiresPosition(t *testing.T) {
	s := newTestServer(t, 10)
	id := create(t, s, "abc")
	rec, _ := do(t, s, http.MethodPost, "/api/sessions/"+id+"/seek", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetTextAndOptions(t *testing.T) {
	s := newTestServer(t, 10)
	id := create(t, s, "abc")
	base := "/api/sessions/" + id

	rec, out := do(t, s, http.MethodPut, base+"/text", `{"markup":"a,b\n1,2\n","format":"csv"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", out["phase"])
	assert.Equal(t, "csv", out["format"])
	assert.Equal(t, 4.0, out["total"])

	rec, out = do(t, s, http.MethodPatch, base+"/options", `{"min_duration_ms":2000,"speed":-1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	opts := out["options"].(map[string]any)
	assert.Equal(t, 1.0, opts["speed"])
	assert.Equal(t, 2000.0, opts["min_duration_ms"])
	assert.Equal(t, 500.0, out["delay_ms"])
}

func TestFrame(t *testing.T) {
	s := newTestServer(t, 10)
	id := create(t, s, "<b>bold</b>text")
	base := "/api/sessions/" + id

	rec, out := do(t, s, http.MethodGet, base+"/frame?cut=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<b>bold</b>t", out["html"])

	rec, _ = do(t, s, http.MethodGet, base+"/frame?cut=99", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, s, http.MethodGet, base+"/frame?cut=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t, 10)
	id := create(t, s, "abc")

	rec, _ := do(t, s, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, out := do(t, s, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session not found", out["error"])
}

func TestFrameStats(t *testing.T) {
	s := newTestServer(t, 10)
	rec, out := do(t, s, http.MethodGet, "/api/stats/frames", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, out["frame_interval_ms"])
	lateness, ok := out["lateness"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, lateness, "missed_frames")
	assert.Contains(t, lateness, "max_frames")
}

func TestPlaybackCompletesOnFrameLoop(t *testing.T) {
	s := newTestServer(t, 10)
	rec, out := do(t, s, http.MethodPost, "/api/sessions", `{"markup":"<b>go</b>","options":{"speed":100}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := out["id"].(string)

	require.Eventually(t, func() bool {
		_, out := do(t, s, http.MethodGet, "/api/sessions/"+id, "")
		return out["phase"] == "completed"
	}, 5*time.Second, 5*time.Millisecond)

	_, out = do(t, s, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, "<b>go</b>", out["html"])
}

func TestStream(t *testing.T) {
	s := newTestServer(t, 10)
	srv := httptest.NewServer(s)
	defer srv.Close()
	id := create(t, s, "abcdef")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + testKey}},
	})
	require.NoError(t, err)
	defer c.CloseNow()

	var first map[string]any
	require.NoError(t, wsjson.Read(ctx, c, &first))
	assert.Equal(t, "snapshot", first["type"])
	assert.Equal(t, id, first["session"].(map[string]any)["id"])

	rec, _ := do(t, s, http.MethodPost, "/api/sessions/"+id+"/seek", `{"position":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var e map[string]any
	require.NoError(t, wsjson.Read(ctx, c, &e))
	assert.Equal(t, "seek", e["type"])
	assert.Equal(t, 3.0, e["position"])
	assert.Equal(t, 0.5, e["progress"])

	rec, _ = do(t, s, http.MethodDelete, "/api/sessions/"+id, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}
