package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/typewriter/internal/element"
	"github.com/dgallion1/typewriter/internal/parser"
	"github.com/dgallion1/typewriter/internal/playback"
	"github.com/dgallion1/typewriter/internal/session"
	"github.com/go-chi/chi/v5"
)

// optionsRequest carries optional overrides; nil fields keep the current
// value.
type optionsRequest struct {
	Speed                   *float64 `json:"speed"`
	MinDurationMs           *int64   `json:"min_duration_ms"`
	MaxDurationMs           *int64   `json:"max_duration_ms"`
	RespectMotionPreference *bool    `json:"respect_motion_preference"`
}

func (o optionsRequest) apply(base element.Options) element.Options {
	if o.Speed != nil {
		base.Speed = *o.Speed
	}
	if o.MinDurationMs != nil {
		base.MinDuration = msDuration(*o.MinDurationMs)
	}
	if o.MaxDurationMs != nil {
		base.MaxDuration = msDuration(*o.MaxDurationMs)
	}
	if o.RespectMotionPreference != nil {
		base.RespectMotionPreference = *o.RespectMotionPreference
	}
	return base.Normalize()
}

// msDuration converts milliseconds, saturating instead of wrapping.
func msDuration(ms int64) time.Duration {
	const limit = math.MaxInt64 / int64(time.Millisecond)
	return time.Duration(min(max(ms, -limit), limit)) * time.Millisecond
}

type contentRequest struct {
	Markup        string         `json:"markup"`
	Format        string         `json:"format"`
	Options       optionsRequest `json:"options"`
	ReducedMotion bool           `json:"reduced_motion"`
}

func (s *Server) defaultOptions() element.Options {
	return element.Options{
		Speed:                   s.cfg.DefaultSpeed,
		MinDuration:             s.cfg.DefaultMinDuration,
		MaxDuration:             s.cfg.DefaultMaxDuration,
		RespectMotionPreference: s.cfg.RespectMotionPreference,
	}.Normalize()
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	var (
		req contentRequest
		src session.Source
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var ok bool
		if req, src, ok = s.readUpload(w, r); !ok {
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if int64(len(req.Markup)) > s.cfg.MaxUploadBytes {
			jsonError(w, fmt.Sprintf("content exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		src = session.Source{Data: []byte(req.Markup), Format: req.Format}
	}

	opts := req.Options.apply(s.defaultOptions())
	snap, err := s.sessions.Create(r.Context(), src, opts, req.ReducedMotion)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// readUpload reads a multipart "file" plus optional option fields. It
// writes the error response itself and reports false on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (contentRequest, session.Source, bool) {
	var req contentRequest
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return req, session.Source{}, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return req, session.Source{}, false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	req.Format = r.FormValue("format")
	if req.Format == "" && !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return req, session.Source{}, false
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return req, session.Source{}, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return req, session.Source{}, false
	}

	if v := r.FormValue("speed"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			req.Options.Speed = &f
		}
	}
	if v := r.FormValue("min_duration_ms"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.Options.MinDurationMs = &n
		}
	}
	if v := r.FormValue("max_duration_ms"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.Options.MaxDurationMs = &n
		}
	}
	if v := r.FormValue("respect_motion_preference"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			req.Options.RespectMotionPreference = &b
		}
	}
	req.ReducedMotion = r.FormValue("reduced_motion") == "true"

	return req, session.Source{Data: data, Filename: filename, Format: req.Format}, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action := session.Action(chi.URLParam(r, "action"))
	snap, err := s.sessions.Do(r.Context(), chi.URLParam(r, "id"), action)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position *float64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Position == nil {
		jsonError(w, "position is required", http.StatusBadRequest)
		return
	}
	snap, err := s.sessions.Seek(r.Context(), chi.URLParam(r, "id"), *req.Position)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSetText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024)
	var req contentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	src := session.Source{Data: []byte(req.Markup), Format: req.Format}
	snap, err := s.sessions.SetText(r.Context(), chi.URLParam(r, "id"), src)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	var req optionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	snap, err := s.sessions.Configure(r.Context(), chi.URLParam(r, "id"), req.apply)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	cut, err := strconv.Atoi(r.URL.Query().Get("cut"))
	if err != nil {
		jsonError(w, "cut query parameter must be an integer", http.StatusBadRequest)
		return
	}
	frame, err := s.sessions.Frame(r.Context(), chi.URLParam(r, "id"), cut)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cut": cut, "html": frame})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.sessions.Events(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sessionError(w, err)
		return
	}
	if events == nil {
		events = []playback.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// sessionError maps manager errors onto HTTP statuses.
func (s *Server) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrLimit):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, session.ErrInvalidContent),
		errors.Is(err, session.ErrUnknownAction),
		errors.Is(err, session.ErrOutOfRange):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, playback.ErrLoopStopped):
		jsonError(w, "shutting down", http.StatusServiceUnavailable)
	default:
		s.log.Error("session request failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "." || name == "" {
		name = "upload"
	}
	return name
}
