package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleFrameStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "frame stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"frame_interval_ms": s.cfg.FrameInterval.Milliseconds(),
		"sessions":          s.sessions.Len(),
		"lateness":          s.stats.Snapshot(),
	})
}
