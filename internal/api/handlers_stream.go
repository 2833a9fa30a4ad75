package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
)

const (
	pingPeriod   = 20 * time.Second
	writeTimeout = 10 * time.Second
)

// handleStream upgrades to a websocket and forwards the session's events
// as JSON messages until either side goes away. The first message is a
// snapshot of the session; every event after it is newer.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, events, cancel, err := s.sessions.Subscribe(r.Context(), id)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	defer cancel()

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "session_id", id, "error", err)
		return
	}
	defer c.CloseNow()

	ctx := c.CloseRead(context.Background())

	if err := s.write(ctx, c, map[string]any{"type": "snapshot", "session": snap}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pctx)
			pcancel()
			if err != nil {
				s.log.Debug("websocket ping failed", "session_id", id, "error", err)
				return
			}
		case e, ok := <-events:
			if !ok {
				c.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			if err := s.write(ctx, c, e); err != nil {
				s.log.Debug("websocket write failed", "session_id", id, "error", err)
				return
			}
		}
	}
}

func (s *Server) write(ctx context.Context, c *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, v)
}
