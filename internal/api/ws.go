package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleWebsocket streams the caller's activity events until either side closes.
// Clients only receive; anything they send is discarded.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		slog.Warn("websocket accept failed", "user_id", u.ID, "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	events, unsubscribe := s.hub.Subscribe(u.ID)
	defer unsubscribe()

	slog.Debug("websocket subscribed", "user_id", u.ID)
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "")
				return
			}
			if err := write(ctx, conn, ev); err != nil {
				logClosed(u.ID, err)
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				logClosed(u.ID, err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}

func logClosed(userID string, err error) {
	if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
		slog.Debug("websocket closed", "user_id", userID)
		return
	}
	slog.Warn("websocket write failed", "user_id", userID, "error", err)
}
