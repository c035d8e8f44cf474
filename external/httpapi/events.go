package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamEvents upgrades to a websocket and relays the session's live events as JSON text frames
// until the client disconnects or the server shuts down.
func (s *Server) streamEvents(c echo.Context) error {
	sessionID := c.Param("id")
	if _, err := s.sessions.Session(c.Request().Context(), sessionID, userID(c)); err != nil {
		return httpError(err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "session_id", sessionID)
		return nil
	}
	defer func() {
		_ = conn.Close()
	}()

	sub := s.events.Subscribe(sessionID)
	defer sub.Close()
	slog.Info("event stream opened", "session_id", sessionID, "user_id", userID(c))

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(4096)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("event stream read error", "error", err, "session_id", sessionID)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				slog.Debug("event stream write failed", "error", err, "session_id", sessionID)
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-gone:
			slog.Info("event stream closed by client", "session_id", sessionID)
			return nil
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return nil
		}
	}
}
