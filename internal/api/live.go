package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"studytrack/internal/auth"
	"studytrack/pkg/core"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// livePayload is one tick of the timer stream.
type livePayload struct {
	Status   string  `json:"status"`
	Duration float64 `json:"duration"`
	Goals    int     `json:"goals"`
}

// handleLive upgrades to a websocket and pushes the net duration once per
// second until the session disappears or the client hangs up. Paused and
// finished sessions report their cached duration, so the client clock
// freezes exactly where the lifecycle froze it.
func (s *Server) handleLive(c *gin.Context) {
	userID := auth.UserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			sess, err := s.sessions.Get(ctx, userID)
			if err != nil {
				s.logger.Error("live timer read failed", "user_id", userID, "error", err)
				return
			}
			if sess == nil {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "no session"))
				return
			}

			payload := livePayload{
				Status:   sess.Status,
				Duration: sess.Duration,
				Goals:    len(sess.Goals),
			}
			if sess.Status == core.StatusActive {
				payload.Duration = core.CalculateDuration(sess.StartTime, time.Now().UTC(), sess.AccumulatedPauseSeconds)
			}
			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		}
	}
}
