package handlers

import (
	"net/http"
	"time"

	"tally-agent/internal/api/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The agent UI connects from the local machine
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// StatusWebSocket streams connectivity and queue status to the UI so the
// offline banner and pending badge update without polling
func StatusWebSocket(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			services.GetLogger().Error("WebSocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		services.GetLogger().Info("Status WebSocket connection established - client_ip: %s", c.ClientIP())

		// Drain incoming frames so pong handling works; the client never
		// sends anything meaningful on this socket.
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		events := services.GetMonitor().Subscribe()
		defer services.GetMonitor().Unsubscribe(events)

		// Send the initial snapshot before the first tick
		if err := writeStatus(conn, services); err != nil {
			return
		}

		statusTicker := time.NewTicker(5 * time.Second)
		defer statusTicker.Stop()
		pingTicker := time.NewTicker(30 * time.Second)
		defer pingTicker.Stop()

		for {
			select {
			case <-statusTicker.C:
				if err := writeStatus(conn, services); err != nil {
					return
				}

			case <-events:
				// Push the transition immediately instead of waiting a tick
				if err := writeStatus(conn, services); err != nil {
					return
				}

			case <-pingTicker.C:
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}

			case <-c.Request.Context().Done():
				services.GetLogger().Info("Status WebSocket client disconnected")
				return
			}
		}
	}
}

func writeStatus(conn *websocket.Conn, services interfaces.Services) error {
	snapshot := services.GetStatusObserver().Snapshot()
	lastSweepAt, lastSweepFull := services.GetSyncEngine().LastSweep()

	msg := WebSocketMessage{
		Type: "status",
		Data: map[string]interface{}{
			"online":                  snapshot.Online,
			"pending_count":           snapshot.PendingCount,
			"last_sweep_at":           lastSweepAt.Unix(),
			"last_sweep_fully_synced": lastSweepFull,
		},
		Timestamp: time.Now().Unix(),
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(msg)
}
