package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

type Handler struct {
	broadcaster *Broadcaster
	upgrader    websocket.Upgrader
}

func NewHandler(broadcaster *Broadcaster) *Handler {
	return &Handler{
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			// The API is CORS-open; the websocket surface matches.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Stream upgrades the connection and forwards broadcast events until the
// client disconnects or the broadcaster shuts down.
func (h *Handler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	slog.Info("client subscribed to alert stream", "subscriber_id", id)

	// Reader pump: we never expect client messages, but reading is the
	// only way to notice a closed connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			slog.Info("client disconnected from alert stream", "subscriber_id", id)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				slog.Error("failed to send event to stream", "error", err, "subscriber_id", id)
				return
			}
		}
	}
}
