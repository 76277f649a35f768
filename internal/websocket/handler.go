package websocket

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/neboloop/browserchat/internal/lifecycle"
	"github.com/neboloop/browserchat/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same local-only policy as the HTTP API: non-browser clients send no Origin.
		return r.Header.Get("Origin") == "" || middleware.IsLocalhostOrigin(r.Header.Get("Origin"))
	},
}

// Handler streams lifecycle events to websocket clients. The optional
// sessionId and agent query parameters narrow the stream.
func Handler(events *lifecycle.Manager, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("clientId")
		if clientID == "" {
			clientID = "client-" + uuid.New().String()[:8]
		}
		filter := Filter{
			SessionID: r.URL.Query().Get("sessionId"),
			Agent:     r.URL.Query().Get("agent"),
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("websocket upgrade error", "error", err)
			return
		}
		logger.Info("websocket client connected", "client", clientID)

		client := NewClient(conn, clientID, filter, logger)
		unsubscribe := events.Subscribe(client.deliver)
		go func() {
			<-client.Done()
			unsubscribe()
			logger.Info("websocket client disconnected", "client", clientID)
		}()

		go client.writePump()
		go client.readPump()
	}
}
