package server

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Editors connect from localhost plugins and webviews with arbitrary origins.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewHandler creates the HTTP handler with all routes.
func NewHandler(hub *Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// WebSocket endpoint.
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn("websocket upgrade error", "error", err)
			return
		}
		client := newClient(hub, conn)
		hub.attach(client)
		go client.WritePump()
		go client.ReadPump()
	})

	return mux
}
