package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict origins before exposing this outside the gateway
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventRouter handles one event envelope received on a connection. Handler
// failures are reported back on the triggering event name and never tear
// down the socket or other connections.
type EventRouter interface {
	HandleEvent(ctx context.Context, c *Client, event string, data json.RawMessage)
}

type WebSocketHandler struct {
	Hub          *Hub
	Router       EventRouter
	MessageRate  int
	MessageBurst int
}

func NewWebSocketHandler(hub *Hub, router EventRouter) *WebSocketHandler {
	return &WebSocketHandler{
		Hub:          hub,
		Router:       router,
		MessageRate:  10,
		MessageBurst: 20,
	}
}

// HandleWS upgrades the request and registers an unbound connection in the
// namespace. Identity is bound later by the login event.
func (h *WebSocketHandler) HandleWS(w http.ResponseWriter, r *http.Request, namespace string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws: upgrade failed")
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}

	client := newClient(conn, namespace, h.MessageRate, h.MessageBurst)
	h.Hub.Register(client)

	go client.writePump()
	go client.readPump(h.Hub, h.Router)
}
