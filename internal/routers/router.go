package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/metrics"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/middleware"
	chat_service "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/use-case/chat-case"
	ws "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/websocket"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/state"
)

func NewRouter(state *state.AppState, hub *ws.Hub, chat chat_service.ChatServiceContract, wsHandler *ws.WebSocketHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.WithRequestId)
	r.Use(metrics.Middleware)

	UserRouter(r, state)
	ChatRouter(r, state, chat)
	HubRouter(r, hub)

	r.Get("/ws/chat", func(w http.ResponseWriter, req *http.Request) {
		wsHandler.HandleWS(w, req, ws.NamespaceChat)
	})
	r.Get("/ws/notification", func(w http.ResponseWriter, req *http.Request) {
		wsHandler.HandleWS(w, req, ws.NamespaceNotification)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
