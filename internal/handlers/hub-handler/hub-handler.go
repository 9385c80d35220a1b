package hub_handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/handlers"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/middleware"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/websocket"
)

type HubHandler struct {
	Hub *websocket.Hub
}

func NewHubHandler(hub *websocket.Hub) *HubHandler {
	return &HubHandler{
		Hub: hub,
	}
}

func (h *HubHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "chat-server",
	})
}

func requestID(r *http.Request) string {
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		return "unknown"
	}
	return reqID
}

func (h *HubHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	stats := h.Hub.GetHubStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("get websocket stats", stats, requestID(r)))
	return nil
}

func (h *HubHandler) HandleGetRoomStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")
	stats := h.Hub.GetRoomStats(roomID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("get websocket room stats", stats, requestID(r)))
	return nil
}

func (h *HubHandler) HandleGetRoomClients(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")
	clients := h.Hub.RoomClients(roomID)

	type ClientInfo struct {
		ID       string    `json:"id"`
		UserID   string    `json:"user_id,omitempty"`
		LastSeen time.Time `json:"last_seen"`
	}

	var clientList []ClientInfo
	for _, client := range clients {
		info := ClientInfo{
			ID:       client.ID,
			LastSeen: client.GetLastSeen(),
		}
		if userID, ok := client.UserID(); ok {
			info.UserID = userID.String()
		}
		clientList = append(clientList, info)
	}

	resp := map[string]any{
		"room_id": roomID,
		"count":   len(clientList),
		"clients": clientList,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("successfully get room clients", resp, requestID(r)))
	return nil
}

// HandleGetUserStatus reports whether the user holds any live connection in
// the chat namespace on this process.
func (h *HubHandler) HandleGetUserStatus(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		return app_error.InvalidRequest("invalid user id", "userId")
	}

	clients := h.Hub.UserClients(websocket.NamespaceChat, userID)

	resp := map[string]any{
		"user_id":        userID,
		"online":         len(clients) > 0,
		"active_clients": len(clients),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("successful get user status", resp, requestID(r)))
	return nil
}

// HandleDisconnectUser force-closes every connection the user holds on this
// process, across both namespaces.
func (h *HubHandler) HandleDisconnectUser(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		return app_error.InvalidRequest("invalid user id", "userId")
	}

	disconnected := 0
	for _, ns := range []string{websocket.NamespaceChat, websocket.NamespaceNotification} {
		for _, client := range h.Hub.UserClients(ns, userID) {
			client.Close()
			disconnected++
		}
	}

	resp := map[string]any{
		"status":               "success",
		"disconnected_clients": disconnected,
		"user_id":              userID,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("successfully disconnect user", resp, requestID(r)))
	return nil
}
