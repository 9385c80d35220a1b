package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/metrics"
)

const (
	NamespaceChat         = "chat"
	NamespaceNotification = "notification"
)

// Hub is the process-local connection directory: it addresses live
// connections by namespace, by owning user, and by joined room key. It holds
// no cross-process state; fan-out across processes goes through the pub/sub
// bridge.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]map[*Client]struct{}            // namespace -> clients
	rooms       map[string]map[*Client]struct{}            // room key -> clients
	clientRooms map[*Client]map[string]struct{}            // client -> joined room keys
	userClients map[string]map[uuid.UUID][]*Client         // namespace -> userID -> clients

	ctx    context.Context
	cancel context.CancelFunc

	stats   HubStats
	statsMu sync.RWMutex

	cleanupTicker *time.Ticker
}

type HubStats struct {
	TotalRooms       int       `json:"total_rooms"`
	TotalClients     int       `json:"total_clients"`
	TotalConnections int64     `json:"total_connections"`
	MessagesSent     int64     `json:"messages_sent"`
	LastReset        time.Time `json:"last_reset"`
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	hub := &Hub{
		clients:     make(map[string]map[*Client]struct{}),
		rooms:       make(map[string]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[string]struct{}),
		userClients: make(map[string]map[uuid.UUID][]*Client),
		ctx:         ctx,
		cancel:      cancel,
		stats: HubStats{
			LastReset: time.Now(),
		},
		cleanupTicker: time.NewTicker(1 * time.Minute),
	}

	go hub.cleanupRoutine()

	return hub
}

// Register adds a freshly upgraded, still unbound connection to a namespace.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.clients[c.Namespace] == nil {
		h.clients[c.Namespace] = make(map[*Client]struct{})
	}
	h.clients[c.Namespace][c] = struct{}{}
	h.mu.Unlock()

	h.updateStats(func(stats *HubStats) {
		stats.TotalConnections++
	})
	metrics.WsConnections.WithLabelValues(c.Namespace).Inc()

	log.Info().Str("namespace", c.Namespace).Str("clientID", c.ID).Msg("ws: client registered")
}

// BindUser records the login binding so the connection becomes addressable by
// user id.
func (h *Hub) BindUser(c *Client) {
	userID, ok := c.UserID()
	if !ok {
		return
	}

	h.mu.Lock()
	if h.userClients[c.Namespace] == nil {
		h.userClients[c.Namespace] = make(map[uuid.UUID][]*Client)
	}
	h.userClients[c.Namespace][userID] = append(h.userClients[c.Namespace][userID], c)
	h.mu.Unlock()

	log.Info().Str("namespace", c.Namespace).Str("clientID", c.ID).Stringer("userID", userID).Msg("ws: user bound to connection")
}

// Unregister removes a connection from the directory. If the connection was
// bound, every other connection owned by the same user in the same namespace
// is force-closed too: one logical session per namespace, no ghost sessions
// after reconnect races.
func (h *Hub) Unregister(c *Client) {
	var siblings []*Client

	h.mu.Lock()
	// the cleanup ticker can race readPump's deferred unregister; only the
	// call that still finds the connection proceeds
	clients, ok := h.clients[c.Namespace]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, present := clients[c]; !present {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.clients, c.Namespace)
	}

	for roomID := range h.clientRooms[c] {
		if clients, ok := h.rooms[roomID]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	delete(h.clientRooms, c)

	if userID, bound := c.UserID(); bound {
		if byUser, ok := h.userClients[c.Namespace]; ok {
			for _, sibling := range byUser[userID] {
				if sibling != c {
					siblings = append(siblings, sibling)
				}
			}
			delete(byUser, userID)
			if len(byUser) == 0 {
				delete(h.userClients, c.Namespace)
			}
		}
	}
	h.mu.Unlock()

	metrics.WsConnections.WithLabelValues(c.Namespace).Dec()
	c.Close()

	// single-session enforcement
	for _, sibling := range siblings {
		log.Info().Str("namespace", c.Namespace).Str("clientID", sibling.ID).Msg("ws: closing duplicate session")
		sibling.Close()
	}

	log.Info().Str("namespace", c.Namespace).Str("clientID", c.ID).Msg("ws: client unregistered")
}

// JoinRoom subscribes a connection to a room key's broadcasts.
func (h *Hub) JoinRoom(roomID string, c *Client) {
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
	if h.clientRooms[c] == nil {
		h.clientRooms[c] = make(map[string]struct{})
	}
	h.clientRooms[c][roomID] = struct{}{}
	h.mu.Unlock()

	log.Info().Str("roomID", roomID).Str("clientID", c.ID).Msg("ws: client joined room")
}

func (h *Hub) LeaveRoom(roomID string, c *Client) {
	h.mu.Lock()
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.clientRooms[c], roomID)
	h.mu.Unlock()

	log.Info().Str("roomID", roomID).Str("clientID", c.ID).Msg("ws: client left room")
}

// ListConnections returns all open connections in a namespace.
func (h *Hub) ListConnections(namespace string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var clients []*Client
	for c := range h.clients[namespace] {
		if c.IsClientActive() {
			clients = append(clients, c)
		}
	}
	return clients
}

// ListConnectionsByUsers filters a namespace to connections whose bound user
// is in the given set. Unbound connections are excluded.
func (h *Hub) ListConnectionsByUsers(namespace string, userIDs []uuid.UUID) []*Client {
	wanted := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	var clients []*Client
	for userID, list := range h.userClients[namespace] {
		if _, ok := wanted[userID]; !ok {
			continue
		}
		for _, c := range list {
			if c.IsClientActive() {
				clients = append(clients, c)
			}
		}
	}
	return clients
}

// UserClients returns all active connections bound to a user in a namespace.
func (h *Hub) UserClients(namespace string, userID uuid.UUID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var clients []*Client
	if byUser, ok := h.userClients[namespace]; ok {
		for _, c := range byUser[userID] {
			if c.IsClientActive() {
				clients = append(clients, c)
			}
		}
	}
	return clients
}

// RoomClients returns all active connections joined to a room key.
func (h *Hub) RoomClients(roomID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var clients []*Client
	for c := range h.rooms[roomID] {
		if c.IsClientActive() {
			clients = append(clients, c)
		}
	}
	return clients
}

// IsUserInRoom reports whether a user has an active connection joined to the
// room key.
func (h *Hub) IsUserInRoom(roomID string, userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[roomID] {
		if id, ok := c.UserID(); ok && id == userID && c.IsClientActive() {
			return true
		}
	}
	return false
}

// IsClientInRoom reports whether this specific connection is joined.
func (h *Hub) IsClientInRoom(roomID string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.rooms[roomID][c]
	return ok
}

// BroadcastToRoom sends an event to every connection joined to the room key
// in this process. Sends happen outside the lock, bounded by a semaphore;
// slow consumers are dropped.
func (h *Hub) BroadcastToRoom(roomID, event string, data any) {
	payload, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		log.Error().Err(err).Str("roomID", roomID).Msg("ws: failed to marshal broadcast")
		return
	}
	h.broadcastRaw(roomID, payload)
}

func (h *Hub) broadcastRaw(roomID string, payload []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if c.IsClientActive() {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 50) // limit concurrent sends

	for _, client := range targets {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
			}()
			select {
			case c.Send <- payload:
			case <-c.ctx.Done():
			default:
				log.Warn().Str("roomID", roomID).Str("clientID", c.ID).Msg("ws: slow consumer, dropping message")
				go c.Close()
			}
		}(client)
	}

	wg.Wait()

	h.updateStats(func(stats *HubStats) {
		stats.MessagesSent += int64(len(targets))
	})
	metrics.WsMessagesTotal.Inc()

	log.Debug().Str("roomID", roomID).Int("targets", len(targets)).Msg("ws: broadcast completed")
}

// PushToUser sends an event to every connection bound to a user in a
// namespace.
func (h *Hub) PushToUser(namespace string, userID uuid.UUID, event string, data any) {
	payload, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		log.Error().Err(err).Stringer("userID", userID).Msg("ws: failed to marshal user push")
		return
	}
	h.pushRawToUser(namespace, userID, payload)
}

func (h *Hub) pushRawToUser(namespace string, userID uuid.UUID, payload []byte) {
	for _, c := range h.UserClients(namespace, userID) {
		select {
		case c.Send <- payload:
			metrics.FanoutPushesTotal.Inc()
		case <-c.ctx.Done():
		default:
			log.Warn().Stringer("userID", userID).Str("clientID", c.ID).Msg("ws: user client buffer full")
		}
	}
}

// GetHubStats returns overall hub statistics.
func (h *Hub) GetHubStats() HubStats {
	h.statsMu.RLock()
	stats := h.stats
	h.statsMu.RUnlock()

	h.mu.RLock()
	stats.TotalRooms = len(h.rooms)
	total := 0
	for _, clients := range h.clients {
		for c := range clients {
			if c.IsClientActive() {
				total++
			}
		}
	}
	stats.TotalClients = total
	h.mu.RUnlock()

	return stats
}

// GetRoomStats returns statistics for one room key.
func (h *Hub) GetRoomStats(roomID string) map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := map[string]any{
		"room_id": roomID,
		"exists":  false,
	}

	if clients, ok := h.rooms[roomID]; ok {
		active := 0
		uniqueUsers := make(map[uuid.UUID]struct{})
		for c := range clients {
			if c.IsClientActive() {
				active++
				if id, bound := c.UserID(); bound {
					uniqueUsers[id] = struct{}{}
				}
			}
		}
		stats["exists"] = true
		stats["total_connections"] = len(clients)
		stats["active_connections"] = active
		stats["unique_users"] = len(uniqueUsers)
	}

	return stats
}

func (h *Hub) updateStats(fn func(*HubStats)) {
	h.statsMu.Lock()
	fn(&h.stats)
	h.statsMu.Unlock()
}

func (h *Hub) cleanupRoutine() {
	defer h.cleanupTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.cleanupTicker.C:
			h.performCleanup()
		}
	}
}

func (h *Hub) performCleanup() {
	now := time.Now()
	inactiveThreshold := 2 * time.Minute

	var toRemove []*Client

	h.mu.RLock()
	for _, clients := range h.clients {
		for c := range clients {
			if !c.IsClientActive() || now.Sub(c.GetLastSeen()) > inactiveThreshold {
				toRemove = append(toRemove, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range toRemove {
		log.Info().Str("clientID", c.ID).Str("namespace", c.Namespace).Msg("ws: cleaning up inactive client")
		h.Unregister(c)
	}
}

// Close gracefully shuts down the hub.
func (h *Hub) Close() {
	log.Info().Msg("ws: shutting down hub")

	h.cancel()

	h.mu.RLock()
	var allClients []*Client
	for _, clients := range h.clients {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range allClients {
		c.Close()
	}

	log.Info().Int("clients", len(allClients)).Msg("ws: hub shutdown completed")
}
