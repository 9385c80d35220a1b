package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1 MB
)

// Identity is the authenticated user snapshot bound to a connection after a
// successful login handshake.
type Identity struct {
	UserID   uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Roles    []string  `json:"roles"`
}

// Client is one live bidirectional channel. It starts unbound; a login event
// binds an Identity to it. Connections are process-local and never persisted.
type Client struct {
	ID        string
	Namespace string
	Conn      *websocket.Conn
	Send      chan []byte

	identity *Identity
	idMu     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	limiter   *rate.Limiter
	lastSeen  time.Time
	seenMu    sync.RWMutex
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, namespace string, messageRate, messageBurst int) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:        uuid.New().String(),
		Namespace: namespace,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		ctx:       ctx,
		cancel:    cancel,
		limiter:   rate.NewLimiter(rate.Limit(messageRate), messageBurst),
		lastSeen:  time.Now(),
	}
}

// Bind attaches the authenticated identity. Called once per connection on a
// successful login handshake.
func (c *Client) Bind(id Identity) {
	c.idMu.Lock()
	c.identity = &id
	c.idMu.Unlock()
}

// Identity returns the bound identity, or nil for an unbound connection.
func (c *Client) Identity() *Identity {
	c.idMu.RLock()
	defer c.idMu.RUnlock()
	return c.identity
}

func (c *Client) UserID() (uuid.UUID, bool) {
	c.idMu.RLock()
	defer c.idMu.RUnlock()
	if c.identity == nil {
		return uuid.Nil, false
	}
	return c.identity.UserID, true
}

// SendEvent queues an event envelope for delivery. Slow consumers are
// disconnected rather than blocking the caller.
func (c *Client) SendEvent(event string, data any) {
	payload, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("ws: failed to marshal event")
		return
	}

	select {
	case c.Send <- payload:
	case <-c.ctx.Done():
	default:
		log.Warn().Str("clientID", c.ID).Str("event", event).Msg("ws: slow consumer, closing")
		go c.Close()
	}
}

// SendError emits a scoped error payload on the same event name that
// triggered it, on this connection only.
func (c *Client) SendError(event, msg string) {
	c.SendEvent(event, map[string]string{"error": msg})
}

func (c *Client) IsClientActive() bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
		return true
	}
}

func (c *Client) GetLastSeen() time.Time {
	c.seenMu.RLock()
	defer c.seenMu.RUnlock()
	return c.lastSeen
}

func (c *Client) touch() {
	c.seenMu.Lock()
	c.lastSeen = time.Now()
	c.seenMu.Unlock()
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	})
}

// writePump drains c.Send to the socket and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// readPump reads event envelopes from the client and hands them to the
// router. Handling is sequential per connection; a handler failure never
// tears down the socket.
func (c *Client) readPump(h *Hub, router EventRouter) {
	defer func() {
		h.Unregister(c)
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}
		c.touch()

		var envelope struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Event == "" {
			c.SendError("error", "malformed event envelope")
			continue
		}

		if !c.limiter.Allow() {
			c.SendError(envelope.Event, "rate limit exceeded")
			continue
		}

		if router != nil {
			router.HandleEvent(c.ctx, c, envelope.Event, envelope.Data)
		}
	}
}
