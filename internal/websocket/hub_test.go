package websocket

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/metrics"
)

func newTestClient(t *testing.T, hub *Hub, namespace string, userID uuid.UUID) *Client {
	t.Helper()
	c := newClient(nil, namespace, 100, 100)
	hub.Register(c)
	if userID != uuid.Nil {
		c.Bind(Identity{UserID: userID, Username: "user-" + userID.String()[:8]})
		hub.BindUser(c)
	}
	return c
}

func TestHub_SingleSessionPerNamespace(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	userID := uuid.New()

	chatA := newTestClient(t, hub, NamespaceChat, userID)
	chatB := newTestClient(t, hub, NamespaceChat, userID)
	notif := newTestClient(t, hub, NamespaceNotification, userID)

	require.Len(t, hub.UserClients(NamespaceChat, userID), 2)
	require.Len(t, hub.UserClients(NamespaceNotification, userID), 1)

	// dropping one chat connection tears down the other chat session too
	hub.Unregister(chatA)

	assert.False(t, chatA.IsClientActive())
	assert.False(t, chatB.IsClientActive(), "sibling session in the same namespace must be closed")
	assert.True(t, notif.IsClientActive(), "the notification namespace is unaffected")

	assert.Empty(t, hub.UserClients(NamespaceChat, userID))
	require.Len(t, hub.UserClients(NamespaceNotification, userID), 1)
}

func TestHub_UnboundConnectionsAreNotAddressable(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	userID := uuid.New()
	bound := newTestClient(t, hub, NamespaceChat, userID)
	newTestClient(t, hub, NamespaceChat, uuid.Nil) // never logs in

	assert.Len(t, hub.ListConnections(NamespaceChat), 2)

	byUser := hub.ListConnectionsByUsers(NamespaceChat, []uuid.UUID{userID})
	require.Len(t, byUser, 1)
	assert.Equal(t, bound.ID, byUser[0].ID)
}

func TestHub_RoomMembershipAndBroadcast(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	alice := uuid.New()
	bob := uuid.New()

	aliceClient := newTestClient(t, hub, NamespaceChat, alice)
	bobClient := newTestClient(t, hub, NamespaceChat, bob)
	outsider := newTestClient(t, hub, NamespaceChat, uuid.New())

	roomID := "dm_test_room"
	hub.JoinRoom(roomID, aliceClient)
	hub.JoinRoom(roomID, bobClient)

	assert.True(t, hub.IsUserInRoom(roomID, alice))
	assert.True(t, hub.IsClientInRoom(roomID, bobClient))
	assert.False(t, hub.IsClientInRoom(roomID, outsider))

	hub.BroadcastToRoom(roomID, "newMessage", map[string]string{"content": "hi"})

	for _, c := range []*Client{aliceClient, bobClient} {
		select {
		case raw := <-c.Send:
			var envelope struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			require.NoError(t, json.Unmarshal(raw, &envelope))
			assert.Equal(t, "newMessage", envelope.Event)
		default:
			t.Fatalf("client %s did not receive the broadcast", c.ID)
		}
	}

	select {
	case <-outsider.Send:
		t.Fatal("outsider must not receive room broadcasts")
	default:
	}

	hub.LeaveRoom(roomID, bobClient)
	assert.False(t, hub.IsClientInRoom(roomID, bobClient))
	assert.False(t, hub.IsUserInRoom(roomID, bob))
}

func TestHub_PushToUserReachesAllNamespaceConnections(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	userID := uuid.New()
	chat := newTestClient(t, hub, NamespaceChat, userID)
	notif := newTestClient(t, hub, NamespaceNotification, userID)

	hub.PushToUser(NamespaceChat, userID, "getChats", []string{})

	select {
	case <-chat.Send:
	default:
		t.Fatal("chat connection did not receive the push")
	}
	select {
	case <-notif.Send:
		t.Fatal("push was scoped to the chat namespace")
	default:
	}
}

func TestHub_RoomCleanupOnUnregister(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	userID := uuid.New()
	c := newTestClient(t, hub, NamespaceChat, userID)

	roomID := "group_room"
	hub.JoinRoom(roomID, c)
	require.NotEmpty(t, hub.RoomClients(roomID))

	hub.Unregister(c)
	assert.Empty(t, hub.RoomClients(roomID), "room entries must not outlive the connection")

	stats := hub.GetRoomStats(roomID)
	assert.Equal(t, false, stats["exists"])
}

func TestHub_RepeatedUnregisterKeepsGaugeBalanced(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	const namespace = "gauge-check"
	gauge := metrics.WsConnections.WithLabelValues(namespace)
	before := testutil.ToFloat64(gauge)

	c := newClient(nil, namespace, 100, 100)
	hub.Register(c)
	assert.Equal(t, before+1, testutil.ToFloat64(gauge))

	// the cleanup ticker and readPump's deferred call can both unregister the
	// same connection; removing the last client also deletes the namespace
	// map, and the second call must still be a no-op
	hub.Unregister(c)
	hub.Unregister(c)
	assert.Equal(t, before, testutil.ToFloat64(gauge))
}
