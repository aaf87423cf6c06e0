package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grekus14/MeChat/internal/config"
	"github.com/Grekus14/MeChat/internal/domain"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   54 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}
}

func newTestClient(id string, h *Hub) *Client {
	c := &Client{
		ID:      id,
		Hub:     h,
		Send:    make(chan []byte, 256),
		Session: domain.NewSession(id),
		config:  testConfig(),
	}
	return c
}

func recvPayload(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNoPayload(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	sender := newTestClient("client-a", h)
	peer := newTestClient("client-b", h)
	h.Register(sender)
	h.Register(peer)
	h.JoinRoom(sender, "room-1")
	h.JoinRoom(peer, "room-1")

	err := h.Broadcast("room-1", map[string]string{"text": "hello"}, sender.ID)
	require.NoError(t, err)

	payload := recvPayload(t, peer)
	assert.Equal(t, "hello", payload["text"])
	assertNoPayload(t, sender)
}

func TestBroadcastScopedToRoom(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	inside := newTestClient("inside", h)
	outside := newTestClient("outside", h)
	h.Register(inside)
	h.Register(outside)
	h.JoinRoom(inside, "room-1")
	h.JoinRoom(outside, "room-2")

	require.NoError(t, h.Broadcast("room-1", map[string]string{"text": "scoped"}, ""))

	payload := recvPayload(t, inside)
	assert.Equal(t, "scoped", payload["text"])
	assertNoPayload(t, outside)
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	c := newTestClient("client-a", h)
	h.Register(c)
	h.JoinRoom(c, "room-1")
	require.Equal(t, 1, h.RoomClientCount("room-1"))

	h.LeaveRoom(c, "room-1")
	assert.Equal(t, 0, h.RoomClientCount("room-1"))

	require.NoError(t, h.Broadcast("room-1", map[string]string{"text": "gone"}, ""))
	assertNoPayload(t, c)
}

func TestLeaveRoomIdempotent(t *testing.T) {
	h := NewHub(testConfig())

	c := newTestClient("client-a", h)
	h.LeaveRoom(c, "never-joined")
	assert.Equal(t, 0, h.RoomClientCount("never-joined"))
}

func TestUnregisterClearsPresence(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	c := newTestClient("client-a", h)
	h.Register(c)
	h.JoinRoom(c, "room-1")

	h.Unregister(c)

	require.Eventually(t, func() bool {
		return h.RoomClientCount("room-1") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSendMessageAfterHubDropDoesNotPanic(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	c := &Client{
		ID:      "slow",
		Hub:     h,
		Send:    make(chan []byte, 1),
		Session: domain.NewSession("slow"),
		config:  testConfig(),
	}
	h.Register(c)
	h.JoinRoom(c, "room-1")

	// Fill the buffer so the next broadcast takes the drop path and the
	// hub unregisters the client.
	c.Send <- []byte("stuck")
	require.NoError(t, h.Broadcast("room-1", map[string]string{"text": "overflow"}, ""))

	require.Eventually(t, func() bool {
		return h.RoomClientCount("room-1") == 0
	}, time.Second, 10*time.Millisecond)

	// The read pump can still dispatch replies after the drop.
	require.NotPanics(t, func() {
		require.NoError(t, c.SendMessage(map[string]string{"type": "pong"}))
	})
}

func TestSendMessageDropsOnFullBuffer(t *testing.T) {
	h := NewHub(testConfig())
	c := &Client{
		ID:     "tiny",
		Hub:    h,
		Send:   make(chan []byte, 1),
		config: testConfig(),
	}

	require.NoError(t, c.SendMessage(map[string]string{"n": "1"}))
	require.NoError(t, c.SendMessage(map[string]string{"n": "2"}))

	payload := recvPayload(t, c)
	assert.Equal(t, "1", payload["n"])
	assertNoPayload(t, c)
}
