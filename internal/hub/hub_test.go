package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamadritaSarkar339/monstac/internal/config"
)

func newTestClient(id string, h *Hub) *Client {
	return NewClient(id, h, nil, config.WebSocketConfig{SendBuffer: 8})
}

func drain(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	default:
		t.Fatal("expected a queued message")
		return nil
	}
}

func TestPublishReachesSubscribersOnly(t *testing.T) {
	h := NewHub()
	a := newTestClient("a", h)
	b := newTestClient("b", h)
	c := newTestClient("c", h)
	for _, cl := range []*Client{a, b, c} {
		h.Register(cl)
	}
	h.Subscribe(a, "room:1")
	h.Subscribe(b, "room:1")

	require.NoError(t, h.Publish("room:1", map[string]string{"type": "chat:new"}, ""))

	assert.Equal(t, "chat:new", drain(t, a)["type"])
	assert.Equal(t, "chat:new", drain(t, b)["type"])
	assert.Empty(t, c.Send)
}

func TestPublishExcludesSender(t *testing.T) {
	h := NewHub()
	a := newTestClient("a", h)
	b := newTestClient("b", h)
	h.Register(a)
	h.Register(b)
	h.Subscribe(a, "dm:1")
	h.Subscribe(b, "dm:1")

	require.NoError(t, h.Publish("dm:1", map[string]string{"type": "dm:typing"}, "a"))

	assert.Empty(t, a.Send)
	assert.Equal(t, "dm:typing", drain(t, b)["type"])
}

func TestUnregisterCascades(t *testing.T) {
	h := NewHub()
	a := newTestClient("a", h)
	h.Register(a)
	h.Subscribe(a, "office")
	h.Subscribe(a, "room:1")

	h.Unregister(a)

	assert.Equal(t, 0, h.Subscribers("office"))
	assert.Equal(t, 0, h.Subscribers("room:1"))

	// Send queue is closed
	_, open := <-a.Send
	assert.False(t, open)

	// Second unregister is a no-op
	h.Unregister(a)
}

func TestSubscribeUnknownClientIgnored(t *testing.T) {
	h := NewHub()
	a := newTestClient("a", h)

	h.Subscribe(a, "office")

	assert.Equal(t, 0, h.Subscribers("office"))
}

func TestUnsubscribeDropsEmptyChannel(t *testing.T) {
	h := NewHub()
	a := newTestClient("a", h)
	b := newTestClient("b", h)
	h.Register(a)
	h.Register(b)
	h.Subscribe(a, "room:1")
	h.Subscribe(b, "room:1")

	h.Unsubscribe(a, "room:1")
	assert.Equal(t, 1, h.Subscribers("room:1"))

	h.Unsubscribe(b, "room:1")
	assert.Equal(t, 0, h.Subscribers("room:1"))
}

func TestBroadcastAll(t *testing.T) {
	h := NewHub()
	a := newTestClient("a", h)
	b := newTestClient("b", h)
	h.Register(a)
	h.Register(b)

	require.NoError(t, h.BroadcastAll(map[string]string{"type": "presence:list"}))

	assert.Equal(t, "presence:list", drain(t, a)["type"])
	assert.Equal(t, "presence:list", drain(t, b)["type"])
}

func TestSendToClient(t *testing.T) {
	h := NewHub()
	a := newTestClient("a", h)
	h.Register(a)

	require.NoError(t, h.SendToClient("a", map[string]string{"type": "webrtc:ready"}))
	assert.Equal(t, "webrtc:ready", drain(t, a)["type"])

	// Unknown client is ignored
	require.NoError(t, h.SendToClient("ghost", map[string]string{"type": "x"}))

	// A client that already left is ignored too, its closed queue is
	// never touched
	h.Unregister(a)
	require.NoError(t, h.SendToClient("a", map[string]string{"type": "x"}))
}
