package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamadritaSarkar339/monstac/internal/config"
	"github.com/SamadritaSarkar339/monstac/internal/domain"
	"github.com/SamadritaSarkar339/monstac/internal/hub"
)

func newCallFixture(t *testing.T) (*hub.Hub, *CallService, *hub.Client, *hub.Client) {
	t.Helper()
	h := hub.NewHub()
	svc := NewCallService(h, NewFeed(nil))
	a := hub.NewClient("c1", h, nil, config.WebSocketConfig{SendBuffer: 16})
	b := hub.NewClient("c2", h, nil, config.WebSocketConfig{SendBuffer: 16})
	h.Register(a)
	h.Register(b)
	return h, svc, a, b
}

func TestSecondJoinerTriggersReady(t *testing.T) {
	_, svc, a, b := newCallFixture(t)

	require.NoError(t, svc.Join(a, "call1"))
	assert.Empty(t, a.Send)

	require.NoError(t, svc.Join(b, "call1"))

	// Both members receive ready once the room is full
	var got domain.CallReadyMessage
	nextMessage(t, a, &got)
	assert.Equal(t, domain.EventCallReady, got.Type)
	assert.Equal(t, "call1", got.CallID)

	nextMessage(t, b, &got)
	assert.Equal(t, domain.EventCallReady, got.Type)
}

func TestThirdJoinerGetsFull(t *testing.T) {
	h, svc, a, b := newCallFixture(t)
	c := hub.NewClient("c3", h, nil, config.WebSocketConfig{SendBuffer: 16})
	h.Register(c)

	require.NoError(t, svc.Join(a, "call1"))
	require.NoError(t, svc.Join(b, "call1"))

	err := svc.Join(c, "call1")
	assert.ErrorIs(t, err, ErrCallFull)

	var got domain.CallFullMessage
	nextMessage(t, c, &got)
	assert.Equal(t, domain.EventCallFull, got.Type)

	// The full room is untouched and the rejected joiner gets no signaling
	assert.Equal(t, 2, svc.Participants("call1"))
	assert.Error(t, svc.Relay(c, domain.EventCallOffer, domain.CallSignalPayload{CallID: "call1"}))
}

func TestRejoinIsIdempotent(t *testing.T) {
	_, svc, a, _ := newCallFixture(t)

	require.NoError(t, svc.Join(a, "call1"))
	require.NoError(t, svc.Join(a, "call1"))
	assert.Equal(t, 1, svc.Participants("call1"))
}

func TestRelayReachesPeerOnly(t *testing.T) {
	_, svc, a, b := newCallFixture(t)
	require.NoError(t, svc.Join(a, "call1"))
	require.NoError(t, svc.Join(b, "call1"))
	var skip domain.CallReadyMessage
	nextMessage(t, a, &skip)
	nextMessage(t, b, &skip)

	offer := json.RawMessage(`{"sdp":"v=0"}`)
	require.NoError(t, svc.Relay(a, domain.EventCallOffer, domain.CallSignalPayload{
		CallID: "call1",
		Offer:  offer,
	}))

	assert.Empty(t, a.Send)

	var got domain.CallSignalMessage
	nextMessage(t, b, &got)
	assert.Equal(t, domain.EventCallOffer, got.Type)
	assert.JSONEq(t, string(offer), string(got.Offer))
}

func TestRelayRequiresMembership(t *testing.T) {
	_, svc, a, b := newCallFixture(t)
	require.NoError(t, svc.Join(a, "call1"))

	err := svc.Relay(b, domain.EventCallAnswer, domain.CallSignalPayload{CallID: "call1"})
	assert.ErrorIs(t, err, ErrNotParticipant)

	err = svc.Relay(a, domain.EventCallAnswer, domain.CallSignalPayload{})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestLeaveNotifiesPeerAndFreesSlot(t *testing.T) {
	h, svc, a, b := newCallFixture(t)
	require.NoError(t, svc.Join(a, "call1"))
	require.NoError(t, svc.Join(b, "call1"))
	var skip domain.CallReadyMessage
	nextMessage(t, a, &skip)
	nextMessage(t, b, &skip)

	svc.Leave(a, "call1")

	var got domain.CallPeerLeftMessage
	nextMessage(t, b, &got)
	assert.Equal(t, domain.EventCallPeerLeft, got.Type)
	assert.Equal(t, 1, svc.Participants("call1"))

	// Slot is free again
	c := hub.NewClient("c3", h, nil, config.WebSocketConfig{SendBuffer: 16})
	h.Register(c)
	require.NoError(t, svc.Join(c, "call1"))
}

func TestLeaveUnknownRoomIsNoOp(t *testing.T) {
	_, svc, a, _ := newCallFixture(t)
	svc.Leave(a, "nope")
	assert.Empty(t, a.Send)
}

func TestDisconnectLeavesAllRooms(t *testing.T) {
	_, svc, a, b := newCallFixture(t)
	require.NoError(t, svc.Join(a, "call1"))
	require.NoError(t, svc.Join(b, "call1"))
	var skip domain.CallReadyMessage
	nextMessage(t, a, &skip)
	nextMessage(t, b, &skip)

	svc.HandleDisconnect(a)

	var got domain.CallPeerLeftMessage
	nextMessage(t, b, &got)
	assert.Equal(t, "call1", got.CallID)
	assert.Equal(t, 1, svc.Participants("call1"))

	svc.HandleDisconnect(b)
	assert.Equal(t, 0, svc.Participants("call1"))
}
