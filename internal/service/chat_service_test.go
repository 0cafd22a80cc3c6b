package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamadritaSarkar339/monstac/internal/config"
	"github.com/SamadritaSarkar339/monstac/internal/domain"
	"github.com/SamadritaSarkar339/monstac/internal/hub"
	"github.com/SamadritaSarkar339/monstac/internal/store"
)

func newSubscribedClient(t *testing.T, h *hub.Hub, id string, channels ...string) *hub.Client {
	t.Helper()
	c := hub.NewClient(id, h, nil, config.WebSocketConfig{SendBuffer: 16})
	h.Register(c)
	for _, ch := range channels {
		h.Subscribe(c, ch)
	}
	return c
}

func nextMessage(t *testing.T, c *hub.Client, v interface{}) {
	t.Helper()
	select {
	case data := <-c.Send:
		require.NoError(t, json.Unmarshal(data, v))
	default:
		t.Fatal("expected a queued message")
	}
}

func TestPostOfficeFansOutToSubscribers(t *testing.T) {
	h := hub.NewHub()
	fs := newFakeStore()
	fs.addUser(domain.User{ID: "u1", Name: "Ada", AvatarID: "cat", AvatarColor: "teal"})
	svc := NewChatService(fs, h, NewFeed(nil))

	sender := newSubscribedClient(t, h, "c1", domain.ChannelOffice)
	other := newSubscribedClient(t, h, "c2", domain.ChannelOffice)
	outsider := newSubscribedClient(t, h, "c3")

	view, err := svc.PostOffice(context.Background(), "u1", domain.OfficeChatPayload{Text: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", view.Text)
	assert.Equal(t, "Ada", view.From.Name)
	assert.NotEmpty(t, view.ID)

	var got domain.ChatNewMessage
	nextMessage(t, sender, &got)
	assert.Equal(t, domain.EventChatNew, got.Type)
	assert.Equal(t, "hello", got.Message.Text)
	assert.Equal(t, "cat", got.Message.From.AvatarID)

	nextMessage(t, other, &got)
	assert.Equal(t, "hello", got.Message.Text)

	assert.Empty(t, outsider.Send)
}

func TestPostOfficeRejectsBlankText(t *testing.T) {
	svc := NewChatService(newFakeStore(), hub.NewHub(), NewFeed(nil))

	_, err := svc.PostOffice(context.Background(), "u1", domain.OfficeChatPayload{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestPostOfficeAllowsImageWithoutText(t *testing.T) {
	fs := newFakeStore()
	fs.addUser(domain.User{ID: "u1", Name: "Ada"})
	svc := NewChatService(fs, hub.NewHub(), NewFeed(nil))

	view, err := svc.PostOffice(context.Background(), "u1", domain.OfficeChatPayload{
		Type:     domain.BodyImage,
		MediaURL: "https://cdn.example/pic.png",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BodyImage, view.Type)
	assert.Empty(t, view.Text)
}

func TestPostRoomScopesToRoomChannel(t *testing.T) {
	h := hub.NewHub()
	fs := newFakeStore()
	fs.addUser(domain.User{ID: "u1", Name: "Ada"})
	svc := NewChatService(fs, h, NewFeed(nil))

	inRoom := newSubscribedClient(t, h, "c1", domain.RoomChannel("r1"))
	otherRoom := newSubscribedClient(t, h, "c2", domain.RoomChannel("r2"))

	view, err := svc.PostRoom(context.Background(), "u1", domain.RoomChatPayload{RoomID: "r1", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "r1", view.RoomID)
	assert.Equal(t, domain.KindRoom, view.Kind)

	var got domain.ChatNewMessage
	nextMessage(t, inRoom, &got)
	assert.Equal(t, "r1", got.Message.RoomID)
	assert.Empty(t, otherRoom.Send)
}

func TestPostRoomRequiresRoomID(t *testing.T) {
	svc := NewChatService(newFakeStore(), hub.NewHub(), NewFeed(nil))

	_, err := svc.PostRoom(context.Background(), "u1", domain.RoomChatPayload{Text: "hi"})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestPostRequestAuthorizesParties(t *testing.T) {
	h := hub.NewHub()
	fs := newFakeStore()
	fs.addUser(domain.User{ID: "u1", Name: "Ada"})
	fs.addRequest(domain.ConnectionRequest{ID: "req1", FromUserID: "u1", ToUserID: "u2", Status: domain.RequestPending})
	svc := NewChatService(fs, h, NewFeed(nil))

	_, err := svc.PostRequest(context.Background(), "u1", domain.RequestChatPayload{RequestID: "req1", Text: "hey"})
	require.NoError(t, err)

	_, err = svc.PostRequest(context.Background(), "u3", domain.RequestChatPayload{RequestID: "req1", Text: "hey"})
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = svc.PostRequest(context.Background(), "u1", domain.RequestChatPayload{RequestID: "missing", Text: "hey"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHistoryReturnsChronologicalViews(t *testing.T) {
	fs := newFakeStore()
	fs.addUser(domain.User{ID: "u1", Name: "Ada"})
	svc := NewChatService(fs, hub.NewHub(), NewFeed(nil))

	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.PostOffice(context.Background(), "u1", domain.OfficeChatPayload{Text: text})
		require.NoError(t, err)
	}

	views, err := svc.History(context.Background(), domain.KindOffice, "", 50)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "one", views[0].Text)
	assert.Equal(t, "three", views[2].Text)
	assert.Equal(t, "Ada", views[1].From.Name)
}

func TestSenderViewDegradesToBareID(t *testing.T) {
	h := hub.NewHub()
	svc := NewChatService(newFakeStore(), h, NewFeed(nil))

	view, err := svc.PostOffice(context.Background(), "ghost", domain.OfficeChatPayload{Text: "boo"})
	require.NoError(t, err)
	assert.Equal(t, "ghost", view.From.ID)
	assert.Empty(t, view.From.Name)
}
