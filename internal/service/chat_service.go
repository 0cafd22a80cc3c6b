package service

import (
	"context"
	"strings"

	"github.com/SamadritaSarkar339/monstac/internal/domain"
	"github.com/SamadritaSarkar339/monstac/internal/hub"
	"github.com/SamadritaSarkar339/monstac/internal/store"
	pkglog "github.com/SamadritaSarkar339/monstac/pkg/log"
)

// ChatService relays office, room and connection-request messages.
// Posting persists the message and fans it out to every subscriber of the
// scope's channel, the sender included.
type ChatService struct {
	store store.Store
	hub   *hub.Hub
	feed  *Feed
	locks *keyedLock
}

// NewChatService creates a chat service.
func NewChatService(s store.Store, h *hub.Hub, feed *Feed) *ChatService {
	return &ChatService{
		store: s,
		hub:   h,
		feed:  feed,
		locks: newKeyedLock(),
	}
}

// normalizeBody validates and normalizes a message body. Image messages
// may carry empty text; everything else needs non-blank text.
func normalizeBody(text, bodyType, mediaURL string) (string, string, error) {
	text = strings.TrimSpace(text)
	if bodyType == "" {
		bodyType = domain.BodyText
	}
	if bodyType == domain.BodyImage && mediaURL != "" {
		return text, bodyType, nil
	}
	if text == "" {
		return "", "", ErrEmptyText
	}
	return text, bodyType, nil
}

// PostOffice posts into the office-wide channel.
func (s *ChatService) PostOffice(ctx context.Context, fromUserID string, p domain.OfficeChatPayload) (*domain.MessageView, error) {
	text, bodyType, err := normalizeBody(p.Text, p.Type, p.MediaURL)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		Kind:       domain.KindOffice,
		FromUserID: fromUserID,
		Type:       bodyType,
		Text:       text,
		MediaURL:   p.MediaURL,
	}
	return s.post(ctx, domain.ChannelOffice, "office", msg)
}

// PostRoom posts into a room channel.
func (s *ChatService) PostRoom(ctx context.Context, fromUserID string, p domain.RoomChatPayload) (*domain.MessageView, error) {
	if p.RoomID == "" {
		return nil, ErrMissingField
	}
	text, bodyType, err := normalizeBody(p.Text, p.Type, p.MediaURL)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		Kind:       domain.KindRoom,
		RoomID:     p.RoomID,
		FromUserID: fromUserID,
		Type:       bodyType,
		Text:       text,
		MediaURL:   p.MediaURL,
	}
	return s.post(ctx, domain.RoomChannel(p.RoomID), p.RoomID, msg)
}

// PostRequest posts into a connection-request thread. Only the two
// parties of the request may post.
func (s *ChatService) PostRequest(ctx context.Context, fromUserID string, p domain.RequestChatPayload) (*domain.MessageView, error) {
	if p.RequestID == "" {
		return nil, ErrMissingField
	}
	text, bodyType, err := normalizeBody(p.Text, p.Type, p.MediaURL)
	if err != nil {
		return nil, err
	}

	req, err := s.store.GetConnectionRequest(ctx, p.RequestID)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(fromUserID) {
		return nil, ErrNotParticipant
	}

	msg := &domain.Message{
		Kind:       domain.KindRequest,
		RequestID:  p.RequestID,
		FromUserID: fromUserID,
		Type:       bodyType,
		Text:       text,
		MediaURL:   p.MediaURL,
	}
	return s.post(ctx, domain.RequestChannel(p.RequestID), p.RequestID, msg)
}

// post persists and fans out under the channel's lock so subscribers see
// messages in storage order.
func (s *ChatService) post(ctx context.Context, channel, scope string, msg *domain.Message) (*domain.MessageView, error) {
	s.locks.Lock(channel)
	defer s.locks.Unlock(channel)

	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	view := &domain.MessageView{
		Message: *msg,
		From:    s.senderView(ctx, msg.FromUserID),
	}

	if err := s.hub.Publish(channel, &domain.ChatNewMessage{
		Type:    domain.EventChatNew,
		Channel: channel,
		Message: *view,
	}, ""); err != nil {
		return nil, err
	}
	s.feed.ChatMessage(scope, view)

	pkglog.L().Debug().
		Str(pkglog.FieldChannel, channel).
		Str(pkglog.FieldUserID, msg.FromUserID).
		Msg("chat message relayed")

	return view, nil
}

// senderView resolves display identity, degrading to a bare id when the
// user record is unavailable.
func (s *ChatService) senderView(ctx context.Context, userID string) domain.SenderView {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return domain.SenderView{ID: userID}
	}
	return domain.SenderView{
		ID:          user.ID,
		Name:        user.Name,
		AvatarID:    user.AvatarID,
		AvatarColor: user.AvatarColor,
	}
}

// GetRequest loads a connection request by id.
func (s *ChatService) GetRequest(ctx context.Context, id string) (*domain.ConnectionRequest, error) {
	if id == "" {
		return nil, ErrMissingField
	}
	return s.store.GetConnectionRequest(ctx, id)
}

// History returns recent messages of a scope with sender identities,
// oldest first.
func (s *ChatService) History(ctx context.Context, kind, scopeID string, limit int) ([]domain.MessageView, error) {
	messages, err := s.store.ListMessages(ctx, kind, scopeID, limit)
	if err != nil {
		return nil, err
	}

	views := make([]domain.MessageView, 0, len(messages))
	senders := make(map[string]domain.SenderView)
	for _, msg := range messages {
		from, ok := senders[msg.FromUserID]
		if !ok {
			from = s.senderView(ctx, msg.FromUserID)
			senders[msg.FromUserID] = from
		}
		views = append(views, domain.MessageView{Message: msg, From: from})
	}
	return views, nil
}
