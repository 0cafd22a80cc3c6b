package service

import (
	"context"

	"github.com/SamadritaSarkar339/monstac/internal/domain"
	"github.com/SamadritaSarkar339/monstac/internal/hub"
	"github.com/SamadritaSarkar339/monstac/internal/store"
	pkglog "github.com/SamadritaSarkar339/monstac/pkg/log"
)

// DMService owns direct conversations: sending, delivery ticks, reads and
// typing indicators. Every mutation of a conversation runs under that
// conversation's lock, so status transitions stay monotonic even across
// racing tabs.
type DMService struct {
	store store.Store
	hub   *hub.Hub
	feed  *Feed
	locks *keyedLock
}

// NewDMService creates a DM service.
func NewDMService(s store.Store, h *hub.Hub, feed *Feed) *DMService {
	return &DMService{
		store: s,
		hub:   h,
		feed:  feed,
		locks: newKeyedLock(),
	}
}

// StartConversation finds or lazily creates the conversation between two
// users. It requires an accepted connection between them.
func (s *DMService) StartConversation(ctx context.Context, userID, otherUserID string) (*domain.Conversation, error) {
	if otherUserID == "" || otherUserID == userID {
		return nil, ErrMissingField
	}

	connected, err := s.store.AreConnected(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, ErrNotConnected
	}

	conv, created, err := s.store.GetOrCreateConversation(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	if created {
		pkglog.L().Info().
			Str(pkglog.FieldConversationID, conv.ID).
			Str(pkglog.FieldUserID, userID).
			Msg("conversation created")
	}
	return conv, nil
}

// ListConversations returns the user's conversations, most recently
// active first.
func (s *DMService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return s.store.ListConversations(ctx, userID)
}

// Send delivers a direct message into an existing conversation. The
// sender must be a participant; the recipient is always the other
// participant regardless of what the payload claims.
func (s *DMService) Send(ctx context.Context, fromUserID string, p domain.DMSendPayload) (*domain.MessageView, error) {
	if p.ConversationID == "" {
		return nil, ErrMissingField
	}
	text, bodyType, err := normalizeBody(p.Text, p.Type, p.MediaURL)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(p.ConversationID)
	defer s.locks.Unlock(p.ConversationID)

	conv, err := s.store.GetConversation(ctx, p.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(fromUserID) {
		return nil, ErrNotParticipant
	}
	toUserID := conv.OtherParticipant(fromUserID)
	if p.ToUserID != "" && p.ToUserID != toUserID {
		return nil, ErrNotParticipant
	}

	// The connection may have been severed since the conversation was
	// opened
	connected, err := s.store.AreConnected(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, ErrNotConnected
	}

	msg := &domain.Message{
		Kind:           domain.KindDM,
		ConversationID: conv.ID,
		FromUserID:     fromUserID,
		ToUserID:       toUserID,
		Type:           bodyType,
		Text:           text,
		MediaURL:       p.MediaURL,
		Status:         domain.StatusSent,
	}
	if err := s.store.AppendConversationMessage(ctx, conv, msg); err != nil {
		return nil, err
	}

	view := &domain.MessageView{
		Message: *msg,
		From:    s.senderView(ctx, fromUserID),
	}

	if err := s.hub.Publish(domain.ConversationChannel(conv.ID), &domain.DMNewMessage{
		Type:           domain.EventDMNew,
		ConversationID: conv.ID,
		Message:        *view,
	}, ""); err != nil {
		return nil, err
	}
	s.feed.DMMessage(conv.ID, view)

	return view, nil
}

// Delivered acknowledges receipt of a single message. Only the recipient
// may acknowledge. A message already read stays read: the late delivered
// tick is swallowed without an event.
func (s *DMService) Delivered(ctx context.Context, userID, messageID string) error {
	if messageID == "" {
		return ErrMissingField
	}

	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.Kind != domain.KindDM || msg.ToUserID != userID {
		return ErrNotParticipant
	}

	s.locks.Lock(msg.ConversationID)
	defer s.locks.Unlock(msg.ConversationID)

	// Re-read under the lock; a racing read may have already won
	msg, err = s.store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.StatusAtLeast(domain.StatusDelivered) {
		return nil
	}

	if err := s.store.UpdateMessageStatus(ctx, messageID, domain.StatusDelivered); err != nil {
		return err
	}

	if err := s.hub.Publish(domain.ConversationChannel(msg.ConversationID), &domain.DMStatusMessage{
		Type:      domain.EventDMStatus,
		MessageID: messageID,
		Status:    domain.StatusDelivered,
	}, ""); err != nil {
		return err
	}
	s.feed.DMStatus(msg.ConversationID, messageID, domain.StatusDelivered)
	return nil
}

// Read marks the whole conversation read for the caller. The read event
// is always echoed back to the conversation, even when nothing was
// unread, so clients can clear badges on a re-read.
func (s *DMService) Read(ctx context.Context, userID, conversationID string) error {
	if conversationID == "" {
		return ErrMissingField
	}

	s.locks.Lock(conversationID)
	defer s.locks.Unlock(conversationID)

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}

	if _, err := s.store.MarkConversationRead(ctx, conversationID, userID); err != nil {
		return err
	}

	if err := s.hub.Publish(domain.ConversationChannel(conversationID), &domain.DMReadMessage{
		Type:           domain.EventDMReadAll,
		ConversationID: conversationID,
		ReaderID:       userID,
	}, ""); err != nil {
		return err
	}
	s.feed.DMRead(conversationID, userID)
	return nil
}

// Typing relays a typing indicator to the other participant's
// connections. Nothing is persisted; the sender's own connection is
// excluded from the fan-out.
func (s *DMService) Typing(ctx context.Context, userID, connectionID string, p domain.DMTypingPayload) error {
	if p.ConversationID == "" {
		return ErrMissingField
	}

	conv, err := s.store.GetConversation(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}

	return s.hub.Publish(domain.ConversationChannel(conv.ID), &domain.DMTypingMessage{
		Type:           domain.EventDMTypingOut,
		ConversationID: conv.ID,
		FromUserID:     userID,
		IsTyping:       p.IsTyping,
	}, connectionID)
}

// senderView resolves display identity, degrading to a bare id when the
// user record is unavailable.
func (s *DMService) senderView(ctx context.Context, userID string) domain.SenderView {
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

// History returns recent messages of a conversation, oldest first. The
// caller must be a participant.
func (s *DMService) History(ctx context.Context, userID, conversationID string, limit int) ([]domain.MessageView, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	messages, err := s.store.ListMessages(ctx, domain.KindDM, conversationID, limit)
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
