package service

import (
	"context"
	"fmt"

	"github.com/SamadritaSarkar339/monstac/internal/domain"
	"github.com/SamadritaSarkar339/monstac/internal/hub"
	pkglog "github.com/SamadritaSarkar339/monstac/pkg/log"
	"github.com/SamadritaSarkar339/monstac/pkg/pubsub"
)

// feedPatterns are the bus subscriptions the consumer holds.
func feedPatterns() []string {
	return []string{
		pubsub.ChatFeedChannel("*"),
		pubsub.DMFeedChannel("*"),
	}
}

// FeedConsumer mirrors chat and DM events published by peer instances
// into the local hub, so subscribers of a channel hear a message no
// matter which instance relayed it. Events stamped with this instance's
// own origin are skipped; the local hub already delivered them.
type FeedConsumer struct {
	sub    pubsub.Subscriber
	hub    *hub.Hub
	origin string
	cancel context.CancelFunc
}

// NewFeedConsumer creates a consumer for events not originated by
// origin.
func NewFeedConsumer(sub pubsub.Subscriber, h *hub.Hub, origin string) *FeedConsumer {
	return &FeedConsumer{
		sub:    sub,
		hub:    h,
		origin: origin,
	}
}

// Start subscribes to the chat and DM feed patterns and mirrors incoming
// events until the context is cancelled or Stop is called.
func (c *FeedConsumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for _, pattern := range feedPatterns() {
		eventCh, err := c.sub.SubscribePattern(ctx, pattern)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
		}
		go c.consume(ctx, eventCh)
	}

	pkglog.L().Info().Msg("feed consumer started")
	return nil
}

// Stop cancels the consumer and drops its bus subscriptions.
func (c *FeedConsumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	for _, pattern := range feedPatterns() {
		if err := c.sub.Unsubscribe(context.Background(), pattern); err != nil {
			pkglog.L().Warn().Err(err).Str("pattern", pattern).Msg("feed unsubscribe failed")
		}
	}
}

func (c *FeedConsumer) consume(ctx context.Context, eventCh <-chan *pubsub.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			c.process(event)
		}
	}
}

func (c *FeedConsumer) process(event *pubsub.Event) {
	if event.Origin == c.origin {
		return
	}

	switch event.Type {
	case pubsub.EventChatNew:
		var view domain.MessageView
		if err := event.UnmarshalPayload(&view); err != nil {
			pkglog.L().Warn().Err(err).Msg("bad chat event on feed")
			return
		}
		channel := chatChannelFor(&view.Message)
		c.hub.Publish(channel, &domain.ChatNewMessage{
			Type:    domain.EventChatNew,
			Channel: channel,
			Message: view,
		}, "")

	case pubsub.EventDMNew:
		var view domain.MessageView
		if err := event.UnmarshalPayload(&view); err != nil {
			pkglog.L().Warn().Err(err).Msg("bad dm event on feed")
			return
		}
		c.hub.Publish(domain.ConversationChannel(view.ConversationID), &domain.DMNewMessage{
			Type:           domain.EventDMNew,
			ConversationID: view.ConversationID,
			Message:        view,
		}, "")

	case pubsub.EventDMStatus:
		var p struct {
			MessageID string `json:"messageId"`
			Status    string `json:"status"`
		}
		if err := event.UnmarshalPayload(&p); err != nil {
			pkglog.L().Warn().Err(err).Msg("bad status event on feed")
			return
		}
		c.hub.Publish(domain.ConversationChannel(event.Scope), &domain.DMStatusMessage{
			Type:      domain.EventDMStatus,
			MessageID: p.MessageID,
			Status:    p.Status,
		}, "")

	case pubsub.EventDMRead:
		var p struct {
			ConversationID string `json:"conversationId"`
			ReaderID       string `json:"readerId"`
		}
		if err := event.UnmarshalPayload(&p); err != nil {
			pkglog.L().Warn().Err(err).Msg("bad read event on feed")
			return
		}
		c.hub.Publish(domain.ConversationChannel(p.ConversationID), &domain.DMReadMessage{
			Type:           domain.EventDMReadAll,
			ConversationID: p.ConversationID,
			ReaderID:       p.ReaderID,
		}, "")
	}
}

// chatChannelFor recovers the relay channel of a persisted chat message
// from its scope.
func chatChannelFor(msg *domain.Message) string {
	switch msg.Kind {
	case domain.KindRoom:
		return domain.RoomChannel(msg.RoomID)
	case domain.KindRequest:
		return domain.RequestChannel(msg.RequestID)
	default:
		return domain.ChannelOffice
	}
}
