package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SamadritaSarkar339/monstac/internal/domain"
	pkglog "github.com/SamadritaSarkar339/monstac/pkg/log"
	"github.com/SamadritaSarkar339/monstac/pkg/pubsub"
)

const feedPublishTimeout = 2 * time.Second

// Feed publishes realtime events onto the event bus for the activity-feed
// collaborator and for peer instances. Delivery is best effort: a broken
// bus never fails the client operation, it only logs.
type Feed struct {
	publisher pubsub.Publisher
	origin    string
}

// NewFeed wraps a publisher; a nil publisher yields a Feed that discards
// everything. Every event is stamped with a per-instance origin.
func NewFeed(p pubsub.Publisher) *Feed {
	return &Feed{
		publisher: p,
		origin:    uuid.New().String(),
	}
}

// Origin returns the instance id stamped onto published events.
func (f *Feed) Origin() string {
	return f.origin
}

func (f *Feed) publish(channel, eventType, scope string, payload interface{}) {
	if f == nil || f.publisher == nil {
		return
	}

	event, err := pubsub.NewEvent(eventType, scope, payload)
	if err != nil {
		pkglog.L().Warn().Err(err).Str("event_type", eventType).Msg("feed event marshal failed")
		return
	}
	event.Origin = f.origin

	ctx, cancel := context.WithTimeout(context.Background(), feedPublishTimeout)
	defer cancel()

	if err := f.publisher.Publish(ctx, channel, event); err != nil {
		pkglog.L().Warn().Err(err).Str("event_type", eventType).Msg("feed publish failed")
	}
}

// ChatMessage announces an office, room or request message. scope is
// "office", the room id or the request id; it must not contain colons,
// which the bus channel grammar reserves.
func (f *Feed) ChatMessage(scope string, view *domain.MessageView) {
	f.publish(pubsub.ChatFeedChannel(scope), pubsub.EventChatNew, scope, view)
}

// DMMessage announces a direct message.
func (f *Feed) DMMessage(conversationID string, view *domain.MessageView) {
	f.publish(pubsub.DMFeedChannel(conversationID), pubsub.EventDMNew, conversationID, view)
}

// DMStatus announces a per-message status change.
func (f *Feed) DMStatus(conversationID, messageID, status string) {
	f.publish(pubsub.DMFeedChannel(conversationID), pubsub.EventDMStatus, conversationID, map[string]string{
		"messageId": messageID,
		"status":    status,
	})
}

// DMRead announces a whole-conversation read.
func (f *Feed) DMRead(conversationID, readerID string) {
	f.publish(pubsub.DMFeedChannel(conversationID), pubsub.EventDMRead, conversationID, map[string]string{
		"conversationId": conversationID,
		"readerId":       readerID,
	})
}

// PresenceSnapshot mirrors the office snapshot onto the bus.
func (f *Feed) PresenceSnapshot(members []domain.PresenceRecord) {
	f.publish(pubsub.PresenceFeedChannel(), pubsub.EventPresenceSnapshot, "office", members)
}

// CallReady announces that a call room became full.
func (f *Feed) CallReady(callID string) {
	f.publish(pubsub.CallFeedChannel(callID), pubsub.EventCallReady, callID, map[string]string{
		"callId": callID,
	})
}

// CallPeerLeft announces that a call participant left.
func (f *Feed) CallPeerLeft(callID string) {
	f.publish(pubsub.CallFeedChannel(callID), pubsub.EventCallPeerLeft, callID, map[string]string{
		"callId": callID,
	})
}
