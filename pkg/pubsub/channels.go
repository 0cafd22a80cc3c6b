package pubsub

import "fmt"

// Channel naming conventions for the realtime feed consumed by the
// presentation collaborator. The scope id is the chat scope (room id,
// request id, conversation id or call id); office-wide feeds use a fixed
// "office" scope.
const (
	ChannelChatFeed     = "chat:scope:%s:to_feed"
	ChannelDMFeed       = "dm:scope:%s:to_feed"
	ChannelPresenceFeed = "presence:scope:office:to_feed"
	ChannelCallFeed     = "call:scope:%s:to_feed"
)

// Event types published on the feed channels.
const (
	EventChatNew          = "chat_new"
	EventDMNew            = "dm_new"
	EventDMStatus         = "dm_status"
	EventDMRead           = "dm_read"
	EventPresenceSnapshot = "presence_snapshot"
	EventCallReady        = "call_ready"
	EventCallPeerLeft     = "call_peer_left"
)

// ChatFeedChannel returns the feed channel for a chat scope
// ("office", a room id, or a request id).
func ChatFeedChannel(scope string) string {
	return fmt.Sprintf(ChannelChatFeed, scope)
}

// DMFeedChannel returns the feed channel for a conversation.
func DMFeedChannel(conversationID string) string {
	return fmt.Sprintf(ChannelDMFeed, conversationID)
}

// PresenceFeedChannel returns the office-wide presence feed channel.
func PresenceFeedChannel() string {
	return ChannelPresenceFeed
}

// CallFeedChannel returns the feed channel for a call room.
func CallFeedChannel(callID string) string {
	return fmt.Sprintf(ChannelCallFeed, callID)
}
