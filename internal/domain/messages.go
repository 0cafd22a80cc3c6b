package domain

import "encoding/json"

// Client → server event names.
const (
	EventPresenceJoin   = "presence:join"
	EventPresenceUpdate = "presence:update"

	EventChatJoin    = "chat:join"
	EventChatLeave   = "chat:leave"
	EventOfficeChat  = "chat:office"
	EventRoomChat    = "chat:room"
	EventRequestChat = "chat:request"

	EventDMSend      = "dm:send"
	EventDMDelivered = "dm:delivered"
	EventDMRead      = "dm:read"
	EventDMTyping    = "dm:typing"

	EventCallJoin      = "webrtc:join"
	EventCallOffer     = "webrtc:offer"
	EventCallAnswer    = "webrtc:answer"
	EventCallCandidate = "webrtc:ice"
	EventCallLeave     = "webrtc:leave"
)

// Server → client event names.
const (
	EventPresenceList = "presence:list"
	EventChatNew      = "chat:new"
	EventDMNew        = "dm:new"
	EventDMStatus     = "dm:status"
	EventDMReadAll    = "dm:read"
	EventDMTypingOut  = "dm:typing"
	EventCallReady    = "webrtc:ready"
	EventCallFull     = "webrtc:full"
	EventCallPeerLeft = "webrtc:peer-left"
	EventError        = "error"
)

// Error codes carried on error events.
const (
	CodeBadPayload     = "bad_payload"
	CodeUnknownEvent   = "unknown_event"
	CodeNotJoined      = "not_joined"
	CodeEmptyText      = "empty_text"
	CodeNotParticipant = "not_participant"
	CodeNotConnected   = "not_connected"
	CodeNotFound       = "not_found"
	CodeCallFull       = "call_full"
	CodeInternal       = "internal"
)

// Envelope is the outer frame of every websocket message; Type selects the
// payload shape.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PresenceJoinPayload announces a connection into the shared office.
type PresenceJoinPayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	Mood   string `json:"mood,omitempty"`
}

// PresenceUpdatePayload changes status and/or mood. Nil fields are left
// untouched.
type PresenceUpdatePayload struct {
	Status *string `json:"status,omitempty"`
	Mood   *string `json:"mood,omitempty"`
}

// ChatJoinPayload subscribes or unsubscribes the connection to a relay
// channel by name.
type ChatJoinPayload struct {
	Channel string `json:"channel"`
}

// OfficeChatPayload posts into the office-wide channel.
type OfficeChatPayload struct {
	Text     string `json:"text"`
	Type     string `json:"type,omitempty"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

// RoomChatPayload posts into a room channel.
type RoomChatPayload struct {
	RoomID   string `json:"roomId"`
	Text     string `json:"text"`
	Type     string `json:"type,omitempty"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

// RequestChatPayload posts into a connection-request thread.
type RequestChatPayload struct {
	RequestID string `json:"requestId"`
	Text      string `json:"text"`
	Type      string `json:"type,omitempty"`
	MediaURL  string `json:"mediaUrl,omitempty"`
}

// DMSendPayload sends a direct message inside an existing conversation.
type DMSendPayload struct {
	ConversationID string `json:"conversationId"`
	ToUserID       string `json:"toUserId"`
	Text           string `json:"text"`
	Type           string `json:"type,omitempty"`
	MediaURL       string `json:"mediaUrl,omitempty"`
}

// DMDeliveredPayload acknowledges receipt of a single message.
type DMDeliveredPayload struct {
	MessageID string `json:"messageId"`
}

// DMReadPayload marks a whole conversation read for the caller.
type DMReadPayload struct {
	ConversationID string `json:"conversationId"`
}

// DMTypingPayload signals a typing indicator inside a conversation.
type DMTypingPayload struct {
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

// CallJoinPayload enters a call room.
type CallJoinPayload struct {
	CallID string `json:"roomId"`
}

// CallSignalPayload relays an opaque SDP offer/answer or ICE candidate to
// the peer. The signaling body is never inspected.
type CallSignalPayload struct {
	CallID    string          `json:"roomId"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// CallLeavePayload exits a call room.
type CallLeavePayload struct {
	CallID string `json:"roomId"`
}

// SenderView is the display identity attached to relayed messages.
type SenderView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarID    string `json:"avatarId,omitempty"`
	AvatarColor string `json:"avatarColor,omitempty"`
}

// MessageView is a persisted message enriched with its sender identity.
type MessageView struct {
	Message
	From SenderView `json:"from"`
}

// PresenceListMessage carries the full presence snapshot.
type PresenceListMessage struct {
	Type    string           `json:"type"`
	Members []PresenceRecord `json:"members"`
}

// ChatNewMessage carries a freshly posted office/room/request message.
type ChatNewMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel"`
	Message MessageView `json:"message"`
}

// DMNewMessage carries a freshly sent direct message.
type DMNewMessage struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversationId"`
	Message        MessageView `json:"message"`
}

// DMStatusMessage reports a per-message status change.
type DMStatusMessage struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// DMReadMessage reports a whole-conversation read.
type DMReadMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	ReaderID       string `json:"readerId"`
}

// DMTypingMessage relays a typing indicator.
type DMTypingMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	FromUserID     string `json:"fromUserId"`
	IsTyping       bool   `json:"isTyping"`
}

// CallReadyMessage tells both participants that the room is full and
// negotiation may begin.
type CallReadyMessage struct {
	Type   string `json:"type"`
	CallID string `json:"roomId"`
}

// CallFullMessage rejects a join into an occupied call room.
type CallFullMessage struct {
	Type    string `json:"type"`
	CallID  string `json:"roomId"`
	Message string `json:"message"`
}

// CallSignalMessage relays signaling to the peer.
type CallSignalMessage struct {
	Type      string          `json:"type"`
	CallID    string          `json:"roomId"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// CallPeerLeftMessage tells the remaining participant that the peer left.
type CallPeerLeftMessage struct {
	Type   string `json:"type"`
	CallID string `json:"roomId"`
}

// ErrorMessage reports a rejected operation back to the offending
// connection only.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// NewErrorMessage builds an error event for the given failed client event.
func NewErrorMessage(code, message, event string) *ErrorMessage {
	return &ErrorMessage{
		Type:    EventError,
		Code:    code,
		Message: message,
		Event:   event,
	}
}

// Relay channel names. Every subscription target is one of these.
const ChannelOffice = "office"

// RoomChannel names the relay channel for a room.
func RoomChannel(roomID string) string {
	return "room:" + roomID
}

// RequestChannel names the relay channel for a connection-request thread.
func RequestChannel(requestID string) string {
	return "req:" + requestID
}

// ConversationChannel names the relay channel for a DM conversation.
func ConversationChannel(conversationID string) string {
	return "dm:" + conversationID
}

// CallChannel names the relay channel for a call room.
func CallChannel(callID string) string {
	return "call:" + callID
}
