package domain

import (
	"time"

	"github.com/SamadritaSarkar339/monstac/pkg/database"
)

// Message kinds.
const (
	KindOffice  = "office"
	KindRoom    = "room"
	KindDM      = "dm"
	KindRequest = "request"
)

// Message body variants.
const (
	BodyText  = "text"
	BodyImage = "image"
)

// DM delivery statuses. Transitions are monotonic: sent → delivered → read.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Presence statuses.
const (
	PresenceAvailable = "available"
	PresenceFocus     = "focus"
	PresenceBusy      = "busy"
	PresenceAway      = "away"

	DefaultMood = "neutral"
)

// Connection request statuses.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// User is the identity record owned by the authentication collaborator.
// The realtime core only reads it for display identity and the
// "connected" predicate.
type User struct {
	ID          string               `gorm:"primaryKey;size:36" json:"id"`
	Name        string               `gorm:"size:128" json:"name"`
	Email       string               `gorm:"size:255;uniqueIndex" json:"email"`
	Status      string               `gorm:"size:16;default:available" json:"status"`
	AvatarID    string               `gorm:"size:32" json:"avatarId"`
	AvatarColor string               `gorm:"size:16" json:"avatarColor"`
	Mood        string               `gorm:"size:16" json:"mood"`
	Connections database.StringArray `gorm:"type:text" json:"-"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// IsConnectedTo reports whether other is an accepted connection of u.
func (u *User) IsConnectedTo(other string) bool {
	for _, id := range u.Connections {
		if id == other {
			return true
		}
	}
	return false
}

// Message is a persisted chat record. Exactly one of RoomID, RequestID and
// ConversationID is populated, matching Kind.
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Kind           string    `gorm:"size:16;index" json:"kind"`
	RoomID         string    `gorm:"size:36;index" json:"roomId,omitempty"`
	RequestID      string    `gorm:"size:36;index" json:"requestId,omitempty"`
	ConversationID string    `gorm:"size:36;index:idx_conv_created" json:"conversationId,omitempty"`
	FromUserID     string    `gorm:"size:36;index" json:"fromUserId"`
	ToUserID       string    `gorm:"size:36" json:"toUserId,omitempty"`
	Type           string    `gorm:"size:16;default:text" json:"type"`
	Text           string    `gorm:"type:text" json:"text"`
	MediaURL       string    `gorm:"size:512" json:"mediaUrl,omitempty"`
	Status         string    `gorm:"size:16;default:sent" json:"status,omitempty"`
	CreatedAt      time.Time `gorm:"index:idx_conv_created" json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// statusRank orders DM statuses so transitions can be checked for
// monotonicity. Unknown statuses rank lowest.
func statusRank(status string) int {
	switch status {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// StatusAtLeast reports whether the message status already reached the
// given status.
func (m *Message) StatusAtLeast(status string) bool {
	return statusRank(m.Status) >= statusRank(status)
}

// Conversation is a persisted two-party DM pairing. PairKey is the sorted
// "a:b" participant key used for lookups across drivers.
type Conversation struct {
	ID              string               `gorm:"primaryKey;size:36" json:"id"`
	PairKey         string               `gorm:"size:80;uniqueIndex" json:"-"`
	Participants    database.StringArray `gorm:"type:text" json:"participants"`
	LastMessageText string               `gorm:"type:text" json:"lastMessageText"`
	LastMessageAt   *time.Time           `json:"lastMessageAt"`
	LastMessageFrom string               `gorm:"size:36" json:"lastMessageFrom,omitempty"`
	Unread          database.CounterMap  `gorm:"type:text" json:"unread"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID, or "" when
// userID is not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// PairKeyFor builds the canonical participant key for two user ids.
func PairKeyFor(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// ConnectionRequest is a pending/accepted/rejected connection between two
// users, owned by the connection-management collaborator. Request chat is
// gated on its two parties.
type ConnectionRequest struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	FromUserID string    `gorm:"size:36;index:idx_req_pair" json:"fromUserId"`
	ToUserID   string    `gorm:"size:36;index:idx_req_pair" json:"toUserId"`
	Status     string    `gorm:"size:16;default:pending" json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IsParty reports whether userID is either side of the request.
func (r *ConnectionRequest) IsParty(userID string) bool {
	return r.FromUserID == userID || r.ToUserID == userID
}

// PresenceRecord is the in-memory presence state for one connection.
// A user with several tabs has several records.
type PresenceRecord struct {
	ConnectionID string    `json:"connectionId"`
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Mood         string    `json:"mood"`
	JoinedAt     time.Time `json:"joinedAt"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}
