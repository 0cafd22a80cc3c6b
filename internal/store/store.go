package store

import (
	"context"
	"errors"

	"github.com/SamadritaSarkar339/monstac/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence surface of the realtime core. Users and
// connection requests are written by other collaborators; the realtime
// core only reads them.
type Store interface {
	// Users
	GetUser(ctx context.Context, id string) (*domain.User, error)
	AreConnected(ctx context.Context, userID, otherUserID string) (bool, error)

	// Connection requests
	GetConnectionRequest(ctx context.Context, id string) (*domain.ConnectionRequest, error)

	// Messages
	CreateMessage(ctx context.Context, msg *domain.Message) error
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	UpdateMessageStatus(ctx context.Context, id, status string) error
	ListMessages(ctx context.Context, kind, scopeID string, limit int) ([]domain.Message, error)

	// Conversations
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	GetOrCreateConversation(ctx context.Context, userID, otherUserID string) (*domain.Conversation, bool, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	AppendConversationMessage(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error
	MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error)

	Close() error
}
