package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SamadritaSarkar339/monstac/internal/domain"
	"github.com/SamadritaSarkar339/monstac/pkg/database"
)

// GormStore implements Store on a GORM connection. It works unchanged on
// postgres, mysql and sqlite.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the realtime tables.
func (s *GormStore) Migrate() error {
	return database.AutoMigrate(s.db,
		&domain.User{},
		&domain.ConnectionRequest{},
		&domain.Conversation{},
		&domain.Message{},
	)
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) AreConnected(ctx context.Context, userID, otherUserID string) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsConnectedTo(otherUserID), nil
}

func (s *GormStore) GetConnectionRequest(ctx context.Context, id string) (*domain.ConnectionRequest, error) {
	var req domain.ConnectionRequest
	err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *GormStore) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *GormStore) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *GormStore) UpdateMessageStatus(ctx context.Context, id, status string) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMessages returns the most recent messages of a kind within its
// scope, oldest first.
func (s *GormStore) ListMessages(ctx context.Context, kind, scopeID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	q := s.db.WithContext(ctx).Where("kind = ?", kind)
	switch kind {
	case domain.KindRoom:
		q = q.Where("room_id = ?", scopeID)
	case domain.KindRequest:
		q = q.Where("request_id = ?", scopeID)
	case domain.KindDM:
		q = q.Where("conversation_id = ?", scopeID)
	}

	var messages []domain.Message
	if err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *GormStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetOrCreateConversation finds the conversation for the user pair,
// creating it lazily on first use. The second return reports whether a
// new conversation was created.
func (s *GormStore) GetOrCreateConversation(ctx context.Context, userID, otherUserID string) (*domain.Conversation, bool, error) {
	pairKey := domain.PairKeyFor(userID, otherUserID)

	var conv domain.Conversation
	err := s.db.WithContext(ctx).First(&conv, "pair_key = ?", pairKey).Error
	if err == nil {
		return &conv, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	conv = domain.Conversation{
		ID:           uuid.New().String(),
		PairKey:      pairKey,
		Participants: []string{userID, otherUserID},
		Unread:       database.CounterMap{},
	}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		// Lost a creation race, the other writer's row wins
		var existing domain.Conversation
		if ferr := s.db.WithContext(ctx).First(&existing, "pair_key = ?", pairKey).Error; ferr == nil {
			return &existing, false, nil
		}
		return nil, false, err
	}
	return &conv, true, nil
}

// ListConversations returns the user's conversations, most recently
// active first.
func (s *GormStore) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	err := s.db.WithContext(ctx).
		Where("pair_key LIKE ? OR pair_key LIKE ?", userID+":%", "%:"+userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// AppendConversationMessage persists a DM and rolls the conversation
// summary forward in one transaction. The caller holds the per
// conversation lock.
func (s *GormStore) AppendConversationMessage(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		if conv.Unread == nil {
			conv.Unread = database.CounterMap{}
		}
		// Both participants always have an entry; the sender's stays at
		// its current value, zero when it never existed.
		if _, ok := conv.Unread[msg.FromUserID]; !ok {
			conv.Unread[msg.FromUserID] = 0
		}
		conv.Unread[msg.ToUserID]++
		conv.LastMessageText = msg.Text
		conv.LastMessageFrom = msg.FromUserID
		at := msg.CreatedAt
		conv.LastMessageAt = &at

		return tx.Model(conv).Updates(map[string]interface{}{
			"last_message_text": conv.LastMessageText,
			"last_message_from": conv.LastMessageFrom,
			"last_message_at":   conv.LastMessageAt,
			"unread":            conv.Unread,
		}).Error
	})
}

// MarkConversationRead flips every message addressed to the reader to
// read and clears the reader's unread counter. It returns how many
// messages changed status.
func (s *GormStore) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	var changed int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Message{}).
			Where("conversation_id = ? AND to_user_id = ? AND status <> ?",
				conversationID, readerID, domain.StatusRead).
			Update("status", domain.StatusRead)
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected

		var conv domain.Conversation
		if err := tx.First(&conv, "id = ?", conversationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if count, ok := conv.Unread[readerID]; ok && count == 0 {
			return nil
		}
		if conv.Unread == nil {
			conv.Unread = database.CounterMap{}
		}
		// Reset rather than delete so the entry stays visible in the
		// serialized conversation.
		conv.Unread[readerID] = 0
		return tx.Model(&conv).Update("unread", conv.Unread).Error
	})

	return changed, err
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
