package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SamadritaSarkar339/monstac/internal/domain"
	"github.com/SamadritaSarkar339/monstac/internal/store"
	"github.com/SamadritaSarkar339/monstac/pkg/database"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	mu            sync.Mutex
	users         map[string]*domain.User
	requests      map[string]*domain.ConnectionRequest
	messages      map[string]*domain.Message
	conversations map[string]*domain.Conversation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[string]*domain.User),
		requests:      make(map[string]*domain.ConnectionRequest),
		messages:      make(map[string]*domain.Message),
		conversations: make(map[string]*domain.Conversation),
	}
}

func (f *fakeStore) addUser(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = &u
}

func (f *fakeStore) addRequest(r domain.ConnectionRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.ID] = &r
}

func (f *fakeStore) addConversation(c domain.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.Unread == nil {
		c.Unread = database.CounterMap{}
	}
	f.conversations[c.ID] = &c
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) AreConnected(ctx context.Context, userID, otherUserID string) (bool, error) {
	u, err := f.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.IsConnectedTo(otherUserID), nil
}

func (f *fakeStore) GetConnectionRequest(_ context.Context, id string) (*domain.ConnectionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeStore) CreateMessage(_ context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	copied := *msg
	f.messages[msg.ID] = &copied
	return nil
}

func (f *fakeStore) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeStore) UpdateMessageStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return store.ErrNotFound
	}
	m.Status = status
	return nil
}

func (f *fakeStore) ListMessages(_ context.Context, kind, scopeID string, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, m := range f.messages {
		if m.Kind != kind {
			continue
		}
		switch kind {
		case domain.KindRoom:
			if m.RoomID != scopeID {
				continue
			}
		case domain.KindRequest:
			if m.RequestID != scopeID {
				continue
			}
		case domain.KindDM:
			if m.ConversationID != scopeID {
				continue
			}
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeStore) GetOrCreateConversation(_ context.Context, userID, otherUserID string) (*domain.Conversation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pairKey := domain.PairKeyFor(userID, otherUserID)
	for _, c := range f.conversations {
		if c.PairKey == pairKey {
			copied := *c
			return &copied, false, nil
		}
	}
	conv := &domain.Conversation{
		ID:           uuid.New().String(),
		PairKey:      pairKey,
		Participants: []string{userID, otherUserID},
		Unread:       database.CounterMap{},
	}
	f.conversations[conv.ID] = conv
	copied := *conv
	return &copied, true, nil
}

func (f *fakeStore) ListConversations(_ context.Context, userID string) ([]domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Conversation
	for _, c := range f.conversations {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		var ti, tj time.Time
		if out[i].LastMessageAt != nil {
			ti = *out[i].LastMessageAt
		}
		if out[j].LastMessageAt != nil {
			tj = *out[j].LastMessageAt
		}
		return ti.After(tj)
	})
	return out, nil
}

func (f *fakeStore) AppendConversationMessage(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	if err := f.CreateMessage(ctx, msg); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.conversations[conv.ID]
	if !ok {
		return store.ErrNotFound
	}
	if stored.Unread == nil {
		stored.Unread = database.CounterMap{}
	}
	if _, ok := stored.Unread[msg.FromUserID]; !ok {
		stored.Unread[msg.FromUserID] = 0
	}
	stored.Unread[msg.ToUserID]++
	stored.LastMessageText = msg.Text
	stored.LastMessageFrom = msg.FromUserID
	at := msg.CreatedAt
	stored.LastMessageAt = &at
	return nil
}

func (f *fakeStore) MarkConversationRead(_ context.Context, conversationID, readerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[conversationID]
	if !ok {
		return 0, store.ErrNotFound
	}
	var changed int64
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.ToUserID == readerID && m.Status != domain.StatusRead {
			m.Status = domain.StatusRead
			changed++
		}
	}
	if conv.Unread == nil {
		conv.Unread = database.CounterMap{}
	}
	conv.Unread[readerID] = 0
	return changed, nil
}

func (f *fakeStore) Close() error { return nil }
