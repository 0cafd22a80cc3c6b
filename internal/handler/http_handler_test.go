package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SamadritaSarkar339/monstac/internal/domain"
	"github.com/SamadritaSarkar339/monstac/internal/hub"
	"github.com/SamadritaSarkar339/monstac/internal/presence"
	"github.com/SamadritaSarkar339/monstac/internal/service"
	"github.com/SamadritaSarkar339/monstac/internal/store"
	"github.com/SamadritaSarkar339/monstac/pkg/jwt"
	"github.com/SamadritaSarkar339/monstac/pkg/middleware"
)

var handlerDBSeq int

type fixture struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *jwt.Manager
	reg    *presence.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handlerDBSeq++
	dsn := fmt.Sprintf("file:handler_test_%d?mode=memory&cache=shared", handlerDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	st := store.NewGormStore(db)
	require.NoError(t, st.Migrate())

	wsHub := hub.NewHub()
	feed := service.NewFeed(nil)
	reg := presence.NewRegistry(wsHub, feed)
	chatSvc := service.NewChatService(st, wsHub, feed)
	dmSvc := service.NewDMService(st, wsHub, feed)

	tokens := jwt.NewManager("test-secret", "test", time.Hour)
	auth := middleware.NewAuthMiddleware(tokens)

	router := gin.New()
	NewHTTPHandler(reg, chatSvc, dmSvc, auth).RegisterRoutes(router)

	return &fixture{router: router, db: db, tokens: tokens, reg: reg}
}

func (f *fixture) request(t *testing.T, method, path, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		token, err := f.tokens.Generate(userID, "Test User")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.request(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/api/presence", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/presence", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetPresenceSnapshot(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.Join("conn-1", domain.PresenceJoinPayload{UserID: "u1", Name: "Ada"})
	require.NoError(t, err)

	w := f.request(t, http.MethodGet, "/api/presence", "u1")
	require.Equal(t, http.StatusOK, w.Code)

	var members []domain.PresenceRecord
	decodeData(t, w, &members)
	require.Len(t, members, 1)
	assert.Equal(t, "u1", members[0].UserID)
}

func TestStartConversationEndpoint(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&domain.User{ID: "u1", Name: "Ada", Email: "a@x.io", Connections: []string{"u2"}}).Error)
	require.NoError(t, f.db.Create(&domain.User{ID: "u2", Name: "Lin", Email: "l@x.io", Connections: []string{"u1"}}).Error)
	require.NoError(t, f.db.Create(&domain.User{ID: "u3", Name: "Sol", Email: "s@x.io"}).Error)

	w := f.request(t, http.MethodPost, "/api/conversations/dm/u2", "u1")
	require.Equal(t, http.StatusOK, w.Code)

	var conv domain.Conversation
	decodeData(t, w, &conv)
	assert.ElementsMatch(t, []string{"u1", "u2"}, []string(conv.Participants))

	// Same pair resolves to the same conversation
	w = f.request(t, http.MethodPost, "/api/conversations/dm/u1", "u2")
	require.Equal(t, http.StatusOK, w.Code)
	var again domain.Conversation
	decodeData(t, w, &again)
	assert.Equal(t, conv.ID, again.ID)

	// Unconnected pair is refused
	w = f.request(t, http.MethodPost, "/api/conversations/dm/u3", "u1")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestConversationMessagesScoped(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&domain.User{ID: "u1", Name: "Ada", Email: "a@x.io", Connections: []string{"u2"}}).Error)
	require.NoError(t, f.db.Create(&domain.User{ID: "u2", Name: "Lin", Email: "l@x.io", Connections: []string{"u1"}}).Error)
	require.NoError(t, f.db.Create(&domain.User{ID: "u3", Name: "Sol", Email: "s@x.io"}).Error)

	w := f.request(t, http.MethodPost, "/api/conversations/dm/u2", "u1")
	require.Equal(t, http.StatusOK, w.Code)
	var conv domain.Conversation
	decodeData(t, w, &conv)

	require.NoError(t, f.db.Create(&domain.Message{
		ID:             "m1",
		Kind:           domain.KindDM,
		ConversationID: conv.ID,
		FromUserID:     "u1",
		ToUserID:       "u2",
		Text:           "hello",
		Status:         domain.StatusSent,
		CreatedAt:      time.Now().UTC(),
	}).Error)

	w = f.request(t, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", "u2")
	require.Equal(t, http.StatusOK, w.Code)
	var views []domain.MessageView
	decodeData(t, w, &views)
	require.Len(t, views, 1)
	assert.Equal(t, "hello", views[0].Text)
	assert.Equal(t, "Ada", views[0].From.Name)

	w = f.request(t, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", "u3")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.request(t, http.MethodGet, "/api/conversations/ghost/messages", "u1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestMessagesGatedOnParties(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&domain.ConnectionRequest{
		ID:         "req1",
		FromUserID: "u1",
		ToUserID:   "u2",
		Status:     domain.RequestPending,
	}).Error)
	require.NoError(t, f.db.Create(&domain.Message{
		ID:         "m1",
		Kind:       domain.KindRequest,
		RequestID:  "req1",
		FromUserID: "u1",
		Text:       "hi there",
		CreatedAt:  time.Now().UTC(),
	}).Error)

	w := f.request(t, http.MethodGet, "/api/chat/requests/req1/messages", "u2")
	require.Equal(t, http.StatusOK, w.Code)
	var views []domain.MessageView
	decodeData(t, w, &views)
	require.Len(t, views, 1)

	w = f.request(t, http.MethodGet, "/api/chat/requests/req1/messages", "u3")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.request(t, http.MethodGet, "/api/chat/requests/ghost/messages", "u1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOfficeMessagesHistory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&domain.Message{
		ID:         "m1",
		Kind:       domain.KindOffice,
		FromUserID: "u1",
		Text:       "good morning",
		CreatedAt:  time.Now().UTC(),
	}).Error)

	w := f.request(t, http.MethodGet, "/api/chat/office/messages?limit=10", "u1")
	require.Equal(t, http.StatusOK, w.Code)
	var views []domain.MessageView
	decodeData(t, w, &views)
	require.Len(t, views, 1)
	assert.Equal(t, "good morning", views[0].Text)
}
