package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SamadritaSarkar339/monstac/internal/domain"
	"github.com/SamadritaSarkar339/monstac/internal/presence"
	"github.com/SamadritaSarkar339/monstac/internal/service"
	"github.com/SamadritaSarkar339/monstac/internal/store"
	"github.com/SamadritaSarkar339/monstac/pkg/middleware"
	"github.com/SamadritaSarkar339/monstac/pkg/response"
)

const defaultHistoryLimit = 50

// HTTPHandler serves the REST surface: presence snapshots, conversation
// management and message history.
type HTTPHandler struct {
	presence *presence.Registry
	chat     *service.ChatService
	dm       *service.DMService
	auth     *middleware.AuthMiddleware
}

// NewHTTPHandler creates the REST handler.
func NewHTTPHandler(reg *presence.Registry, chat *service.ChatService, dm *service.DMService, auth *middleware.AuthMiddleware) *HTTPHandler {
	return &HTTPHandler{
		presence: reg,
		chat:     chat,
		dm:       dm,
		auth:     auth,
	}
}

// RegisterRoutes mounts the REST routes onto the router.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api", h.auth.RequireAuth())
	{
		api.GET("/presence", h.GetPresence)

		api.GET("/conversations", h.ListConversations)
		api.POST("/conversations/dm/:otherUserId", h.StartConversation)
		api.GET("/conversations/:id/messages", h.ConversationMessages)

		api.GET("/chat/office/messages", h.OfficeMessages)
		api.GET("/chat/rooms/:roomId/messages", h.RoomMessages)
		api.GET("/chat/requests/:requestId/messages", h.RequestMessages)
	}
}

// Health reports liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// GetPresence returns the current office snapshot.
func (h *HTTPHandler) GetPresence(c *gin.Context) {
	response.Success(c, h.presence.Snapshot())
}

// ListConversations returns the caller's conversations, most recently
// active first.
func (h *HTTPHandler) ListConversations(c *gin.Context) {
	convs, err := h.dm.ListConversations(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, convs)
}

// StartConversation finds or lazily creates the DM conversation with
// another user.
func (h *HTTPHandler) StartConversation(c *gin.Context) {
	conv, err := h.dm.StartConversation(c.Request.Context(), middleware.GetUserID(c), c.Param("otherUserId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, conv)
}

// ConversationMessages returns recent DM history, oldest first.
func (h *HTTPHandler) ConversationMessages(c *gin.Context) {
	views, err := h.dm.History(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), historyLimit(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, views)
}

// OfficeMessages returns recent office-wide history.
func (h *HTTPHandler) OfficeMessages(c *gin.Context) {
	views, err := h.chat.History(c.Request.Context(), domain.KindOffice, "", historyLimit(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, views)
}

// RoomMessages returns recent history of a room.
func (h *HTTPHandler) RoomMessages(c *gin.Context) {
	views, err := h.chat.History(c.Request.Context(), domain.KindRoom, c.Param("roomId"), historyLimit(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, views)
}

// RequestMessages returns recent history of a connection-request thread.
// Only the two parties may read it.
func (h *HTTPHandler) RequestMessages(c *gin.Context) {
	requestID := c.Param("requestId")
	userID := middleware.GetUserID(c)

	req, err := h.chat.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !req.IsParty(userID) {
		response.Forbidden(c, "not a party of this request")
		return
	}

	views, err := h.chat.History(c.Request.Context(), domain.KindRequest, requestID, historyLimit(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, views)
}

func historyLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > 200 {
		return 200
	}
	return limit
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingField):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotParticipant), errors.Is(err, service.ErrNotConnected):
		response.Forbidden(c, err.Error())
	case errors.Is(err, store.ErrNotFound):
		response.NotFound(c, err.Error())
	default:
		response.InternalError(c, "internal error")
	}
}
