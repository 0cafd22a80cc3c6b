package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/SamadritaSarkar339/monstac/internal/config"
	"github.com/SamadritaSarkar339/monstac/internal/domain"
	"github.com/SamadritaSarkar339/monstac/internal/hub"
	"github.com/SamadritaSarkar339/monstac/internal/presence"
	"github.com/SamadritaSarkar339/monstac/internal/service"
	"github.com/SamadritaSarkar339/monstac/internal/store"
	"github.com/SamadritaSarkar339/monstac/pkg/jwt"
	pkglog "github.com/SamadritaSarkar339/monstac/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSHandler owns the WebSocket endpoint: upgrades, event dispatch and the
// disconnect cascade.
type WSHandler struct {
	hub      *hub.Hub
	cfg      config.WebSocketConfig
	presence *presence.Registry
	chat     *service.ChatService
	dm       *service.DMService
	calls    *service.CallService
	tokens   *jwt.Manager
}

// NewWSHandler creates a WebSocket handler.
func NewWSHandler(
	h *hub.Hub,
	cfg config.WebSocketConfig,
	reg *presence.Registry,
	chat *service.ChatService,
	dm *service.DMService,
	calls *service.CallService,
	tokens *jwt.Manager,
) *WSHandler {
	return &WSHandler{
		hub:      h,
		cfg:      cfg,
		presence: reg,
		chat:     chat,
		dm:       dm,
		calls:    calls,
		tokens:   tokens,
	}
}

// HandleWebSocket upgrades the connection and starts the pumps. A token
// query parameter is optional; when present it must be valid and
// pre-binds the connection's identity.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := pkglog.L()

	var userID, name string
	if token := c.Query("token"); token != "" {
		claims, err := h.tokens.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		userID = claims.UserID
		name = claims.Name
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.cfg)
	client.UserID = userID
	client.Name = name

	// Teardown order matters: drop the fan-out targets first, then
	// vacate call rooms so peers get notified, then leave the office.
	client.SetDisconnectHandler(func(cl *hub.Client) {
		h.hub.Unregister(cl)
		h.calls.HandleDisconnect(cl)
		h.presence.Remove(cl.ID)
	})

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

// sendError reports a rejected event back to the offending connection.
// It goes through the hub so a connection torn down mid-dispatch is
// skipped.
func sendError(client *hub.Client, code, message, event string) {
	client.Hub.SendToClient(client.ID, domain.NewErrorMessage(code, message, event))
}

// dispatchError maps service errors onto wire error codes. ErrCallFull is
// absent: the call service already answered the joiner with a full event.
func dispatchError(client *hub.Client, event string, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, service.ErrCallFull):
		return
	case errors.Is(err, service.ErrEmptyText):
		sendError(client, domain.CodeEmptyText, "message text is empty", event)
	case errors.Is(err, service.ErrNotParticipant):
		sendError(client, domain.CodeNotParticipant, "not a participant of this scope", event)
	case errors.Is(err, service.ErrNotConnected):
		sendError(client, domain.CodeNotConnected, "users are not connected", event)
	case errors.Is(err, service.ErrMissingField):
		sendError(client, domain.CodeBadPayload, "payload is missing a required field", event)
	case errors.Is(err, store.ErrNotFound):
		sendError(client, domain.CodeNotFound, "referenced record does not exist", event)
	case errors.Is(err, presence.ErrEmptyUserID):
		sendError(client, domain.CodeBadPayload, "presence join requires a user id", event)
	case errors.Is(err, presence.ErrUnknownConnection):
		sendError(client, domain.CodeNotJoined, "join presence first", event)
	default:
		pkglog.L().Error().Err(err).
			Str(pkglog.FieldConnectionID, client.ID).
			Str("event", event).
			Msg("event handling failed")
		sendError(client, domain.CodeInternal, "internal error", event)
	}
}

// decode unmarshals an event payload, reporting bad payloads to the
// client.
func decode(client *hub.Client, event string, raw json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		sendError(client, domain.CodeBadPayload, "invalid payload", event)
		return false
	}
	return true
}

// requireUser returns the identity bound to the connection, rejecting
// events sent before presence join.
func requireUser(client *hub.Client, event string) (string, bool) {
	if client.UserID == "" {
		sendError(client, domain.CodeNotJoined, "join presence first", event)
		return "", false
	}
	return client.UserID, true
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		sendError(client, domain.CodeBadPayload, "invalid message format", "")
		return
	}

	ctx := context.Background()

	switch env.Type {
	case domain.EventPresenceJoin:
		var p domain.PresenceJoinPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		rec, err := h.presence.Join(client.ID, p)
		if err != nil {
			dispatchError(client, env.Type, err)
			return
		}
		client.UserID = rec.UserID
		client.Name = rec.Name

	case domain.EventPresenceUpdate:
		var p domain.PresenceUpdatePayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		_, err := h.presence.Update(client.ID, p)
		dispatchError(client, env.Type, err)

	case domain.EventChatJoin:
		var p domain.ChatJoinPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		if p.Channel == "" {
			sendError(client, domain.CodeBadPayload, "channel is required", env.Type)
			return
		}
		h.hub.Subscribe(client, p.Channel)

	case domain.EventChatLeave:
		var p domain.ChatJoinPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		h.hub.Unsubscribe(client, p.Channel)

	case domain.EventOfficeChat:
		userID, ok := requireUser(client, env.Type)
		if !ok {
			return
		}
		var p domain.OfficeChatPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		_, err := h.chat.PostOffice(ctx, userID, p)
		dispatchError(client, env.Type, err)

	case domain.EventRoomChat:
		userID, ok := requireUser(client, env.Type)
		if !ok {
			return
		}
		var p domain.RoomChatPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		_, err := h.chat.PostRoom(ctx, userID, p)
		dispatchError(client, env.Type, err)

	case domain.EventRequestChat:
		userID, ok := requireUser(client, env.Type)
		if !ok {
			return
		}
		var p domain.RequestChatPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		_, err := h.chat.PostRequest(ctx, userID, p)
		dispatchError(client, env.Type, err)

	case domain.EventDMSend:
		userID, ok := requireUser(client, env.Type)
		if !ok {
			return
		}
		var p domain.DMSendPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		_, err := h.dm.Send(ctx, userID, p)
		dispatchError(client, env.Type, err)

	case domain.EventDMDelivered:
		userID, ok := requireUser(client, env.Type)
		if !ok {
			return
		}
		var p domain.DMDeliveredPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		dispatchError(client, env.Type, h.dm.Delivered(ctx, userID, p.MessageID))

	case domain.EventDMRead:
		userID, ok := requireUser(client, env.Type)
		if !ok {
			return
		}
		var p domain.DMReadPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		dispatchError(client, env.Type, h.dm.Read(ctx, userID, p.ConversationID))

	case domain.EventDMTyping:
		userID, ok := requireUser(client, env.Type)
		if !ok {
			return
		}
		var p domain.DMTypingPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		dispatchError(client, env.Type, h.dm.Typing(ctx, userID, client.ID, p))

	case domain.EventCallJoin:
		var p domain.CallJoinPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		dispatchError(client, env.Type, h.calls.Join(client, p.CallID))

	case domain.EventCallOffer, domain.EventCallAnswer, domain.EventCallCandidate:
		var p domain.CallSignalPayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		dispatchError(client, env.Type, h.calls.Relay(client, env.Type, p))

	case domain.EventCallLeave:
		var p domain.CallLeavePayload
		if !decode(client, env.Type, env.Payload, &p) {
			return
		}
		h.calls.Leave(client, p.CallID)

	default:
		sendError(client, domain.CodeUnknownEvent, "unknown event type", env.Type)
	}
}
