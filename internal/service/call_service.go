package service

import (
	"sync"

	"github.com/SamadritaSarkar339/monstac/internal/domain"
	"github.com/SamadritaSarkar339/monstac/internal/hub"
	pkglog "github.com/SamadritaSarkar339/monstac/pkg/log"
)

const callCapacity = 2

// CallService relays WebRTC signaling between the two participants of a
// call room. Signaling bodies are opaque; the service never inspects SDP
// or ICE payloads. Room membership lives only in memory.
type CallService struct {
	hub  *hub.Hub
	feed *Feed

	mu    sync.Mutex
	rooms map[string]map[string]*hub.Client // callID -> connectionID -> client
}

// NewCallService creates a call signaling service.
func NewCallService(h *hub.Hub, feed *Feed) *CallService {
	return &CallService{
		hub:   h,
		feed:  feed,
		rooms: make(map[string]map[string]*hub.Client),
	}
}

// Join enters a call room. The capacity check and the insert are atomic,
// so two racing joiners can never both become the third participant.
// When the room is full the joiner gets a full event and ErrCallFull;
// when the join completes the room, the earlier participant gets ready.
func (s *CallService) Join(client *hub.Client, callID string) error {
	if callID == "" {
		return ErrMissingField
	}

	s.mu.Lock()
	room, ok := s.rooms[callID]
	if !ok {
		room = make(map[string]*hub.Client)
		s.rooms[callID] = room
	}
	if _, already := room[client.ID]; !already && len(room) >= callCapacity {
		s.mu.Unlock()
		s.hub.SendToClient(client.ID, &domain.CallFullMessage{
			Type:    domain.EventCallFull,
			CallID:  callID,
			Message: "call room is full",
		})
		return ErrCallFull
	}
	room[client.ID] = client
	full := len(room) == callCapacity
	s.mu.Unlock()

	s.hub.Subscribe(client, domain.CallChannel(callID))

	pkglog.L().Info().
		Str(pkglog.FieldCallID, callID).
		Str(pkglog.FieldConnectionID, client.ID).
		Msg("call join")

	// Both members get ready; each side decides its negotiation role
	// from its own join order.
	if full {
		s.hub.Publish(domain.CallChannel(callID), &domain.CallReadyMessage{
			Type:   domain.EventCallReady,
			CallID: callID,
		}, "")
		s.feed.CallReady(callID)
	}
	return nil
}

// Relay forwards an offer, answer or candidate to the peer. The sender
// must be in the room.
func (s *CallService) Relay(client *hub.Client, event string, p domain.CallSignalPayload) error {
	if p.CallID == "" {
		return ErrMissingField
	}

	s.mu.Lock()
	_, member := s.rooms[p.CallID][client.ID]
	s.mu.Unlock()
	if !member {
		return ErrNotParticipant
	}

	return s.hub.Publish(domain.CallChannel(p.CallID), &domain.CallSignalMessage{
		Type:      event,
		CallID:    p.CallID,
		Offer:     p.Offer,
		Answer:    p.Answer,
		Candidate: p.Candidate,
	}, client.ID)
}

// Leave exits a call room, notifying the remaining participant. Leaving
// a room the client is not in is a no-op.
func (s *CallService) Leave(client *hub.Client, callID string) {
	if callID == "" {
		return
	}
	s.leave(client, callID)
}

// HandleDisconnect removes a dropped connection from every call room it
// occupied.
func (s *CallService) HandleDisconnect(client *hub.Client) {
	s.mu.Lock()
	var callIDs []string
	for callID, room := range s.rooms {
		if _, ok := room[client.ID]; ok {
			callIDs = append(callIDs, callID)
		}
	}
	s.mu.Unlock()

	for _, callID := range callIDs {
		s.leave(client, callID)
	}
}

func (s *CallService) leave(client *hub.Client, callID string) {
	s.mu.Lock()
	room, ok := s.rooms[callID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if _, member := room[client.ID]; !member {
		s.mu.Unlock()
		return
	}
	delete(room, client.ID)
	if len(room) == 0 {
		delete(s.rooms, callID)
	}
	s.mu.Unlock()

	s.hub.Unsubscribe(client, domain.CallChannel(callID))
	s.hub.Publish(domain.CallChannel(callID), &domain.CallPeerLeftMessage{
		Type:   domain.EventCallPeerLeft,
		CallID: callID,
	}, client.ID)
	s.feed.CallPeerLeft(callID)

	pkglog.L().Info().
		Str(pkglog.FieldCallID, callID).
		Str(pkglog.FieldConnectionID, client.ID).
		Msg("call leave")
}

// Participants reports how many connections occupy a call room.
func (s *CallService) Participants(callID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms[callID])
}
