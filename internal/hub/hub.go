package hub

import (
	"encoding/json"
	"sync"

	pkglog "github.com/SamadritaSarkar339/monstac/pkg/log"
)

// Hub tracks all live WebSocket connections and their channel
// subscriptions. All methods are safe for concurrent use and take effect
// atomically with respect to each other, so a Publish never observes a
// half-registered client.
type Hub struct {
	clients  map[string]*Client
	channels map[string]map[string]*Client // channel -> clientID -> client
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[string]*Client),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	pkglog.L().Info().Str(pkglog.FieldConnectionID, client.ID).Msg("client registered")
}

// Unregister removes a client, drops all of its channel subscriptions and
// closes its send queue. Calling it twice for the same client is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	for channel, subs := range h.channels {
		delete(subs, client.ID)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
	delete(h.clients, client.ID)
	close(client.Send)
	h.mu.Unlock()

	pkglog.L().Info().Str(pkglog.FieldConnectionID, client.ID).Msg("client unregistered")
}

// Subscribe adds a registered client to a channel. Subscribing an unknown
// client is a no-op so a racing disconnect cannot resurrect it.
func (h *Hub) Subscribe(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[string]*Client)
	}
	h.channels[channel][client.ID] = client
}

// Unsubscribe removes a client from a channel, dropping the channel once
// it is empty.
func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.channels[channel]; ok {
		delete(subs, client.ID)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}

// Subscribers returns the number of clients currently on a channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Publish sends a message to every subscriber of a channel, optionally
// excluding one client ID. Clients whose send queue is full are evicted.
func (h *Hub) Publish(channel string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	for clientID, client := range h.channels[channel] {
		if clientID == exclude {
			continue
		}
		select {
		case client.Send <- data:
		default:
			// Send queue full, the client stopped draining
			go h.Unregister(client)
		}
	}
	h.mu.RUnlock()
	return nil
}

// BroadcastAll sends a message to every registered client.
func (h *Hub) BroadcastAll(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			go h.Unregister(client)
		}
	}
	h.mu.RUnlock()
	return nil
}

// SendToClient sends a message to a single client by ID. Unknown clients
// are ignored. The send happens under the lock so a racing Unregister
// cannot close the queue mid-send.
func (h *Hub) SendToClient(clientID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[clientID]
	if !ok {
		return nil
	}

	select {
	case client.Send <- data:
	default:
		go h.Unregister(client)
	}
	return nil
}
