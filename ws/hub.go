// ws/hub.go
package ws

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ViniZap4/lumi-board/protocol"
)

type audience int

const (
	toConn audience = iota
	toRoom
	toAll
)

type delivery struct {
	audience audience
	target   string
	event    string
	payload  []byte
}

// Hub tracks live connections and the rooms each one has joined, and
// delivers outbound messages to a connection, a room, or everyone. Sends to
// client queues and queue closes happen only on the Run goroutine.
type Hub struct {
	clients map[string]*Client
	members map[string]map[string]struct{} // room id -> connection ids
	joined  map[string]map[string]struct{} // connection id -> room ids
	mu      sync.RWMutex

	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}

	log zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		members:    make(map[string]map[string]struct{}),
		joined:     make(map[string]map[string]struct{}),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "hub").Logger(),
	}
}

// Run processes registrations and deliveries until ctx is cancelled, then
// closes every client queue.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.log.Info().Msg("hub running")

	for {
		select {
		case <-ctx.Done():
			h.shutdownClients()
			return

		case c := <-h.unregister:
			if h.remove(c) {
				h.log.Debug().Str("conn_id", c.id).Str("addr", c.addr).Msg("client unregistered")
			}

		case d := <-h.deliver:
			h.handleDelivery(d)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register adds c to the hub. It reports false when the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Debug().Str("conn_id", c.id).Str("addr", c.addr).Int("clients", count).Msg("client registered")
	return true
}

// Unregister removes c and all its memberships. No one is notified.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join adds the connection to the room's audience. Earlier memberships of
// the connection are kept.
func (h *Hub) Join(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.members[roomID] == nil {
		h.members[roomID] = make(map[string]struct{})
	}
	h.members[roomID][connID] = struct{}{}
	if h.joined[connID] == nil {
		h.joined[connID] = make(map[string]struct{})
	}
	h.joined[connID][roomID] = struct{}{}
}

// Leave removes the connection from the room's audience.
func (h *Hub) Leave(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(connID, roomID)
}

// AudienceFor returns the connections that joined roomID, sorted.
func (h *Hub) AudienceFor(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return sortedKeys(h.members[roomID])
}

// All returns every live connection, sorted.
func (h *Hub) All() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RoomsOf returns the rooms the connection has joined, sorted.
func (h *Hub) RoomsOf(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return sortedKeys(h.joined[connID])
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// ToConn queues a message for a single connection.
func (h *Hub) ToConn(connID, event string, data any) {
	h.enqueue(toConn, connID, event, data)
}

// ToRoom queues a message for every connection in the room.
func (h *Hub) ToRoom(roomID, event string, data any) {
	h.enqueue(toRoom, roomID, event, data)
}

// ToAll queues a message for every live connection.
func (h *Hub) ToAll(event string, data any) {
	h.enqueue(toAll, "", event, data)
}

func (h *Hub) enqueue(a audience, target, event string, data any) {
	payload, err := json.Marshal(protocol.Message{Event: event, Data: data})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to encode outbound message")
		return
	}

	select {
	case h.deliver <- delivery{audience: a, target: target, event: event, payload: payload}:
	case <-h.done:
		h.log.Debug().Str("event", event).Msg("hub stopped, message dropped")
	}
}

func (h *Hub) handleDelivery(d delivery) {
	recipients := h.recipients(d)
	if len(recipients) == 0 {
		return
	}

	var failed []*Client
	for _, c := range recipients {
		select {
		case c.send <- d.payload:
		default:
			failed = append(failed, c)
		}
	}

	h.log.Debug().Str("event", d.event).Int("recipients", len(recipients)).Int("dropped", len(failed)).Msg("delivered")

	for _, c := range failed {
		if h.remove(c) {
			h.log.Warn().Str("conn_id", c.id).Str("addr", c.addr).Msg("client removed due to full send buffer")
		}
	}
}

func (h *Hub) recipients(d delivery) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Client
	switch d.audience {
	case toConn:
		if c, ok := h.clients[d.target]; ok {
			out = append(out, c)
		}
	case toRoom:
		for id := range h.members[d.target] {
			if c, ok := h.clients[id]; ok {
				out = append(out, c)
			}
		}
	case toAll:
		for _, c := range h.clients {
			out = append(out, c)
		}
	}
	return out
}

// remove drops c and its memberships and closes its queue. It reports
// whether c was still registered.
func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	if current, ok := h.clients[c.id]; !ok || current != c {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, c.id)
	for roomID := range h.joined[c.id] {
		h.leaveLocked(c.id, roomID)
	}
	delete(h.joined, c.id)
	h.mu.Unlock()

	close(c.send)
	return true
}

func (h *Hub) leaveLocked(connID, roomID string) {
	if conns, ok := h.members[roomID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.members, roomID)
		}
	}
	if rooms, ok := h.joined[connID]; ok {
		delete(rooms, roomID)
	}
}

func (h *Hub) shutdownClients() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
	h.log.Info().Int("clients", len(clients)).Msg("hub stopped, closed client connections")
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
