package websocket

import (
	"context"
	"sync"

	"corechat/pkg/logger"
)

// membershipRequest asks the hub loop to move a client in or out of a room.
type membershipRequest struct {
	client *Client
	room   string
	join   bool
}

// Hub tracks connections and room memberships, and fans frames out to rooms.
// A room holds the clients that joined a channel's event stream.
type Hub struct {
	mu sync.RWMutex

	clients map[string]*Client
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	membership chan membershipRequest

	logger *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		membership: make(chan membershipRequest, 512),
		logger:     log,
	}
}

// Run drives the hub's event loop until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.membership:
			if req.join {
				h.joinRoom(req.client, req.room)
			} else {
				h.leaveRoom(req.client, req.room)
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) Join(client *Client, room string) {
	h.membership <- membershipRequest{client: client, room: room, join: true}
}

// Leave is idempotent; leaving a room never joined is a no-op.
func (h *Hub) Leave(client *Client, room string) {
	h.membership <- membershipRequest{client: client, room: room, join: false}
}

// Broadcast fans a frame out to every client in a room. Clients whose send
// queue is full are disconnected: a slow consumer must never hold the room
// hostage or force unbounded buffering.
func (h *Hub) Broadcast(room string, payload []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.rooms[room] {
		if !c.TrySend(payload) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Errorf("disconnecting slow consumer %s (user %s): send queue full", c.ID, c.UserID)
		c.Close()
		h.Unregister(c)
	}
}

// BroadcastToUser sends a frame to every connection a user holds.
func (h *Hub) BroadcastToUser(userID string, payload []byte) {
	var slow []*Client

	h.mu.RLock()
	for _, c := range h.clients {
		if c.UserID.String() == userID {
			if !c.TrySend(payload) {
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Errorf("disconnecting slow consumer %s (user %s): send queue full", c.ID, c.UserID)
		c.Close()
		h.Unregister(c)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Idempotent: a slow-consumer disconnect and the read loop's own
	// cleanup may both unregister the same client.
	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	for _, room := range client.Rooms() {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}

	delete(h.clients, client.ID)
	client.closeSend()
}

func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.joinRoom(room)
}

func (h *Hub) leaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	client.leaveRoom(room)
}
