package collab

import (
	"sync"

	"github.com/gorilla/websocket"

	"storymapper/api/internal/app"
)

// client is one WebSocket connection with its verified identity and the
// set of story map rooms it has joined.
type client struct {
	id      string
	session app.Session
	conn    *websocket.Conn

	writeMu sync.Mutex
	rooms   map[string]bool
}

func (c *client) send(eventType string, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(outbound{Type: eventType, Payload: payload})
}

func (c *client) sendError(code, message string, context map[string]any) {
	_ = c.send(EventError, ErrorPayload{Message: message, Code: code, Context: context})
}

// Hub tracks room membership in process memory. One room per story map,
// keyed by the story map id.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[string]*client
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]*client)}
}

// Join adds the client to the room and returns the roster as it stands
// after the join, sender included.
func (h *Hub) Join(storyMapID string, c *client) []RosterEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[storyMapID]
	if room == nil {
		room = make(map[string]*client)
		h.rooms[storyMapID] = room
	}
	room[c.id] = c
	c.rooms[storyMapID] = true

	roster := make([]RosterEntry, 0, len(room))
	for _, member := range room {
		roster = append(roster, RosterEntry{
			UserID:      member.session.UserID,
			DisplayName: member.session.UserName,
		})
	}
	return roster
}

func (h *Hub) Leave(storyMapID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(storyMapID, c)
}

// Drop removes the client from every room it joined and returns the room
// ids it was removed from, so the gateway can announce the departures.
func (h *Hub) Drop(c *client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	left := make([]string, 0, len(c.rooms))
	for storyMapID := range c.rooms {
		h.removeLocked(storyMapID, c)
		left = append(left, storyMapID)
	}
	return left
}

func (h *Hub) removeLocked(storyMapID string, c *client) {
	delete(c.rooms, storyMapID)
	room := h.rooms[storyMapID]
	if room == nil {
		return
	}
	delete(room, c.id)
	if len(room) == 0 {
		delete(h.rooms, storyMapID)
	}
}

// Member reports whether the client currently belongs to the room.
func (h *Hub) Member(storyMapID string, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[storyMapID]
	if room == nil {
		return false
	}
	_, ok := room[c.id]
	return ok
}

// Broadcast sends the event to every room member. When excludeConnID is
// non-empty that connection is skipped, which implements the
// broadcast-to-others fan-out for update and move events.
func (h *Hub) Broadcast(storyMapID, eventType string, payload any, excludeConnID string) {
	h.mu.Lock()
	members := make([]*client, 0, len(h.rooms[storyMapID]))
	for _, member := range h.rooms[storyMapID] {
		if member.id == excludeConnID {
			continue
		}
		members = append(members, member)
	}
	h.mu.Unlock()

	for _, member := range members {
		_ = member.send(eventType, payload)
	}
}
