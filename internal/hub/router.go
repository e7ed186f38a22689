package hub

import (
	"sort"
	"sync"
)

// AdminRoom aggregates every session for support staff.
const AdminRoom = "admin"

const sessionRoomPrefix = "session:"

// SessionRoom names the room of one support conversation.
func SessionRoom(sessionID string) string {
	return sessionRoomPrefix + sessionID
}

// Router tracks room membership. A room exists exactly while it has a member.
// Mutations belong to the hub goroutine; the lock only serves readers on
// other goroutines.
type Router struct {
	mu          sync.RWMutex
	rooms       map[string]map[string]*Client // room -> clientID -> client
	memberships map[string]map[string]struct{} // clientID -> rooms

	// stalled collects clients whose send buffer overflowed during Emit.
	stalled []*Client
}

func NewRouter() *Router {
	return &Router{
		rooms:       make(map[string]map[string]*Client),
		memberships: make(map[string]map[string]struct{}),
	}
}

// JoinRoom adds c to room, creating the room implicitly. Joining a room the
// client is already in changes nothing.
func (r *Router) JoinRoom(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		r.rooms[room] = members
	}
	members[c.ID] = c

	joined, ok := r.memberships[c.ID]
	if !ok {
		joined = make(map[string]struct{})
		r.memberships[c.ID] = joined
	}
	joined[room] = struct{}{}
}

// LeaveAll removes c from every room it belongs to and prunes emptied rooms.
func (r *Router) LeaveAll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.memberships[c.ID] {
		if members, ok := r.rooms[room]; ok {
			delete(members, c.ID)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	delete(r.memberships, c.ID)
}

// Emit pushes frame to every current member of room and returns how many
// accepted it. An empty or unknown room is a delivery to nobody.
func (r *Router) Emit(room string, frame []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for _, c := range r.rooms[room] {
		if c.enqueue(frame) {
			delivered++
			continue
		}
		r.stalled = append(r.stalled, c)
	}
	return delivered
}

// Send pushes frame to c alone, for replies such as errors and pongs.
func (r *Router) Send(c *Client, frame []byte) bool {
	if c.enqueue(frame) {
		return true
	}
	r.mu.Lock()
	r.stalled = append(r.stalled, c)
	r.mu.Unlock()
	return false
}

// takeStalled hands over clients that overflowed since the last call.
func (r *Router) takeStalled() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.stalled
	r.stalled = nil
	return out
}

// Members returns the ids of room's members, sorted.
func (r *Router) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rooms[room]))
	for id := range r.rooms[room] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RoomsOf returns the rooms c belongs to, sorted.
func (r *Router) RoomsOf(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.memberships[c.ID]))
	for room := range r.memberships[c.ID] {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

func (r *Router) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
