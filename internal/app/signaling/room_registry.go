package signaling

import (
	"slices"
	"strings"
)

// Room is an open room.
type Room struct {
	// ID is the client-supplied room id, unique among open rooms.
	ID string

	// Name and CoverURL are display metadata.
	Name     string
	CoverURL string

	// Host is the connection that created the room. It never changes.
	Host Conn

	// Guests holds joined connections in join order. Duplicates are kept.
	Guests []Conn
}

// RoomSummary is the public listing entry of a room.
type RoomSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Cover string `json:"cover"`
}

// RoomRegistry tracks open rooms by id, with a reverse index from host
// connection to the ids of the rooms it hosts. It is not safe for concurrent
// use; Manager serializes access.
type RoomRegistry struct {
	rooms  map[string]*Room
	byHost map[Conn][]string
}

// NewRoomRegistry returns an empty RoomRegistry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]*Room),
		byHost: make(map[Conn][]string),
	}
}

// Create opens a room with an empty guest list, replacing any room with the same id.
func (r *RoomRegistry) Create(id, name, cover string, host Conn) *Room {
	if prev, ok := r.rooms[id]; ok {
		r.unindex(prev.Host, id)
	}

	r.byHost[host] = append(r.byHost[host], id)

	room := &Room{ID: id, Name: name, CoverURL: cover, Host: host}
	r.rooms[id] = room
	return room
}

// Lookup returns the room with the given id.
func (r *RoomRegistry) Lookup(id string) (*Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

// RemoveByHostConnection removes and returns the earliest-created room still
// hosted by conn.
func (r *RoomRegistry) RemoveByHostConnection(conn Conn) (*Room, bool) {
	ids := r.byHost[conn]
	if len(ids) == 0 {
		return nil, false
	}

	room := r.rooms[ids[0]]
	r.Remove(ids[0])
	return room, true
}

// AddGuest appends conn to the room's guest list. It reports false if the room does not exist.
func (r *RoomRegistry) AddGuest(id string, conn Conn) bool {
	room, ok := r.rooms[id]
	if !ok {
		return false
	}

	room.Guests = append(room.Guests, conn)
	return true
}

// RemoveGuest removes every occurrence of conn from the room's guest list.
// It reports false if the room does not exist.
func (r *RoomRegistry) RemoveGuest(id string, conn Conn) bool {
	room, ok := r.rooms[id]
	if !ok {
		return false
	}

	room.Guests = slices.DeleteFunc(room.Guests, func(c Conn) bool { return c == conn })
	return true
}

// Remove deletes the room with the given id, if present.
func (r *RoomRegistry) Remove(id string) {
	room, ok := r.rooms[id]
	if !ok {
		return
	}

	delete(r.rooms, id)
	r.unindex(room.Host, id)
}

// Snapshot lists every open room, ordered by id.
func (r *RoomRegistry) Snapshot() []RoomSummary {
	out := make([]RoomSummary, 0, len(r.rooms))
	for id, room := range r.rooms {
		out = append(out, RoomSummary{ID: id, Name: room.Name, Cover: room.CoverURL})
	}

	slices.SortFunc(out, func(a, b RoomSummary) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Len returns the number of open rooms.
func (r *RoomRegistry) Len() int {
	return len(r.rooms)
}

func (r *RoomRegistry) unindex(host Conn, id string) {
	ids := slices.DeleteFunc(r.byHost[host], func(v string) bool { return v == id })
	if len(ids) == 0 {
		delete(r.byHost, host)
		return
	}
	r.byHost[host] = ids
}
