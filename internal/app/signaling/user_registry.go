package signaling

import "slices"

// User is a registered participant.
type User struct {
	// ID is the client-supplied user id, unique among registered users.
	ID string

	// Name is the display name.
	Name string

	// RoomID is the room named in the user's last join; empty if none.
	// It may name a room that did not exist at join time.
	RoomID string

	// Conn is the connection that registered the user.
	Conn Conn
}

// UserRegistry tracks registered users by id, with a reverse index from
// connection to the ids it registered. It is not safe for concurrent use;
// Manager serializes access.
type UserRegistry struct {
	users  map[string]*User
	byConn map[Conn][]string
}

// NewUserRegistry returns an empty UserRegistry.
func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		users:  make(map[string]*User),
		byConn: make(map[Conn][]string),
	}
}

// Upsert inserts or replaces the user with the given id. A replaced entry's
// previous connection loses its claim on the id and is otherwise left alone.
func (r *UserRegistry) Upsert(id, name, roomID string, conn Conn) *User {
	if prev, ok := r.users[id]; ok && prev.Conn != conn {
		r.unindex(prev.Conn, id)
	}

	if !slices.Contains(r.byConn[conn], id) {
		r.byConn[conn] = append(r.byConn[conn], id)
	}

	u := &User{ID: id, Name: name, RoomID: roomID, Conn: conn}
	r.users[id] = u
	return u
}

// Lookup returns the user with the given id.
func (r *UserRegistry) Lookup(id string) (*User, bool) {
	u, ok := r.users[id]
	return u, ok
}

// RemoveByConnection removes and returns the earliest-registered user still
// owned by conn.
func (r *UserRegistry) RemoveByConnection(conn Conn) (*User, bool) {
	ids := r.byConn[conn]
	if len(ids) == 0 {
		return nil, false
	}

	u := r.users[ids[0]]
	r.Remove(ids[0])
	return u, true
}

// Remove deletes the user with the given id, if present.
func (r *UserRegistry) Remove(id string) {
	u, ok := r.users[id]
	if !ok {
		return
	}

	delete(r.users, id)
	r.unindex(u.Conn, id)
}

// All returns every registered user in no particular order.
func (r *UserRegistry) All() []*User {
	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out
}

// Len returns the number of registered users.
func (r *UserRegistry) Len() int {
	return len(r.users)
}

func (r *UserRegistry) unindex(conn Conn, id string) {
	ids := slices.DeleteFunc(r.byConn[conn], func(v string) bool { return v == id })
	if len(ids) == 0 {
		delete(r.byConn, conn)
		return
	}
	r.byConn[conn] = ids
}
