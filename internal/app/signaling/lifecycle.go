package signaling

import "fmt"

// HandleClose runs the teardown for a closed connection. It must be called
// exactly once per connection, after its last HandleMessage.
//
// A connection that registered users departs as those users: each user's room
// host gets a leave notice and the connection leaves that room's guest list.
// Rooms the same connection hosts are then left open. Only a connection with
// no registered users is torn down as a host, closing every room it created.
func (m *Manager) HandleClose(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.conns, conn)

	departed := 0
	for {
		u, ok := m.users.RemoveByConnection(conn)
		if !ok {
			break
		}
		m.departUser(u)
		departed++
	}

	if departed > 0 {
		return
	}

	for {
		room, ok := m.rooms.RemoveByHostConnection(conn)
		if !ok {
			break
		}
		m.closeRoom(room)
	}
}

// departUser notifies the host of u's room and drops u's connection from its
// guest list. u has already been removed from the user registry.
func (m *Manager) departUser(u *User) {
	logger := m.logger.With().Str("conn_id", u.Conn.ID()).Str("user_id", u.ID).Logger()

	room, ok := m.rooms.Lookup(u.RoomID)
	if !ok {
		logger.Info().Msg("User left.")
		return
	}

	m.send(room.Host, TypeLeave, LeavePayload{
		UserID:   u.ID,
		Username: u.Name,
		Message:  fmt.Sprintf("User %s(%s) left the room.", u.Name, u.ID),
	})
	m.rooms.RemoveGuest(room.ID, u.Conn)

	logger.Info().Str("room_id", room.ID).Int("guests", len(room.Guests)).Msg("User left room.")
}

// closeRoom tells every guest that room closed, then announces the closure to
// every registered user. room has already been removed from the room registry.
func (m *Manager) closeRoom(room *Room) {
	notice := ClosePayload{
		RoomID:   room.ID,
		RoomName: room.Name,
		Message:  fmt.Sprintf("Room %s(%s) has been closed.", room.Name, room.ID),
	}
	for _, guest := range room.Guests {
		m.send(guest, TypeClose, notice)
	}

	m.broadcastToUsers(TypeUpdateRooms, UpdateRoomsPayload{RoomID: room.ID, Type: RoomClosed})

	m.logger.Info().
		Str("conn_id", room.Host.ID()).
		Str("room_id", room.ID).
		Int("guests", len(room.Guests)).
		Msg("Room closed by host disconnect.")
}
