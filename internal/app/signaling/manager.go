/*
Package signaling contains the room/user state engine of the relay and the message
protocol spoken over the WebSocket.

This file defines the Manager, which owns the user and room registries behind a single
lock, tracks live connections, and delivers envelopes to them.
*/
package signaling

import (
	"sync"

	"github.com/rs/zerolog"

	"signalroom/internal/pkg/errs"
	"signalroom/internal/pkg/logx"
)

// Manager is the relay's state object. Every inbound event (message or close)
// runs to completion under mu, so multi-step sequences such as "look up room,
// then append guest" are atomic with respect to each other.
type Manager struct {
	// mu guards users, rooms, conns and closed as one unit.
	mu sync.Mutex

	users *UserRegistry
	rooms *RoomRegistry

	// conns holds every attached, not yet closed connection.
	conns map[Conn]struct{}

	closed bool

	// structured logger with Manager context.
	logger zerolog.Logger
}

// Stats is a point-in-time count of the Manager's state.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Users       int `json:"users"`
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		users:  NewUserRegistry(),
		rooms:  NewRoomRegistry(),
		conns:  make(map[Conn]struct{}),
		logger: logx.Component("Manager"),
	}
}

// Attach records a newly opened connection. It reports false, and the caller
// should close the connection, once the Manager has been shut down.
func (m *Manager) Attach(conn Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.conns[conn] = struct{}{}
	m.logger.Debug().Str("conn_id", conn.ID()).Int("connections", len(m.conns)).Msg("Connection attached.")
	return true
}

// Rooms returns the public listing of every open room.
func (m *Manager) Rooms() []RoomSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rooms.Snapshot()
}

// Stats returns the current connection, room and user counts.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Connections: len(m.conns),
		Rooms:       m.rooms.Len(),
		Users:       m.users.Len(),
	}
}

// Shutdown closes every attached connection and refuses new ones. Registry
// cleanup happens through the usual HandleClose path as each connection's read
// loop exits.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down Manager...")

	m.mu.Lock()
	m.closed = true
	conns := make([]Conn, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}

	m.logger.Info().Int("closed_connections", len(conns)).Msg("Manager shutdown complete.")
}

// send encodes one envelope and queues it on conn. Failures are logged and
// otherwise ignored: delivery is best effort and one failed target never
// affects the others.
func (m *Manager) send(conn Conn, t MessageType, data any) {
	frame, err := Encode(t, data)
	if err != nil {
		m.logger.Error().Err(err).Str("msg_type", string(t)).Msg("Failed to encode outbound message.")
		return
	}

	m.sendFrame(conn, t, frame)
}

// sendFrame queues an already encoded envelope of type t on conn.
func (m *Manager) sendFrame(conn Conn, t MessageType, frame []byte) {
	if err := conn.Send(frame); err != nil {
		m.logger.Warn().Err(err).
			Str("conn_id", conn.ID()).
			Str("msg_type", string(t)).
			Msg("Dropped outbound message.")
	}
}

// sendError reports customErr to conn as an error envelope.
func (m *Manager) sendError(conn Conn, customErr *errs.CustomError) {
	m.send(conn, TypeError, ErrorPayload{Code: customErr.Code, Message: customErr.Message})
}

// broadcastToUsers sends one envelope to the connection of every registered user.
func (m *Manager) broadcastToUsers(t MessageType, data any) {
	for _, u := range m.users.All() {
		m.send(u.Conn, t, data)
	}
}

// ErrorFrame encodes customErr as an error envelope, for transports that need
// to report an error outside of Manager (rate limiting, oversize frames).
func ErrorFrame(customErr *errs.CustomError) []byte {
	frame, err := Encode(TypeError, ErrorPayload{Code: customErr.Code, Message: customErr.Message})
	if err != nil {
		// ErrorPayload holds only an int and a string
		panic(err)
	}
	return frame
}
