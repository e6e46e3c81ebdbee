package signaling

import (
	"fmt"
	"runtime/debug"

	"signalroom/internal/pkg/errs"
	"signalroom/internal/pkg/randx"
)

// HandleMessage decodes one inbound frame from conn and applies it. Any failure,
// including a panic inside a handler, is reported to conn as an error envelope
// and never escapes to the caller.
func (m *Manager) HandleMessage(conn Conn, frame []byte) {
	env, err := Decode(frame)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("conn_id", conn.ID()).
			Int("frame_len", len(frame)).
			Msg("Client sent invalid envelope.")
		m.sendError(conn, errs.NewError(errs.ErrInvalidMessage, err.Error()))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("conn_id", conn.ID()).
				Str("msg_type", string(env.Type)).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Recovered from panic while routing message.")
			m.sendError(conn, errs.From(fmt.Errorf("panic routing %s: %v", env.Type, r)))
		}
	}()

	if customErr := m.route(conn, env); customErr != nil {
		m.logger.Debug().
			Str("conn_id", conn.ID()).
			Str("msg_type", string(env.Type)).
			Int("error_code", customErr.Code).
			Msg("Message rejected.")
		m.sendError(conn, customErr)
	}
}

// route dispatches env to the handler for its type. Unknown types are ignored.
func (m *Manager) route(conn Conn, env Envelope) *errs.CustomError {
	switch env.Type {
	case TypeJoin:
		return handle(m, conn, env, (*Manager).handleJoin)
	case TypeCreate:
		return handle(m, conn, env, (*Manager).handleCreate)
	case TypeOffer:
		return handle(m, conn, env, (*Manager).handleOffer)
	case TypeAnswer:
		return handle(m, conn, env, (*Manager).handleAnswer)
	case TypeICECandidate:
		return handle(m, conn, env, (*Manager).handleICECandidate)
	case TypeDanmaku:
		return handle(m, conn, env, (*Manager).handleDanmaku)
	default:
		m.logger.Debug().
			Str("conn_id", conn.ID()).
			Str("msg_type", string(env.Type)).
			Msg("Ignoring unsupported message type.")
		return nil
	}
}

// handle decodes the envelope's data as T and passes it to fn.
func handle[T any](m *Manager, conn Conn, env Envelope, fn func(*Manager, Conn, T) *errs.CustomError) *errs.CustomError {
	var payload T
	if err := decodePayload(env, &payload); err != nil {
		m.logger.Warn().Err(err).Str("conn_id", conn.ID()).Msg("Client sent invalid payload.")
		return errs.NewError(errs.ErrInvalidMessage, err.Error())
	}

	return fn(m, conn, payload)
}

// handleJoin registers the user and, when a room id is given, attaches the
// connection to that room as a guest.
func (m *Manager) handleJoin(conn Conn, p JoinPayload) *errs.CustomError {
	if !randx.IsValidID(p.UserID) {
		return errs.NewError(errs.ErrInvalidParams)
	}

	// The user is registered even when the room turns out to be missing.
	m.users.Upsert(p.UserID, p.Username, p.RoomID, conn)

	if p.RoomID == "" {
		m.logger.Info().Str("conn_id", conn.ID()).Str("user_id", p.UserID).Msg("User registered.")
		return nil
	}

	room, ok := m.rooms.Lookup(p.RoomID)
	if !ok {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	m.rooms.AddGuest(room.ID, conn)

	m.logger.Info().
		Str("conn_id", conn.ID()).
		Str("user_id", p.UserID).
		Str("room_id", room.ID).
		Int("guests", len(room.Guests)).
		Msg("User joined room.")

	m.send(room.Host, TypeJoined, JoinedPayload{UserID: p.UserID, Username: p.Username})
	m.send(conn, TypeSuccess, SuccessPayload{Message: fmt.Sprintf("Joined room %s.", room.Name)})
	return nil
}

// handleCreate opens a room hosted by conn and announces it to every registered user.
func (m *Manager) handleCreate(conn Conn, p CreatePayload) *errs.CustomError {
	if !randx.IsValidID(p.RoomID) {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if prev, ok := m.rooms.Lookup(p.RoomID); ok {
		m.logger.Warn().
			Str("room_id", p.RoomID).
			Str("prev_host", prev.Host.ID()).
			Str("new_host", conn.ID()).
			Msg("Room id reused; replacing existing room.")
	}

	m.rooms.Create(p.RoomID, p.RoomName, p.Cover, conn)
	m.logger.Info().Str("conn_id", conn.ID()).Str("room_id", p.RoomID).Msg("Room created.")

	m.broadcastToUsers(TypeUpdateRooms, UpdateRoomsPayload{RoomID: p.RoomID, Type: RoomCreated})
	return nil
}

// handleOffer forwards an SDP offer to the named user.
func (m *Manager) handleOffer(conn Conn, p OfferPayload) *errs.CustomError {
	if !randx.IsValidID(p.UserID) {
		return errs.NewError(errs.ErrInvalidParams)
	}

	u, ok := m.users.Lookup(p.UserID)
	if !ok {
		return errs.NewError(errs.ErrUserNotFound)
	}

	m.send(u.Conn, TypeOffer, p)
	return nil
}

// handleAnswer forwards an SDP answer to the host of the named room.
func (m *Manager) handleAnswer(conn Conn, p AnswerPayload) *errs.CustomError {
	if !randx.IsValidID(p.RoomID) {
		return errs.NewError(errs.ErrInvalidParams)
	}

	room, ok := m.rooms.Lookup(p.RoomID)
	if !ok {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	m.send(room.Host, TypeAnswer, p)
	return nil
}

// handleICECandidate forwards an ICE candidate to the named user.
func (m *Manager) handleICECandidate(conn Conn, p ICECandidatePayload) *errs.CustomError {
	if !randx.IsValidID(p.UserID) {
		return errs.NewError(errs.ErrInvalidParams)
	}

	u, ok := m.users.Lookup(p.UserID)
	if !ok {
		return errs.NewError(errs.ErrUserNotFound)
	}

	m.send(u.Conn, TypeICECandidate, p)
	return nil
}

// handleDanmaku fans a chat line out to every guest of the room and its host.
func (m *Manager) handleDanmaku(conn Conn, p DanmakuPayload) *errs.CustomError {
	if !randx.IsValidID(p.RoomID) {
		return errs.NewError(errs.ErrInvalidParams)
	}

	room, ok := m.rooms.Lookup(p.RoomID)
	if !ok {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	vo := DanmakuBroadcast{
		Admin:    p.Admin,
		Message:  p.Message,
		Username: p.Username,
		UserID:   p.UserID,
	}

	frame, err := Encode(TypeDanmaku, vo)
	if err != nil {
		return errs.From(err)
	}

	for _, guest := range room.Guests {
		m.sendFrame(guest, TypeDanmaku, frame)
	}
	m.sendFrame(room.Host, TypeDanmaku, frame)
	return nil
}
