/*
Package signaling contains the room/user state engine of the relay and the message
protocol spoken over the WebSocket.

This file defines the {type, data} envelope, the closed set of message types, and the
payload shapes for both directions.
*/
package signaling

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// MessageType identifies the kind of an envelope.
type MessageType string

// Client-sendable types. Each one has a case in Manager.route.
const (
	TypeJoin         MessageType = "join"
	TypeCreate       MessageType = "create"
	TypeOffer        MessageType = "offer"
	TypeAnswer       MessageType = "answer"
	TypeICECandidate MessageType = "icecandidate"
	TypeDanmaku      MessageType = "danmaku"
)

// Server-emitted types. offer, answer, icecandidate and danmaku are also forwarded as is.
const (
	TypeError       MessageType = "error"
	TypeSuccess     MessageType = "success"
	TypeJoined      MessageType = "joined"
	TypeLeave       MessageType = "leave"
	TypeClose       MessageType = "close"
	TypeUpdateRooms MessageType = "updateRooms"
)

// RoomEvent is the change announced by an updateRooms message.
type RoomEvent string

const (
	RoomCreated RoomEvent = "create"
	RoomClosed  RoomEvent = "close"
)

// Envelope is the wire wrapper of every frame, in both directions.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

var errNotObject = errors.New("data must be a JSON object")

// Encode marshals data and wraps it in an envelope of type t.
func Encode(t MessageType, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}

	return json.Marshal(Envelope{Type: t, Data: raw})
}

// Decode parses one text frame. Member names are matched exactly. The data
// member may be absent or null, in which case it is treated as an empty object;
// any other non-object value is rejected.
func Decode(frame []byte) (Envelope, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(frame, &members); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	var env Envelope
	if raw, ok := members["type"]; ok {
		if err := json.Unmarshal(raw, &env.Type); err != nil {
			return Envelope{}, fmt.Errorf("decode envelope type: %w", err)
		}
	}
	env.Data = members["data"]

	trimmed := bytes.TrimSpace(env.Data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		env.Data = json.RawMessage("{}")
	case trimmed[0] != '{':
		return Envelope{}, errNotObject
	}

	return env, nil
}

// decodePayload unmarshals an envelope's data into dst, a pointer to a payload
// struct. Members whose name is not exactly one of the struct's json keys are
// dropped first, so "USERID" never fills UserID.
func decodePayload(env Envelope, dst any) error {
	t := reflect.TypeOf(dst)
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode %s payload: destination %T is not a struct pointer", env.Type, dst)
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &members); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}

	keys := wireKeys(t.Elem())
	for name := range members {
		if _, ok := keys[name]; !ok {
			delete(members, name)
		}
	}

	exact, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	if err := json.Unmarshal(exact, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return nil
}

// wireKeyCache maps a payload struct type to the set of its json keys.
var wireKeyCache sync.Map

func wireKeys(t reflect.Type) map[string]struct{} {
	if cached, ok := wireKeyCache.Load(t); ok {
		return cached.(map[string]struct{})
	}

	keys := make(map[string]struct{}, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = struct{}{}
		}
	}

	wireKeyCache.Store(t, keys)
	return keys
}

// JoinPayload is the data of a join message.
type JoinPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// CreatePayload is the data of a create message.
type CreatePayload struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Cover    string `json:"cover"`
}

// OfferPayload is the data of an offer message. Offer is relayed untouched.
type OfferPayload struct {
	Offer  json.RawMessage `json:"offer,omitempty"`
	UserID string          `json:"userId,omitempty"`
	RoomID string          `json:"roomId,omitempty"`
}

// AnswerPayload is the data of an answer message. Answer is relayed untouched.
type AnswerPayload struct {
	Answer json.RawMessage `json:"answer,omitempty"`
	UserID string          `json:"userId,omitempty"`
	RoomID string          `json:"roomId,omitempty"`
}

// ICECandidatePayload is the data of an icecandidate message. Candidate is relayed untouched.
type ICECandidatePayload struct {
	Candidate json.RawMessage `json:"candidate,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	RoomID    string          `json:"roomId,omitempty"`
}

// DanmakuPayload is the data of an inbound danmaku message.
type DanmakuPayload struct {
	RoomID   string          `json:"roomId"`
	Admin    json.RawMessage `json:"admin,omitempty"`
	Message  string          `json:"message"`
	Username string          `json:"username"`
	UserID   string          `json:"userId"`
}

// DanmakuBroadcast is the danmaku data fanned out to a room.
type DanmakuBroadcast struct {
	Admin    json.RawMessage `json:"admin,omitempty"`
	Message  string          `json:"message"`
	Username string          `json:"username"`
	UserID   string          `json:"userId"`
}

// ErrorPayload is the data of an error message.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SuccessPayload is the data of a success message.
type SuccessPayload struct {
	Message string `json:"message"`
}

// JoinedPayload tells a host that a user joined its room.
type JoinedPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// LeavePayload tells a host that a user left its room.
type LeavePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ClosePayload tells a guest that its room was closed.
type ClosePayload struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Message  string `json:"message"`
}

// UpdateRoomsPayload tells registered users that the room list changed.
type UpdateRoomsPayload struct {
	RoomID string    `json:"roomId"`
	Type   RoomEvent `json:"type"`
}
