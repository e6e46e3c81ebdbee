package signaling

import "errors"

var (
	// ErrConnClosed is returned by Conn.Send after the connection was closed.
	ErrConnClosed = errors.New("connection closed")

	// ErrSendQueueFull is returned by Conn.Send when the outbound queue is full.
	ErrSendQueueFull = errors.New("send queue full")
)

// Conn is one bidirectional transport session. The registries store Conn values
// and compare them with ==, so implementations must be pointer types.
type Conn interface {
	// ID identifies the connection in logs.
	ID() string

	// Send queues one text frame without blocking.
	Send(frame []byte) error

	// Close terminates the session. It must be safe to call more than once.
	Close()
}
