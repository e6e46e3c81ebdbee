/*
Package signaling contains the room/user state engine of the relay and the message
protocol spoken over the WebSocket.

This file defines Client, the WebSocket implementation of Conn. It runs the read and
write loops for one connection, keeps the connection alive with ping/pong, limits the
inbound message rate, and hands frames and the final close to the Manager.
*/
package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"signalroom/internal/pkg/errs"
	"signalroom/internal/pkg/logx"
	"signalroom/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// number of outbound frames queued per client before new ones are dropped.
	sendBufferSize = 256
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// MaxMessageSize is the largest inbound frame accepted, in bytes.
	MaxMessageSize int64

	// MessageRate and MessageBurst bound the inbound message rate.
	MessageRate  rate.Limit
	MessageBurst int
}

// Client is an active WebSocket connection.
type Client struct {
	id string

	manager *Manager

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// a buffered channel of encoded frames waiting to be written.
	send chan []byte

	// inbound message rate limiter.
	limiter *rate.Limiter

	maxMessageSize int64

	// mu guards closed and the close of send.
	mu     sync.Mutex
	closed bool

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for wsConn. Call Start to attach it to the
// Manager and run its loops.
func NewClient(manager *Manager, wsConn *websocket.Conn, opts ClientOptions) *Client {
	id := randx.ConnID()

	return &Client{
		id:             id,
		manager:        manager,
		conn:           wsConn,
		send:           make(chan []byte, sendBufferSize),
		limiter:        rate.NewLimiter(opts.MessageRate, opts.MessageBurst),
		maxMessageSize: opts.MaxMessageSize,
		logger: logx.Logger().With().
			Str("component", "Client").
			Str("conn_id", id).
			Str("remote_ip", logx.AnonymizeIP(wsConn.RemoteAddr().String())).
			Logger(),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Send queues frame for the write loop without blocking.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
		return ErrSendQueueFull
	}
}

// Close stops the write loop, which sends a close frame and closes the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Start attaches the client to the Manager, starts the write loop, and runs the
// read loop on the calling goroutine until the connection ends.
func (c *Client) Start() {
	if !c.manager.Attach(c) {
		c.logger.Info().Msg("Manager is shut down; rejecting connection.")
		c.Close()
		c.WritePump()
		return
	}

	c.logger.Info().Msg("Client connected.")

	go c.WritePump()
	c.ReadPump()
}

// ReadPump reads frames until the connection fails or closes, then runs the
// Manager's close handling exactly once.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(c.maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn().Int("message_type", messageType).Msg("Client sent non-text frame")
			_ = c.Send(ErrorFrame(errs.NewError(errs.ErrInvalidMessage, "expected a text frame")))
			continue
		}

		if !c.limiter.Allow() {
			c.logger.Warn().Msg("Client exceeded message rate limit")
			_ = c.Send(ErrorFrame(errs.NewError(errs.ErrRateLimitExceeded)))
			continue
		}

		c.manager.HandleMessage(c, frame)
	}
}

// cleanupOnDisconnect hands the close to the Manager and releases the socket.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.manager.HandleClose(c)
	c.Close()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued frames and periodic pings until the send channel is
// closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit so ReadPump unblocks
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedMessage(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one frame pulled from the send channel, or a close
// frame when the channel has been closed. It reports whether WritePump should continue.
func (c *Client) writeQueuedMessage(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a keepalive ping. It reports whether WritePump should continue.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
