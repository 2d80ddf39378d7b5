/*
Package hub contains the server side of the live-class event channel: rooms,
connected clients and the moderation, presence, chat and settings fan-out
between them.

This file defines the Client struct, representing one active WebSocket
connection. It manages the connection lifecycle, the message pumps (ReadPump
and WritePump) and interaction with the Room.
*/
package hub

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"edulive/internal/app/perms"
	"edulive/internal/app/wire"
	"edulive/internal/pkg/errs"
	"edulive/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 16384

	// WsCloseCodeSessionKicked is a custom WebSocket Close Code (4000-4999
	// range) signaling that the session was replaced by a new connection.
	WsCloseCodeSessionKicked = 4001

	// WsCloseCodeRemoved signals that a moderator removed the participant.
	WsCloseCodeRemoved = 4002
)

// Client represents an active WebSocket connection and its participant.
type Client struct {
	// the class room the client currently belongs to.
	room *Room

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// participant identity, fixed for the connection lifetime.
	id   string
	name string
	role perms.Role

	// a buffered channel used to queue frames waiting to be sent.
	send chan []byte

	// structured logger with client and room context.
	logger zerolog.Logger
}

// NewClient constructs a Client bound to a room and identity.
func NewClient(room *Room, wsConn *websocket.Conn, id, name string, role perms.Role) *Client {
	clientLogger := logx.Logger().With().
		Str("client_id", id).
		Str("class_id", room.ID).
		Logger()

	return &Client{
		room:   room,
		conn:   wsConn,
		id:     id,
		name:   name,
		role:   role,
		send:   make(chan []byte, 256),
		logger: clientLogger,
	}
}

// ReadPump reads frames from the WebSocket connection and forwards them to
// the room's event loop. It handles heartbeats (Pong) and performs cleanup
// when the connection closes.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		env, err := wire.Decode(frameBytes)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid frame")
			c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
			continue
		}

		c.room.Submit(c, env)
	}
}

// cleanupOnDisconnect notifies the room and closes the socket when ReadPump
// terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	select {
	case c.room.unregister <- c:
	default:
		c.logger.Warn().Msg("Room unregister channel blocked. Connection cleanup still proceeding.")
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes frames from the send channel to the WebSocket connection
// and maintains the ping heartbeat.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send channel. Returns
// false if the WritePump loop should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping to keep the connection
// alive. Returns false if the loop should terminate.
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

// sendEvent encodes and queues one event for this client.
func (c *Client) sendEvent(t wire.EventType, payload any) error {
	frame, err := wire.Encode(t, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(t)).Msg("Error encoding event for client")
		return err
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame")
		return fmt.Errorf("client send queue full")
	}
}

// SendError queues an error event for the client.
func (c *Client) SendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = fmt.Sprintf("Internal server error: %v", err)
	}

	if sendErr := c.sendEvent(wire.EventError, wire.ErrorPayload{Code: code, Message: message}); sendErr != nil {
		c.logger.Error().Err(sendErr).Msg("Failed to queue error event")
	}
}

// Kick closes the client's connection with a custom close code.
func (c *Client) Kick(code int, reason string) {
	c.logger.Warn().
		Int("close_code", code).
		Str("reason", reason).
		Msg("Sending WS kick message and closing connection.")

	closeMessage := websocket.FormatCloseMessage(code, reason)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to send WS close message.")
	}

	select {
	case <-c.send:
	default:
		close(c.send)
	}
}
