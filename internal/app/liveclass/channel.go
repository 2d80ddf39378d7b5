package liveclass

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"edulive/internal/app/wire"
)

const (
	// channelWriteWait bounds every websocket write.
	channelWriteWait = 10 * time.Second
)

// channelConn wraps one websocket channel instance. Each Connect creates a
// fresh channelConn; the session compares pointers to drop events from a
// stale channel after a reconnect or teardown.
type channelConn struct {
	ws *websocket.Conn

	// writeMu serializes writes; gorilla connections allow one writer.
	writeMu sync.Mutex

	closeOnce sync.Once
}

func newChannelConn(ws *websocket.Conn) *channelConn {
	return &channelConn{ws: ws}
}

// sendEvent encodes and writes one protocol frame.
func (c *channelConn) sendEvent(t wire.EventType, payload any) error {
	frame, err := wire.Encode(t, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(channelWriteWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// SendEvent implements media.ChannelSender for the delegate's own signalling.
func (c *channelConn) SendEvent(eventType string, payload any) error {
	return c.sendEvent(wire.EventType(eventType), payload)
}

// readFrame blocks for the next inbound frame.
func (c *channelConn) readFrame() (wire.Envelope, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return wire.Envelope{}, err
	}
	return wire.Decode(data)
}

// close shuts the channel down exactly once, attempting a polite close frame
// first.
func (c *channelConn) close() {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.SetWriteDeadline(time.Now().Add(channelWriteWait))
		_ = c.ws.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		c.writeMu.Unlock()

		_ = c.ws.Close()
	})
}
