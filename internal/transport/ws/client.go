package ws

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
)

// Conn is one client connection to the bridge. Receive must be called from a
// single goroutine; Send and Close may be called from any.
type Conn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a websocket connection to url.
func Dial(ctx context.Context, url string) (*Conn, error) {
	d := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		ReadBufferSize:   64 * 1024,
		WriteBufferSize:  64 * 1024,
	}
	conn, resp, err := d.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Conn{conn: conn}, nil
}

// Send writes one text frame.
func (c *Conn) Send(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Receive blocks for the next frame. A normal close by the peer, or a
// connection already closed locally, is reported as io.EOF.
func (c *Conn) Receive() ([]byte, error) {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		if c.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}
	return msg, nil
}

// Close sends a close frame (best effort) and closes the socket.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
