package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/catchhq/catch-backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 64 * 1024
	sendQueueDepth = 256
)

// Client is one authenticated websocket connection.
type Client struct {
	session models.Session
	conn    *websocket.Conn
	send    chan models.Envelope
}

func newClient(session models.Session, conn *websocket.Conn) *Client {
	return &Client{
		session: session,
		conn:    conn,
		send:    make(chan models.Envelope, sendQueueDepth),
	}
}

// Session returns the identity bound to this connection.
func (c *Client) Session() models.Session {
	return c.session
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings. It exits when the hub closes the send queue.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump parses inbound envelopes and hands them to dispatch until the
// connection drops.
func (c *Client) readPump(dispatch func(models.Envelope)) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env models.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		dispatch(env)
	}
}
