package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elyesghazel/notedown/internal/logging"
	"github.com/elyesghazel/notedown/internal/server/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// conn is one live WebSocket connection together with its transient session
// state. Outbound frames go through the buffered send channel so the write
// side never blocks a broadcast.
type conn struct {
	id     string
	sess   *models.Session
	sock   *websocket.Conn
	send   chan []byte
	logger logging.Logger
	server *Server
}

// readPump consumes inbound frames until the socket dies, handling each
// event to completion before reading the next one for this connection.
func (c *conn) readPump() {
	defer func() {
		c.server.unregister(c)
		c.sock.Close()
	}()

	c.sock.SetReadLimit(maxMessageSize)
	c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ctx := context.Background()
	for {
		_, msg, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug(ctx, "connection closed unexpectedly", "err", err)
			}
			return
		}
		c.server.handleMessage(ctx, c, msg)
	}
}

// writePump pushes queued frames to the socket and keeps the connection
// alive with periodic pings. It exits when the send channel is closed.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues msg for delivery, dropping it if the connection's buffer is
// full. A dropped content frame is corrected by the next update.
func (c *conn) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
		c.logger.Warn(context.Background(), "send buffer full, dropping frame", "conn_id", c.id)
	}
}
