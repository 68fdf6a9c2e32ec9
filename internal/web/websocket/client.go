package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// Client is one WebSocket connection of an authenticated user
type Client struct {
	ID     string
	UserID int64

	conn *websocket.Conn
	hub  *Hub
	send chan []byte

	mu            sync.Mutex
	lastHeartbeat time.Time
	closed        bool
	closeOnce     sync.Once
	done          chan struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		ID:            uuid.New().String(),
		UserID:        userID,
		conn:          conn,
		hub:           hub,
		send:          make(chan []byte, sendBuffer),
		lastHeartbeat: hub.now(),
		done:          make(chan struct{}),
	}
}

// LastHeartbeat returns when the client was last heard from
func (c *Client) LastHeartbeat() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHeartbeat
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastHeartbeat = c.hub.now()
	c.mu.Unlock()
}

// enqueue queues data without blocking
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}

// readPump answers ping messages and keeps the heartbeat fresh. Any other
// client message is ignored.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("read failed", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
		c.touch()

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(TypeError, map[string]string{"message": "invalid message"})
			continue
		}
		if msg.Type == TypePing {
			c.reply(TypePong, nil)
		}
	}
}

func (c *Client) reply(typ string, data any) {
	msg, err := NewMessage(typ, data)
	if err != nil {
		return
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.enqueue(raw)
}

// writePump delivers queued messages and pings until the client closes
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return

		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
