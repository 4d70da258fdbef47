package infrastructure

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"primeNotify/internal/modules/realtime/application/port"
	"primeNotify/internal/modules/realtime/domain"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 1 << 16
)

// Client is one live socket for one user.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	userID   string
	commands *CommandProcessor

	subMu     sync.Mutex
	cancelSub port.CancelFunc

	sendMu    sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// NewClient creates a client with a buffered send queue. A full queue drops
// the connection rather than blocking the consumer behind a slow reader.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, buf int, commands *CommandProcessor) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, buf),
		userID:   userID,
		commands: commands,
	}
}

// Send queues a frame for delivery. Delivery is at-most-once: frames for a
// full buffer or a closed socket are dropped.
func (c *Client) Send(msg *domain.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal error", slog.Any("error", err))
		return
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("websocket send buffer full", slog.String("userId", c.userID))
		go c.hub.Unregister(c)
	}
}

// setSubscription swaps in a new event stream cancel, tearing down any
// previous one. Subscribing twice keeps a single stream.
func (c *Client) setSubscription(cancel port.CancelFunc) {
	c.subMu.Lock()
	previous := c.cancelSub
	c.cancelSub = cancel
	c.subMu.Unlock()
	if previous != nil {
		previous()
	}
}

func (c *Client) clearSubscription() {
	c.setSubscription(nil)
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.clearSubscription()
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()
		_ = c.conn.Close()
	})
}

// closeEvicted tells the peer it was replaced by a newer connection before
// closing the socket.
func (c *Client) closeEvicted() {
	deadline := time.Now().Add(writeWait)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Connection replaced by a newer session"), deadline)
	c.close()
}

// WritePump drains the send queue onto the socket and keeps the connection
// alive with periodic pings.
func (c *Client) WritePump() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("websocket write error", slog.String("userId", c.userID), slog.Any("error", err))
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Warn("websocket ping error", slog.String("userId", c.userID), slog.Any("error", err))
				return
			}
		}
	}
}

// ReadPump consumes client commands until the socket drops. Malformed frames
// are logged and ignored; they never terminate the connection.
func (c *Client) ReadPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	defer c.hub.Unregister(c)

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read error", slog.String("userId", c.userID), slog.Any("error", err))
			}
			return
		}

		var cmd domain.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			slog.Debug("websocket ignored malformed frame", slog.String("userId", c.userID), slog.Any("error", err))
			continue
		}
		if c.commands != nil {
			c.commands.Process(c, cmd)
		}
	}
}
