package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/neboloop/browserchat/internal/lifecycle"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Error types
var (
	ErrClientSendBufferFull = errors.New("client send buffer full")
	ErrClientClosed         = errors.New("client connection closed")
)

// Message is one frame on the events stream.
type Message struct {
	Type      string                      `json:"type"`
	Event     lifecycle.Event             `json:"event,omitempty"`
	Data      *lifecycle.SessionEventData `json:"data,omitempty"`
	Timestamp time.Time                   `json:"timestamp"`
}

// Filter selects which lifecycle events a client receives. Empty fields match everything.
type Filter struct {
	SessionID string
	Agent     string
}

func (f Filter) match(data lifecycle.SessionEventData) bool {
	if f.SessionID != "" && f.SessionID != data.SessionID {
		return false
	}
	if f.Agent != "" && f.Agent != data.Agent {
		return false
	}
	return true
}

// Client represents a websocket connection
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	filter Filter
	logger *slog.Logger

	ID string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, id string, filter Filter, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		filter: filter,
		logger: logger.With("client", id),
		ID:     id,
		ctx:    ctx,
		cancel: cancel,
	}
}

// readPump drains the peer until it disconnects. Only pings are answered.
func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var in Message
		if err := json.Unmarshal(msg, &in); err != nil {
			c.logger.Debug("ignoring malformed message", "error", err)
			continue
		}
		if in.Type == "ping" {
			_ = c.SendMessage(&Message{Type: "pong", Timestamp: time.Now()})
		}
	}
}

// writePump pumps queued messages to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// SendMessage queues msg without blocking.
func (c *Client) SendMessage(msg *Message) error {
	if c.IsClosed() {
		return ErrClientClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientSendBufferFull
	}
}

// deliver forwards a lifecycle event that passes the client's filter.
func (c *Client) deliver(event lifecycle.Event, data lifecycle.SessionEventData) {
	if !c.filter.match(data) {
		return
	}
	if err := c.SendMessage(&Message{Type: "event", Event: event, Data: &data, Timestamp: time.Now()}); errors.Is(err, ErrClientSendBufferFull) {
		c.logger.Warn("dropping lifecycle event for slow client", "event", string(event))
	}
}

// IsClosed returns whether the client connection is closed
func (c *Client) IsClosed() bool {
	return c.ctx.Err() != nil
}

// Close stops both pumps.
func (c *Client) Close() {
	c.cancel()
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}
