package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"flashtrade/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 256
	maxMessageSize = 1024
	writeWait      = 10 * time.Second
	readWait       = 120 * time.Second
)

// wsConn is the transport surface the hub needs from a connection.
// *websocket.Conn satisfies it; tests substitute a pipe.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client represents one live connection. Identity fields are owned by the
// hub and mutated only under its lock.
type Client struct {
	ID   string
	hub  *Hub
	conn wsConn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	lastSeen  atomic.Int64 // unix nanos

	// guarded by hub.mu
	userID   string
	role     string
	channels map[model.Channel]bool
}

// UserID returns the authenticated user id, empty before auth
func (c *Client) UserID() string {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.userID
}

// Role returns the authenticated role, empty before auth
func (c *Client) Role() string {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.role
}

// Subscriptions returns the current subscription set
func (c *Client) Subscriptions() []model.Channel {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.subscriptionsLocked()
}

func (c *Client) subscriptionsLocked() []model.Channel {
	subs := make([]model.Channel, 0, len(c.channels))
	for ch := range c.channels {
		subs = append(subs, ch)
	}
	return subs
}

// LastSeen returns the instant of the last liveness signal
func (c *Client) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

func (c *Client) touch(now time.Time) {
	c.lastSeen.Store(now.UnixNano())
}

// Ping sends a liveness probe on the control channel
func (c *Client) Ping(deadline time.Time) error {
	if c.conn == nil {
		return nil
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

// trySend queues data without blocking. A full buffer means the receiver
// is not draining; the caller evicts.
func (c *Client) trySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// ReadPump consumes inbound messages until the connection dies
func (c *Client) ReadPump() {
	defer c.hub.Remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readWait))
		c.hub.Touch(c)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debugf("WS read error: ID=%s err=%v", c.ID, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(readWait))
		c.handleMessage(data)
	}
}

// WritePump drains the send queue to the socket, preserving publish order
func (c *Client) WritePump() {
	defer func() {
		if c.conn != nil {
			c.conn.Close()
		}
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.Remove(c)
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleMessage validates and dispatches one inbound message. Malformed or
// unknown shapes get an error response; the connection stays open.
func (c *Client) handleMessage(data []byte) {
	ctx := context.Background()

	var msg model.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message")
		return
	}

	switch msg.Type {
	case model.ClientMsgAuth:
		resp, err := c.hub.Authenticate(ctx, c, msg.Token)
		c.sendJSON(resp)
		if err != nil {
			return
		}
		if snapshot, err := c.hub.UserSnapshot(ctx, resp.UserID); err == nil {
			c.sendJSON(snapshot)
		}

	case model.ClientMsgSubscribe:
		applied, subs, err := c.hub.Subscribe(c, msg.Channels)
		if err != nil {
			c.sendError("not authenticated")
			return
		}
		c.sendJSON(&model.SubscriptionResponse{
			Type:          model.ServerMsgSubscribed,
			Channels:      applied,
			Subscriptions: subs,
		})

	case model.ClientMsgUnsubscribe:
		applied, subs, err := c.hub.Unsubscribe(c, msg.Channels)
		if err != nil {
			c.sendError("not authenticated")
			return
		}
		c.sendJSON(&model.SubscriptionResponse{
			Type:          model.ServerMsgUnsubscribed,
			Channels:      applied,
			Subscriptions: subs,
		})

	case model.ClientMsgHeartbeat:
		c.hub.Touch(c)

	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) sendJSON(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.hub.log.Errorf("Failed to marshal WS response: %v", err)
		return
	}
	if !c.trySend(data) {
		c.hub.Remove(c)
	}
}

func (c *Client) sendError(message string) {
	c.sendJSON(&model.ErrorMessage{Type: model.ServerMsgError, Message: message})
}

// UserSnapshot builds the user_data payload pushed after auth and after
// balance-affecting events.
func (h *Hub) UserSnapshot(ctx context.Context, userID string) (*model.UserDataMessage, error) {
	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	balance, err := h.users.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.UserDataMessage{
		Type: model.ServerMsgUserData,
		Data: model.UserSnapshot{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
			Balance:  balance,
		},
	}, nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS middleware in front
	},
}

// ServeWS upgrades the request and starts the connection's pumps. The
// connection starts unauthenticated; identity arrives in-band via an auth
// message.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorf("Failed to upgrade websocket: %v", err)
		return
	}

	client := h.Register(conn)

	go client.WritePump()
	go client.ReadPump()
}
