package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"flashtrade/internal/model"
	"flashtrade/pkg/logger"

	"github.com/google/uuid"
)

// Hub owns every live WebSocket connection: identity, role and channel
// subscriptions. It is the connection registry and the channel broadcaster
// in one place; all map mutation happens under a single RWMutex.
type Hub struct {
	clients   map[*Client]bool
	userConns map[string][]*Client
	mu        sync.RWMutex

	verifier TokenVerifier
	users    UserStore
	log      *logger.Logger
}

func NewHub(verifier TokenVerifier, users UserStore) *Hub {
	return &Hub{
		clients:   make(map[*Client]bool),
		userConns: make(map[string][]*Client),
		verifier:  verifier,
		users:     users,
		log:       logger.GetLogger(),
	}
}

// Register adds an unauthenticated connection to the registry
func (h *Hub) Register(conn wsConn) *Client {
	client := &Client{
		ID:       uuid.New().String(),
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		channels: make(map[model.Channel]bool),
	}
	client.touch(time.Now())

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	h.log.Debugf("WS client registered: ID=%s", client.ID)
	return client
}

// Remove tears down a connection. Safe to call more than once.
func (h *Hub) Remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	h.detachUserLocked(client)
	h.mu.Unlock()

	client.shutdown()
	h.log.Debugf("WS client removed: ID=%s UserID=%s", client.ID, client.UserID())
}

// detachUserLocked drops the client from its user's connection list.
// Caller holds h.mu.
func (h *Hub) detachUserLocked(client *Client) {
	if client.userID == "" {
		return
	}
	conns := h.userConns[client.userID]
	for i, c := range conns {
		if c == client {
			h.userConns[client.userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.userConns[client.userID]) == 0 {
		delete(h.userConns, client.userID)
	}
}

// Authenticate resolves the token and binds the identity to the connection,
// auto-subscribing its default channels. All failures collapse into one
// generic rejection and the connection stays open for a retry.
// Re-authenticating replaces the bound identity.
func (h *Hub) Authenticate(ctx context.Context, client *Client, token string) (*model.AuthResponse, error) {
	claims, err := h.verifier.ValidateToken(token)
	if err != nil {
		h.log.Debugf("WS auth rejected: ID=%s", client.ID)
		return &model.AuthResponse{Type: model.ServerMsgAuth, Success: false}, model.ErrAuthFailed
	}

	user, err := h.users.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive() {
		return &model.AuthResponse{Type: model.ServerMsgAuth, Success: false}, model.ErrAuthFailed
	}

	h.mu.Lock()
	if !h.clients[client] {
		// the connection was evicted while the token was being verified;
		// binding it now would leak a dead entry in userConns
		h.mu.Unlock()
		h.log.Debugf("WS auth on removed connection: ID=%s", client.ID)
		return &model.AuthResponse{Type: model.ServerMsgAuth, Success: false}, model.ErrAuthFailed
	}
	if client.userID != "" {
		h.log.Warnf("WS re-auth replaces identity: ID=%s old=%s new=%s", client.ID, client.userID, user.ID)
		h.detachUserLocked(client)
		// subscriptions belong to the old identity
		client.channels = make(map[model.Channel]bool)
	}
	client.userID = user.ID
	client.role = user.Role
	client.channels[model.ChannelBalance] = true
	client.channels[model.ChannelNotifications] = true
	if user.IsAdmin() {
		client.channels[model.ChannelAdmin] = true
	}
	h.userConns[user.ID] = append(h.userConns[user.ID], client)
	subs := client.subscriptionsLocked()
	h.mu.Unlock()

	h.log.Infof("WS client authenticated: ID=%s UserID=%s Role=%s", client.ID, user.ID, user.Role)
	return &model.AuthResponse{
		Type:          model.ServerMsgAuth,
		Success:       true,
		UserID:        user.ID,
		Subscriptions: subs,
	}, nil
}

// Subscribe adds channels to the client's subscription set. Unknown channel
// names are dropped silently; calling before auth is rejected.
func (h *Hub) Subscribe(client *Client, channels []model.Channel) ([]model.Channel, []model.Channel, error) {
	return h.updateSubscriptions(client, channels, true)
}

// Unsubscribe removes channels from the client's subscription set
func (h *Hub) Unsubscribe(client *Client, channels []model.Channel) ([]model.Channel, []model.Channel, error) {
	return h.updateSubscriptions(client, channels, false)
}

func (h *Hub) updateSubscriptions(client *Client, channels []model.Channel, add bool) ([]model.Channel, []model.Channel, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.userID == "" {
		return nil, nil, model.ErrNotAuthenticated
	}

	applied := make([]model.Channel, 0, len(channels))
	for _, ch := range channels {
		if !model.ValidChannel(ch) {
			continue
		}
		if ch == model.ChannelAdmin && client.role != model.RoleAdmin {
			continue
		}
		if add {
			client.channels[ch] = true
		} else {
			delete(client.channels, ch)
		}
		applied = append(applied, ch)
	}

	return applied, client.subscriptionsLocked(), nil
}

// Touch refreshes the connection's liveness timestamp
func (h *Hub) Touch(client *Client) {
	client.touch(time.Now())
}

// HasSubscribers reports whether any connection is subscribed to the channel
func (h *Hub) HasSubscribers(channel model.Channel) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.channels[channel] {
			return true
		}
	}
	return false
}

// Publish fans a message out to every connection subscribed to the channel.
// Delivery is best-effort and never blocks on a slow receiver; a connection
// that cannot accept the write is evicted.
func (h *Hub) Publish(channel model.Channel, payload interface{}, excludeUserID string) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Errorf("Failed to marshal broadcast message: %v", err)
		return
	}

	h.mu.RLock()
	var stale []*Client
	for client := range h.clients {
		if !client.channels[channel] {
			continue
		}
		if excludeUserID != "" && client.userID == excludeUserID {
			continue
		}
		if !client.trySend(data) {
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	h.evict(stale)
}

// PublishToUser delivers a message to one user's connections subscribed to
// the channel. Other users never observe it.
func (h *Hub) PublishToUser(userID string, channel model.Channel, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Errorf("Failed to marshal user message: %v", err)
		return
	}

	h.mu.RLock()
	var stale []*Client
	for _, client := range h.userConns[userID] {
		if !client.channels[channel] {
			continue
		}
		if !client.trySend(data) {
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	h.evict(stale)
}

// PublishToRole delivers a message to every connection bound to the role
func (h *Hub) PublishToRole(role string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Errorf("Failed to marshal role message: %v", err)
		return
	}

	h.mu.RLock()
	var stale []*Client
	for client := range h.clients {
		if client.role != role {
			continue
		}
		if !client.trySend(data) {
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	h.evict(stale)
}

// Snapshot returns the current set of live connections
func (h *Hub) Snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// evict removes connections that failed a write. A write failure is treated
// as a liveness failure and is never retried.
func (h *Hub) evict(stale []*Client) {
	for _, client := range stale {
		h.log.Warnf("Evicting unresponsive WS client: ID=%s UserID=%s", client.ID, client.UserID())
		h.Remove(client)
	}
}
