package model

// Channel is a named broadcast topic connections subscribe to
type Channel string

const (
	ChannelPrices        Channel = "prices"
	ChannelTrades        Channel = "trades"
	ChannelBalance       Channel = "balance"
	ChannelNotifications Channel = "notifications"
	ChannelAdmin         Channel = "admin"
)

// ValidChannel reports whether name is a known channel
func ValidChannel(name Channel) bool {
	switch name {
	case ChannelPrices, ChannelTrades, ChannelBalance, ChannelNotifications, ChannelAdmin:
		return true
	}
	return false
}

// Inbound message types (client -> server)
const (
	ClientMsgAuth        = "auth"
	ClientMsgSubscribe   = "subscribe"
	ClientMsgUnsubscribe = "unsubscribe"
	ClientMsgHeartbeat   = "heartbeat"
)

// ClientMessage is the closed union of inbound WebSocket messages.
// Unknown types yield an error response at the boundary, never a panic.
type ClientMessage struct {
	Type     string    `json:"type"`
	Token    string    `json:"token,omitempty"`
	Channels []Channel `json:"channels,omitempty"`
}

// Outbound message types (server -> client)
const (
	ServerMsgAuth         = "auth"
	ServerMsgSubscribed   = "subscribed"
	ServerMsgUnsubscribed = "unsubscribed"
	ServerMsgPriceUpdates = "price_updates"
	ServerMsgFlashTrade   = "flash-trade"
	ServerMsgUserData     = "user_data"
	ServerMsgError        = "error"
)

// AuthResponse reports the outcome of an auth message. Failure carries no
// cause: malformed, expired and unknown tokens are indistinguishable.
type AuthResponse struct {
	Type          string    `json:"type"`
	Success       bool      `json:"success"`
	UserID        string    `json:"user_id,omitempty"`
	Subscriptions []Channel `json:"subscriptions,omitempty"`
}

// SubscriptionResponse confirms a subscribe/unsubscribe and echoes the
// connection's full subscription set.
type SubscriptionResponse struct {
	Type          string    `json:"type"` // "subscribed" or "unsubscribed"
	Channels      []Channel `json:"channels"`
	Subscriptions []Channel `json:"subscriptions"`
}

// PriceUpdate is one instrument's movement within a feed tick
type PriceUpdate struct {
	Instrument    string  `json:"instrument"`
	Price         float64 `json:"price"`
	PercentChange float64 `json:"percent_change"`
}

// PriceUpdatesMessage carries a batch of per-instrument updates
type PriceUpdatesMessage struct {
	Type string        `json:"type"` // "price_updates"
	Data []PriceUpdate `json:"data"`
}

// TradeResult is the settlement outcome delivered to the trade's owner
type TradeResult struct {
	TradeID   string  `json:"trade_id"`
	Result    string  `json:"result"` // "won" or "lost"
	Payout    float64 `json:"payout"`
	ExitPrice float64 `json:"exit_price"`
}

// FlashTradeMessage wraps a trade result for the wire
type FlashTradeMessage struct {
	Type   string      `json:"type"`   // "flash-trade"
	Action string      `json:"action"` // "result"
	Data   TradeResult `json:"data"`
}

// UserDataMessage pushes the user's current snapshot (balance etc.)
type UserDataMessage struct {
	Type string       `json:"type"` // "user_data"
	Data UserSnapshot `json:"data"`
}

// ErrorMessage is sent for rejected or unrecognized client messages
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// NotificationMessage is a free-form notice fanned out by the CRUD layer
// (deposit approvals, announcements) through the broadcaster.
type NotificationMessage struct {
	Type    string      `json:"type"` // "notification"
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}
