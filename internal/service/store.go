package service

import (
	"context"

	"flashtrade/internal/model"
	"flashtrade/pkg/jwt"
)

// TradeStore is the persistence surface the settlement scheduler consumes.
// SettleAtomic must apply the status transition, balance credit and ledger
// append as one atomic write; a trade already settled returns
// model.ErrTradeAlreadySettled and changes nothing.
type TradeStore interface {
	GetActiveTrades(ctx context.Context) ([]*model.FlashTrade, error)
	SettleAtomic(ctx context.Context, tradeID, outcome string, exitPrice, payout float64) (*model.FlashTrade, *model.LedgerEntry, error)
}

// UserStore provides user identity, balance and outcome policy lookups
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*model.User, error)
	GetBalance(ctx context.Context, userID string) (float64, error)
	GetOutcomePolicy(ctx context.Context, userID string) (*model.OutcomePolicy, error)
	GetPlatformWinRate(ctx context.Context, fallback float64) (float64, error)
}

// PriceStore persists synthetic instrument prices
type PriceStore interface {
	List(ctx context.Context) ([]*model.InstrumentPrice, error)
	Set(ctx context.Context, price *model.InstrumentPrice) error
}

// TokenVerifier resolves an opaque identity token into claims
type TokenVerifier interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// Broadcaster is the hub surface consumed by the periodic drivers and
// exposed to the CRUD layer for externally-originated events.
type Broadcaster interface {
	Publish(channel model.Channel, payload interface{}, excludeUserID string)
	PublishToUser(userID string, channel model.Channel, payload interface{})
	PublishToRole(role string, payload interface{})
	HasSubscribers(channel model.Channel) bool
}
