package model

import "time"

// FlashTrade status constants
const (
	TradeStatusActive = "active" // open, waiting for expiry
	TradeStatusWon    = "won"    // settled, payout credited
	TradeStatusLost   = "lost"   // settled, stake forfeited
)

// FlashTrade direction constants
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// FlashTrade is a time-boxed trade on a synthetic instrument price.
// The CRUD layer creates it with status "active" (stake already deducted);
// the settlement scheduler performs the single terminal transition.
type FlashTrade struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	Instrument string  `json:"instrument"`
	Stake      float64 `json:"stake"`
	Direction  string  `json:"direction"` // "up" or "down"
	EntryPrice float64 `json:"entry_price"`
	ReturnRate float64 `json:"return_rate"` // percent profit on win

	DurationSec int       `json:"duration_sec"`
	StartedAt   time.Time `json:"started_at"`

	Status    string     `json:"status"`
	ExitPrice *float64   `json:"exit_price,omitempty"`
	Payout    float64    `json:"payout"`
	SettledAt *time.Time `json:"settled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExpiresAt returns the instant the trade becomes eligible for settlement.
func (t *FlashTrade) ExpiresAt() time.Time {
	return t.StartedAt.Add(time.Duration(t.DurationSec) * time.Second)
}

// IsExpired reports whether the trade has passed its expiry at the given instant.
func (t *FlashTrade) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt())
}

// IsSettled reports whether the trade has reached a terminal status.
func (t *FlashTrade) IsSettled() bool {
	return t.Status == TradeStatusWon || t.Status == TradeStatusLost
}

// WinPayout returns the amount credited on a win: stake plus profit.
func (t *FlashTrade) WinPayout() float64 {
	return t.Stake + t.Stake*t.ReturnRate/100
}

// LedgerEntry is an immutable record of a balance change. The newest
// entry's BalanceAfter always equals the user's stored balance.
type LedgerEntry struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	TradeID       string    `json:"trade_id,omitempty"` // causal reference
	Amount        float64   `json:"amount"`
	BalanceBefore float64   `json:"balance_before"`
	BalanceAfter  float64   `json:"balance_after"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}

// Ledger reason constants
const (
	LedgerReasonTradeWin   = "trade_win"
	LedgerReasonAdjustment = "adjustment"
)
