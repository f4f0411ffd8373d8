package redis

import "fmt"

// Redis key patterns for the application
// Following the pattern: entity:id or entity:id:attribute

// User keys
func UserKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

func UserBalanceKey(userID string) string {
	return fmt.Sprintf("user:%s:balance", userID)
}

func UserPolicyKey(userID string) string {
	return fmt.Sprintf("user:%s:outcome_policy", userID)
}

// Ledger keys
func UserLedgerKey(userID string) string {
	return fmt.Sprintf("ledger:%s", userID)
}

// Flash trade keys
func TradeKey(tradeID string) string {
	return fmt.Sprintf("trade:%s", tradeID)
}

func UserTradesKey(userID string) string {
	return fmt.Sprintf("user_trades:%s", userID)
}

func TradesByStatusKey(status string) string {
	return fmt.Sprintf("trades_by_status:%s", status)
}

// Instrument price keys
func InstrumentPriceKey(symbol string) string {
	return fmt.Sprintf("price:%s", symbol)
}

func AllInstrumentsKey() string {
	return "instruments:all"
}

// Platform configuration keys
func PlatformWinRateKey() string {
	return "platform:win_rate"
}

// Rate limiting keys
func RateLimitKey(identifier, scope string) string {
	return fmt.Sprintf("rate_limit:%s:%s", scope, identifier)
}
