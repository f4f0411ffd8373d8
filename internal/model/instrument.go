package model

import "time"

// InstrumentPrice is the latest synthetic price for a tracked instrument
type InstrumentPrice struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PercentChange float64   `json:"percent_change"` // change applied by the last tick
	UpdatedAt     time.Time `json:"updated_at"`
}
