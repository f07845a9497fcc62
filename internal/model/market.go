package model

import "time"

// Candle represents a single OHLC bar. Time is the period start in epoch seconds.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// StartTime returns the candle period start as a time.Time.
func (c Candle) StartTime() time.Time {
	return time.Unix(c.Time, 0)
}

// Direction is the side of a binary option.
type Direction string

const (
	DirectionCall Direction = "call"
	DirectionPut  Direction = "put"
)

// BalanceType distinguishes real and practice accounts.
type BalanceType string

const (
	BalanceReal     BalanceType = "real"
	BalancePractice BalanceType = "practice"
)

// Balance identifies the account an order or position belongs to.
type Balance struct {
	ID       int         `json:"balance_id"`
	Type     BalanceType `json:"balance_type"`
	Currency string      `json:"balance_currency"`
}
