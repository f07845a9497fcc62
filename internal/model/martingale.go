package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChainStatus is the lifecycle state of a martingale chain.
type ChainStatus string

const (
	ChainActive        ChainStatus = "ACTIVE"
	ChainCompletedWin  ChainStatus = "COMPLETED_WIN"
	ChainCompletedLoss ChainStatus = "COMPLETED_LOSS"
	ChainCancelled     ChainStatus = "CANCELLED"
)

// OrderStatus is the lifecycle state of a martingale order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderWon       OrderStatus = "WON"
	OrderLost      OrderStatus = "LOST"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Outcome is the result reported for a pending order.
type Outcome string

const (
	OutcomeWon  Outcome = "WON"
	OutcomeLost Outcome = "LOST"
)

// CancellationReason records who or what stopped a chain.
type CancellationReason string

const (
	CancelUser       CancellationReason = "USER"
	CancelSystem     CancellationReason = "SYSTEM"
	CancelDailyLimit CancellationReason = "DAILY_LIMIT"
	CancelTimeout    CancellationReason = "TIMEOUT"
)

// MartingaleChain is the sequence of follow-up orders derived from one losing trade.
type MartingaleChain struct {
	ChainID            string             `json:"chain_id"`
	OriginalOrderID    string             `json:"original_order_id"`
	Balance            Balance            `json:"balance"`
	BaseAmount         decimal.Decimal    `json:"base_amount"`
	MaxLevel           int                `json:"max_level"`
	Multipliers        []float64          `json:"multipliers"`
	CurrentLevel       int                `json:"current_level"`
	Status             ChainStatus        `json:"status"`
	TotalInvested      decimal.Decimal    `json:"total_invested"`
	CreatedAt          time.Time          `json:"created_at"`
	CompletedAt        time.Time          `json:"completed_at,omitzero"`
	CancelledAt        time.Time          `json:"cancelled_at,omitzero"`
	CancellationReason CancellationReason `json:"cancellation_reason,omitempty"`
}

// MartingaleOrder is one staked order inside a chain.
type MartingaleOrder struct {
	OrderID    string          `json:"order_id"`
	ChainID    string          `json:"chain_id"`
	Level      int             `json:"martingale_level"`
	Multiplier float64         `json:"multiplier"`
	Amount     decimal.Decimal `json:"order_amount"`
	Direction  Direction       `json:"direction"`
	AssetID    int             `json:"asset_id"`
	Status     OrderStatus     `json:"status"`
	PositionID string          `json:"position_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt time.Time       `json:"resolved_at,omitzero"`
}

// Clone returns a deep copy of the chain.
func (c *MartingaleChain) Clone() MartingaleChain {
	out := *c
	out.Multipliers = append([]float64(nil), c.Multipliers...)
	return out
}
