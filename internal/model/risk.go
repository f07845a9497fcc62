package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day key used for daily records.
const DateLayout = "2006-01-02"

// ClosedPosition is a finished trade reported by the position stream.
type ClosedPosition struct {
	OrderID    string          `json:"order_id"`
	ExternalID string          `json:"external_id"`
	Balance    Balance         `json:"balance"`
	AssetID    int             `json:"active_id"`
	Direction  Direction       `json:"direction"`
	Amount     decimal.Decimal `json:"amount"`
	PnL        decimal.Decimal `json:"pnl"`
	OpenTime   time.Time       `json:"open_time"`
	CloseTime  time.Time       `json:"close_time"`
}

// GoalType is the kind of daily threshold a balance crossed.
type GoalType string

const (
	GoalProfit GoalType = "PROFIT"
	GoalLoss   GoalType = "LOSS"
)

// GoalFulfillment is recorded once per balance per day when daily P&L crosses a threshold.
type GoalFulfillment struct {
	ID           string          `json:"id"`
	BalanceID    int             `json:"balance_id"`
	Type         GoalType        `json:"type"`
	TargetValue  decimal.Decimal `json:"target_value"`
	ActualValue  decimal.Decimal `json:"actual_value"`
	Date         string          `json:"date"`
	Acknowledged bool            `json:"acknowledged"`
	CreatedAt    time.Time       `json:"created_at"`
}

// BreakWarning is raised after a cluster of losses inside a short window.
type BreakWarning struct {
	ID             string    `json:"id"`
	BalanceID      int       `json:"balance_id"`
	TimeWindow     int       `json:"time_window"`
	TotalOrders    int       `json:"total_orders"`
	LossCount      int       `json:"loss_count"`
	TriggerTime    time.Time `json:"trigger_time"`
	ExpiresAt      time.Time `json:"expires_at"`
	AcknowledgedAt time.Time `json:"acknowledged_at,omitzero"`
}

// ActiveAt reports whether the warning is in force at t.
func (w *BreakWarning) ActiveAt(t time.Time) bool {
	return !t.Before(w.TriggerTime) && t.Before(w.ExpiresAt)
}

// DailyBalanceSnapshot is the starting amount of a balance for one calendar day.
type DailyBalanceSnapshot struct {
	Balance        Balance         `json:"balance"`
	StartingAmount decimal.Decimal `json:"starting_amount"`
	Date           string          `json:"date"`
	CapturedAt     time.Time       `json:"captured_at"`
}

// RiskState is the persisted shape of the risk ledger.
type RiskState struct {
	Fulfillments []GoalFulfillment      `json:"fulfillments"`
	Warnings     []BreakWarning         `json:"warnings"`
	Snapshots    []DailyBalanceSnapshot `json:"snapshots"`
	UpdatedAt    time.Time              `json:"updated_at"`
}
