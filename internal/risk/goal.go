// Package risk evaluates daily goals and loss clusters for each balance and
// keeps the resulting records.
package risk

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"SignalDesk/internal/model"
)

var hundred = decimal.NewFromInt(100)

// GoalInput is everything the goal evaluator looks at for one balance.
type GoalInput struct {
	BalanceID       int
	Positions       []model.ClosedPosition
	StartingBalance decimal.Decimal
	ProfitTargetPct float64
	LossLimitPct    float64
	// Existing is the fulfillment already recorded for the balance, if any.
	Existing *model.GoalFulfillment
	Now      time.Time
}

// EvaluateGoalFulfillment sums today's pnl for the balance and returns a new
// fulfillment when it reaches the profit target or the loss limit. It returns
// nil when nothing was crossed or a fulfillment already exists for today.
// A zero percentage disables that side.
func EvaluateGoalFulfillment(in GoalInput) *model.GoalFulfillment {
	today := in.Now.Format(model.DateLayout)
	if in.Existing != nil && in.Existing.Date == today {
		return nil
	}
	if !in.StartingBalance.IsPositive() {
		return nil
	}

	dayStart := startOfDay(in.Now)
	sum := decimal.Zero
	for _, p := range in.Positions {
		if p.Balance.ID != in.BalanceID || p.CloseTime.Before(dayStart) || p.CloseTime.After(in.Now) {
			continue
		}
		sum = sum.Add(p.PnL)
	}

	f := &model.GoalFulfillment{
		ID:          uuid.NewString(),
		BalanceID:   in.BalanceID,
		ActualValue: sum,
		Date:        today,
		CreatedAt:   in.Now,
	}
	if in.ProfitTargetPct > 0 {
		target := percentOf(in.StartingBalance, in.ProfitTargetPct)
		if sum.GreaterThanOrEqual(target) {
			f.Type = model.GoalProfit
			f.TargetValue = target
			return f
		}
	}
	if in.LossLimitPct > 0 {
		limit := percentOf(in.StartingBalance, in.LossLimitPct).Neg()
		if sum.LessThanOrEqual(limit) {
			f.Type = model.GoalLoss
			f.TargetValue = limit
			return f
		}
	}
	return nil
}

func percentOf(amount decimal.Decimal, pct float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(pct)).Div(hundred)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
