package risk

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"SignalDesk/internal/model"
)

// BreakSettings configures the loss-cluster warning. Durations are minutes.
type BreakSettings struct {
	Enabled        bool `yaml:"enabled"`
	TimeWindow     int  `yaml:"time_window"`
	MinOrders      int  `yaml:"min_orders"`
	LossThreshold  int  `yaml:"loss_threshold"`
	PauseAutoTrade bool `yaml:"pause_auto_trade"`
	PauseDuration  int  `yaml:"pause_duration"`
}

// Clamp replaces negative values with zero.
func (s BreakSettings) Clamp() BreakSettings {
	for _, f := range []struct {
		name string
		v    *int
	}{
		{"time_window", &s.TimeWindow},
		{"min_orders", &s.MinOrders},
		{"loss_threshold", &s.LossThreshold},
		{"pause_duration", &s.PauseDuration},
	} {
		if *f.v < 0 {
			log.Warn().Str("field", f.name).Int("value", *f.v).Msg("break warning setting clamped to 0")
			*f.v = 0
		}
	}
	return s
}

// BreakInput is everything the break evaluator looks at for one balance.
type BreakInput struct {
	BalanceID int
	Positions []model.ClosedPosition
	Settings  BreakSettings
	// Active is the balance's current warning, if any.
	Active *model.BreakWarning
	Now    time.Time
}

// EvaluateBreakWarning returns a new warning when the balance closed at least
// MinOrders positions inside the trailing window and at least LossThreshold of
// them lost. It returns nil while Active is still in force.
func EvaluateBreakWarning(in BreakInput) *model.BreakWarning {
	s := in.Settings.Clamp()
	if !s.Enabled {
		return nil
	}
	if in.Active != nil && in.Active.ActiveAt(in.Now) {
		return nil
	}

	since := in.Now.Add(-time.Duration(s.TimeWindow) * time.Minute)
	total, losses := 0, 0
	for _, p := range in.Positions {
		if p.Balance.ID != in.BalanceID || p.CloseTime.Before(since) || p.CloseTime.After(in.Now) {
			continue
		}
		total++
		if p.PnL.IsNegative() {
			losses++
		}
	}
	if total == 0 || total < s.MinOrders || losses < s.LossThreshold {
		return nil
	}

	return &model.BreakWarning{
		ID:          uuid.NewString(),
		BalanceID:   in.BalanceID,
		TimeWindow:  s.TimeWindow,
		TotalOrders: total,
		LossCount:   losses,
		TriggerTime: in.Now,
		ExpiresAt:   in.Now.Add(time.Duration(s.PauseDuration) * time.Minute),
	}
}
