package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"SignalDesk/internal/fanout"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
	"SignalDesk/internal/recorder"
)

// AutoTrader switches auto-trading off for a balance.
type AutoTrader interface {
	DisableForBalance(balanceID int) int
}

// BalanceReader reports a balance's current amount. It is read once per day
// to capture the starting balance.
type BalanceReader interface {
	CurrentAmount(ctx context.Context, balanceID int) (decimal.Decimal, error)
}

// Settings configures the evaluator.
type Settings struct {
	ProfitTargetPct float64
	LossLimitPct    float64
	Break           BreakSettings
	Workers         int
}

// Evaluator runs both evaluators over every balance in the position book.
type Evaluator struct {
	ledger   *Ledger
	book     *PositionBook
	funds    BalanceReader
	trader   AutoTrader
	settings Settings
	rec      recorder.Recorder
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewEvaluator wires an Evaluator. funds, trader, rec and m may be nil.
func NewEvaluator(ledger *Ledger, book *PositionBook, funds BalanceReader, trader AutoTrader, settings Settings, rec recorder.Recorder, m *metrics.Metrics) *Evaluator {
	if settings.ProfitTargetPct < 0 {
		settings.ProfitTargetPct = 0
	}
	if settings.LossLimitPct < 0 {
		settings.LossLimitPct = 0
	}
	settings.Break = settings.Break.Clamp()
	return &Evaluator{
		ledger:   ledger,
		book:     book,
		funds:    funds,
		trader:   trader,
		settings: settings,
		rec:      recorder.OrNoop(rec),
		metrics:  metrics.OrDefault(m),
		now:      ledger.now,
	}
}

// EvaluateAll evaluates every balance concurrently. One balance failing does
// not stop the others; all failures are returned together.
func (e *Evaluator) EvaluateAll(ctx context.Context) error {
	return fanout.Run(ctx, e.settings.Workers, e.book.Balances(), e.Evaluate)
}

// Evaluate checks one balance and applies the side effects of any new record.
func (e *Evaluator) Evaluate(ctx context.Context, balanceID int) error {
	positions := e.book.ForBalance(balanceID)
	if len(positions) == 0 {
		return nil
	}
	balance := positions[len(positions)-1].Balance
	now := e.now()

	start, ok := e.ledger.StartingBalance(balanceID)
	if !ok && e.funds != nil {
		amount, err := e.funds.CurrentAmount(ctx, balanceID)
		if err != nil {
			return fmt.Errorf("balance %d: read amount: %w", balanceID, err)
		}
		snap, _ := e.ledger.CaptureStartingBalance(balance, amount)
		start, ok = snap.StartingAmount, true
	}

	if ok {
		f := EvaluateGoalFulfillment(GoalInput{
			BalanceID:       balanceID,
			Positions:       positions,
			StartingBalance: start,
			ProfitTargetPct: e.settings.ProfitTargetPct,
			LossLimitPct:    e.settings.LossLimitPct,
			Existing:        e.ledger.FulfillmentForToday(balanceID),
			Now:             now,
		})
		if f != nil {
			if err := e.recordFulfillment(f); err != nil {
				return fmt.Errorf("balance %d: %w", balanceID, err)
			}
		}
	}

	w := EvaluateBreakWarning(BreakInput{
		BalanceID: balanceID,
		Positions: positions,
		Settings:  e.settings.Break,
		Active:    e.ledger.ActiveWarning(balanceID),
		Now:       now,
	})
	if w != nil {
		if err := e.recordWarning(w); err != nil {
			return fmt.Errorf("balance %d: %w", balanceID, err)
		}
	}
	return nil
}

func (e *Evaluator) recordFulfillment(f *model.GoalFulfillment) error {
	if err := e.ledger.RecordFulfillment(*f); err != nil {
		if errors.Is(err, ErrAlreadyRecorded) {
			return nil
		}
		return err
	}
	e.metrics.GoalFulfillments.WithLabelValues(string(f.Type)).Inc()
	log.Info().Int("balance", f.BalanceID).Str("type", string(f.Type)).
		Str("target", f.TargetValue.String()).Str("actual", f.ActualValue.String()).Msg("daily goal reached")
	if err := e.rec.RecordGoalFulfillment(f); err != nil {
		log.Error().Err(err).Str("id", f.ID).Msg("record goal fulfillment")
	}
	e.disable(f.BalanceID)
	return nil
}

func (e *Evaluator) recordWarning(w *model.BreakWarning) error {
	if err := e.ledger.RecordWarning(*w); err != nil {
		if errors.Is(err, ErrWarningActive) {
			return nil
		}
		return err
	}
	e.metrics.BreakWarnings.Inc()
	log.Info().Int("balance", w.BalanceID).Int("orders", w.TotalOrders).Int("losses", w.LossCount).
		Time("expires", w.ExpiresAt).Msg("break warning raised")
	if err := e.rec.RecordBreakWarning(w); err != nil {
		log.Error().Err(err).Str("id", w.ID).Msg("record break warning")
	}
	if e.settings.Break.PauseAutoTrade {
		e.disable(w.BalanceID)
	}
	return nil
}

func (e *Evaluator) disable(balanceID int) {
	if e.trader == nil {
		return
	}
	if n := e.trader.DisableForBalance(balanceID); n > 0 {
		e.metrics.AutoTradeDisable.Add(float64(n))
		log.Info().Int("balance", balanceID).Int("assets", n).Msg("auto-trade disabled")
	}
}
