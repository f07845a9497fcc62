package martingale

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"SignalDesk/internal/model"
)

// DefaultStaleAfter bounds how old a closed position may be before its chain
// is abandoned instead of continued.
const DefaultStaleAfter = time.Minute

// Settings controls chain creation for losing auto-trades.
type Settings struct {
	Enabled     bool
	MaxLevel    int
	Multipliers []float64
	StaleAfter  time.Duration
	// Qualifies selects the losing trades that may start a chain. Nil
	// accepts every trade.
	Qualifies func(model.ClosedPosition) bool
}

// Gate blocks follow-up orders for a balance, e.g. after a daily goal was hit.
type Gate interface {
	Blocked(balanceID int) bool
}

// ActionKind tells the caller what to do after an outcome was handled.
type ActionKind string

const (
	ActionNone        ActionKind = "NONE"
	ActionPlaceOrder  ActionKind = "PLACE_ORDER"
	ActionChainClosed ActionKind = "CHAIN_CLOSED"
)

// Action is the result of HandleOutcome.
type Action struct {
	Kind      ActionKind
	ChainID   string
	OrderID   string
	Balance   model.Balance
	AssetID   int
	Direction model.Direction
	Amount    decimal.Decimal
	Level     int
	Status    model.ChainStatus
}

// Coordinator drives the store from closed positions.
type Coordinator struct {
	store    *Store
	settings Settings
	gate     Gate
	now      func() time.Time
}

// NewCoordinator wires a Coordinator. gate may be nil.
func NewCoordinator(store *Store, settings Settings, gate Gate) *Coordinator {
	if settings.StaleAfter <= 0 {
		settings.StaleAfter = DefaultStaleAfter
	}
	return &Coordinator{store: store, settings: settings, gate: gate, now: store.now}
}

// HandleOutcome resolves the martingale order behind pos, or opens a chain
// when pos is a qualifying losing trade, then decides whether the chain
// continues.
// Positions with pnl >= 0 count as wins. Stale or gated losses never open a
// chain.
func (c *Coordinator) HandleOutcome(pos model.ClosedPosition) (Action, error) {
	outcome := model.OutcomeLost
	if !pos.PnL.IsNegative() {
		outcome = model.OutcomeWon
	}

	age := c.now().Sub(pos.CloseTime)
	stale := age > c.settings.StaleAfter
	blocked := c.gate != nil && c.gate.Blocked(pos.Balance.ID)

	var chain model.MartingaleChain
	if order, ok := c.store.OrderByPosition(pos.OrderID); ok {
		var err error
		chain, err = c.store.ResolveOrder(order.OrderID, outcome)
		if err != nil {
			return Action{}, fmt.Errorf("resolve order %s: %w", order.OrderID, err)
		}
		if chain.Status != model.ChainActive {
			return closed(chain), nil
		}
	} else {
		if c.settings.Qualifies != nil && !c.settings.Qualifies(pos) {
			return Action{Kind: ActionNone}, nil
		}
		if outcome == model.OutcomeWon || !c.settings.Enabled || stale || blocked {
			return Action{Kind: ActionNone}, nil
		}
		var err error
		chain, err = c.store.CreateChain(ChainParams{
			OriginalOrderID: pos.OrderID,
			Balance:         pos.Balance,
			BaseAmount:      pos.Amount,
			MaxLevel:        c.settings.MaxLevel,
			Multipliers:     c.settings.Multipliers,
		})
		if err != nil {
			return Action{}, fmt.Errorf("create chain for %s: %w", pos.OrderID, err)
		}
	}

	if stale {
		log.Warn().Str("chain", chain.ChainID).Dur("age", age).Msg("stale outcome, abandoning chain")
		return c.cancel(chain.ChainID, model.CancelTimeout)
	}
	if blocked {
		log.Info().Str("chain", chain.ChainID).Int("balance", pos.Balance.ID).Msg("daily goal reached, stopping chain")
		return c.cancel(chain.ChainID, model.CancelDailyLimit)
	}

	order, err := c.store.CreateNextOrder(chain.ChainID, pos.Direction, pos.AssetID)
	if errors.Is(err, ErrChainExpired) {
		log.Warn().Str("chain", chain.ChainID).Msg("chain expired, abandoning")
		return c.cancel(chain.ChainID, model.CancelTimeout)
	}
	if err != nil {
		return Action{}, fmt.Errorf("next order for %s: %w", chain.ChainID, err)
	}
	return Action{
		Kind:      ActionPlaceOrder,
		ChainID:   chain.ChainID,
		OrderID:   order.OrderID,
		Balance:   chain.Balance,
		AssetID:   order.AssetID,
		Direction: order.Direction,
		Amount:    order.Amount,
		Level:     order.Level,
		Status:    model.ChainActive,
	}, nil
}

func (c *Coordinator) cancel(chainID string, reason model.CancellationReason) (Action, error) {
	chain, err := c.store.CancelChain(chainID, reason)
	if err != nil && !errors.Is(err, ErrChainNotActive) {
		return Action{}, err
	}
	if err != nil {
		chain, _ = c.store.Chain(chainID)
	}
	return closed(chain), nil
}

func closed(chain model.MartingaleChain) Action {
	return Action{
		Kind:    ActionChainClosed,
		ChainID: chain.ChainID,
		Balance: chain.Balance,
		Level:   chain.CurrentLevel,
		Status:  chain.Status,
	}
}
