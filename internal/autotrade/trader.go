package autotrade

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"SignalDesk/internal/collector"
	"SignalDesk/internal/model"
)

// Trader turns signal changes on enabled assets into orders.
type Trader struct {
	registry *Registry
	history  *AmountHistory
	placer   collector.OrderPlacer
	timeout  time.Duration

	mu     sync.Mutex
	placed map[string]int
}

func NewTrader(registry *Registry, history *AmountHistory, placer collector.OrderPlacer) *Trader {
	return &Trader{
		registry: registry,
		history:  history,
		placer:   placer,
		timeout:  10 * time.Second,
		placed:   make(map[string]int),
	}
}

// OnSignal places an order in the signal's direction when the asset has
// auto-trade enabled. HOLD never trades.
func (t *Trader) OnSignal(assetID int, _, next model.Signal) {
	var dir model.Direction
	switch next {
	case model.SignalCall:
		dir = model.DirectionCall
	case model.SignalPut:
		dir = model.DirectionPut
	default:
		return
	}
	s, ok := t.registry.Get(assetID)
	if !ok || !s.Enabled || !s.Amount.IsPositive() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	id, err := t.placer.PlaceOrder(ctx, s.Balance, assetID, dir, s.Amount)
	if err != nil {
		log.Warn().Err(err).Int("asset", assetID).Msg("auto-trade order failed")
		return
	}

	t.mu.Lock()
	t.placed[id] = assetID
	t.mu.Unlock()
	t.history.Add(assetID, s.Balance.ID, s.Amount)
	log.Info().Int("asset", assetID).Str("order", id).Str("direction", string(dir)).
		Str("amount", s.Amount.String()).Msg("auto-trade order placed")
}

// Claim reports whether the position was opened by auto-trade and forgets it.
func (t *Trader) Claim(pos model.ClosedPosition) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	assetID, ok := t.placed[pos.OrderID]
	if ok {
		delete(t.placed, pos.OrderID)
		t.history.Touch(assetID, pos.Balance.ID)
	}
	return ok
}
