package martingale

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
	"SignalDesk/internal/recorder"
)

// DefaultExpiration is how long chains and orders are kept regardless of status.
const DefaultExpiration = time.Hour

// ChainParams describes a chain to open.
type ChainParams struct {
	OriginalOrderID string
	Balance         model.Balance
	BaseAmount      decimal.Decimal
	MaxLevel        int
	Multipliers     []float64
}

// CleanupResult reports what a sweep removed.
type CleanupResult struct {
	Chains int
	Orders int
}

// Stats summarizes the store contents.
type Stats struct {
	Chains       int
	Orders       int
	ActiveChains int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithExpiration overrides DefaultExpiration.
func WithExpiration(d time.Duration) Option { return func(s *Store) { s.expiration = d } }

// WithIDGenerator overrides the uuid-based ID source.
func WithIDGenerator(gen func() string) Option { return func(s *Store) { s.newID = gen } }

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Store) { s.metrics = m } }

// WithRecorder journals chain transitions.
func WithRecorder(r recorder.Recorder) Option { return func(s *Store) { s.rec = r } }

// Store is the martingale state machine. Chains move ACTIVE to COMPLETED_WIN,
// COMPLETED_LOSS or CANCELLED; orders move PENDING to WON, LOST or CANCELLED.
// All mutation goes through its methods and reads return copies.
type Store struct {
	mu      sync.RWMutex
	chains  map[string]*model.MartingaleChain
	orders  map[string]*model.MartingaleOrder
	byChain map[string][]string

	now        func() time.Time
	expiration time.Duration
	newID      func() string
	metrics    *metrics.Metrics
	rec        recorder.Recorder
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		chains:     make(map[string]*model.MartingaleChain),
		orders:     make(map[string]*model.MartingaleOrder),
		byChain:    make(map[string][]string),
		now:        time.Now,
		expiration: DefaultExpiration,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = metrics.OrDefault(s.metrics)
	s.rec = recorder.OrNoop(s.rec)
	return s
}

// CreateChain opens a chain at level 0. It requires at least one level, a
// multiplier per level and a positive base amount.
func (s *Store) CreateChain(p ChainParams) (model.MartingaleChain, error) {
	if p.MaxLevel < 1 {
		return model.MartingaleChain{}, fmt.Errorf("%w: max level %d", ErrInvalidChain, p.MaxLevel)
	}
	if len(p.Multipliers) < p.MaxLevel {
		return model.MartingaleChain{}, fmt.Errorf("%w: %d multipliers for %d levels", ErrInvalidChain, len(p.Multipliers), p.MaxLevel)
	}
	for i, m := range p.Multipliers[:p.MaxLevel] {
		if m <= 0 {
			return model.MartingaleChain{}, fmt.Errorf("%w: multiplier %d is %v", ErrInvalidChain, i, m)
		}
	}
	if !p.BaseAmount.IsPositive() {
		return model.MartingaleChain{}, fmt.Errorf("%w: base amount %s", ErrInvalidChain, p.BaseAmount)
	}

	chain := &model.MartingaleChain{
		ChainID:         s.newID(),
		OriginalOrderID: p.OriginalOrderID,
		Balance:         p.Balance,
		BaseAmount:      p.BaseAmount,
		MaxLevel:        p.MaxLevel,
		Multipliers:     append([]float64(nil), p.Multipliers...),
		Status:          model.ChainActive,
		TotalInvested:   decimal.Zero,
		CreatedAt:       s.now(),
	}

	s.mu.Lock()
	s.chains[chain.ChainID] = chain
	out := chain.Clone()
	active := s.activeCountLocked()
	s.mu.Unlock()

	s.metrics.ChainsCreated.Inc()
	s.metrics.ActiveChains.Set(float64(active))
	log.Info().Str("chain", out.ChainID).Str("original_order", out.OriginalOrderID).
		Int("balance", out.Balance.ID).Int("max_level", out.MaxLevel).Msg("martingale chain created")
	s.journal(&out, "created")
	return out, nil
}

// CreateNextOrder derives the order for the chain's current level and
// advances the level. It is rejected unless the chain is ACTIVE, below its max
// level and has no pending order.
func (s *Store) CreateNextOrder(chainID string, direction model.Direction, assetID int) (model.MartingaleOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain, ok := s.chains[chainID]
	if !ok {
		return model.MartingaleOrder{}, ErrChainNotFound
	}
	if err := s.canProceedLocked(chain); err != nil {
		return model.MartingaleOrder{}, err
	}

	mult := chain.Multipliers[chain.CurrentLevel]
	amount := chain.BaseAmount.Mul(decimal.NewFromFloat(mult)).Round(2)
	order := &model.MartingaleOrder{
		OrderID:    s.newID(),
		ChainID:    chainID,
		Level:      chain.CurrentLevel,
		Multiplier: mult,
		Amount:     amount,
		Direction:  direction,
		AssetID:    assetID,
		Status:     model.OrderPending,
		CreatedAt:  s.now(),
	}
	chain.CurrentLevel++
	chain.TotalInvested = chain.TotalInvested.Add(amount)

	s.orders[order.OrderID] = order
	s.byChain[chainID] = append(s.byChain[chainID], order.OrderID)
	s.metrics.OrdersCreated.Inc()

	log.Info().Str("chain", chainID).Str("order", order.OrderID).Int("level", chain.CurrentLevel).
		Str("amount", amount.String()).Msg("martingale order created")
	return *order, nil
}

// ResolveOrder settles a pending order. A win completes the chain; a loss on
// the last level completes it as lost; any other loss leaves it ACTIVE for the
// next order.
func (s *Store) ResolveOrder(orderID string, outcome model.Outcome) (model.MartingaleChain, error) {
	var status model.OrderStatus
	switch outcome {
	case model.OutcomeWon:
		status = model.OrderWon
	case model.OutcomeLost:
		status = model.OrderLost
	default:
		return model.MartingaleChain{}, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}

	s.mu.Lock()
	order, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return model.MartingaleChain{}, ErrOrderNotFound
	}
	if order.Status != model.OrderPending {
		s.mu.Unlock()
		return model.MartingaleChain{}, fmt.Errorf("%w: %s is %s", ErrOrderResolved, orderID, order.Status)
	}
	chain, ok := s.chains[order.ChainID]
	if !ok {
		s.mu.Unlock()
		return model.MartingaleChain{}, ErrChainNotFound
	}

	now := s.now()
	order.Status = status
	order.ResolvedAt = now

	finished := false
	if chain.Status == model.ChainActive {
		switch {
		case status == model.OrderWon:
			chain.Status = model.ChainCompletedWin
			finished = true
		case chain.CurrentLevel >= chain.MaxLevel:
			chain.Status = model.ChainCompletedLoss
			finished = true
		}
		if finished {
			chain.CompletedAt = now
		}
	}
	out := chain.Clone()
	active := s.activeCountLocked()
	s.mu.Unlock()

	if finished {
		s.metrics.ChainsFinished.WithLabelValues(string(out.Status)).Inc()
		s.metrics.ActiveChains.Set(float64(active))
		log.Info().Str("chain", out.ChainID).Str("status", string(out.Status)).Int("level", out.CurrentLevel).
			Str("invested", out.TotalInvested.String()).Msg("martingale chain finished")
		s.journal(&out, "order "+orderID+" "+string(status))
	}
	return out, nil
}

// CancelChain stops an ACTIVE chain and cancels its pending orders.
func (s *Store) CancelChain(chainID string, reason model.CancellationReason) (model.MartingaleChain, error) {
	s.mu.Lock()
	chain, ok := s.chains[chainID]
	if !ok {
		s.mu.Unlock()
		return model.MartingaleChain{}, ErrChainNotFound
	}
	if chain.Status != model.ChainActive {
		s.mu.Unlock()
		return model.MartingaleChain{}, fmt.Errorf("%w: %s is %s", ErrChainNotActive, chainID, chain.Status)
	}

	now := s.now()
	chain.Status = model.ChainCancelled
	chain.CancelledAt = now
	chain.CancellationReason = reason
	for _, id := range s.byChain[chainID] {
		if o := s.orders[id]; o != nil && o.Status == model.OrderPending {
			o.Status = model.OrderCancelled
			o.ResolvedAt = now
		}
	}
	out := chain.Clone()
	active := s.activeCountLocked()
	s.mu.Unlock()

	s.metrics.ChainsFinished.WithLabelValues(string(model.ChainCancelled)).Inc()
	s.metrics.ActiveChains.Set(float64(active))
	log.Info().Str("chain", chainID).Str("reason", string(reason)).Msg("martingale chain cancelled")
	s.journal(&out, "cancelled")
	return out, nil
}

// CleanupExpired removes chains older than the expiration window, whatever
// their status, together with their orders. Expired IDs are collected under a
// read lock first and removed in a second pass, so concurrent chain creation
// is never observed half-swept.
func (s *Store) CleanupExpired() CleanupResult {
	cutoff := s.now().Add(-s.expiration)

	s.mu.RLock()
	var expired []string
	for id, c := range s.chains {
		if c.CreatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	var orphans []string
	for id, o := range s.orders {
		if _, ok := s.chains[o.ChainID]; !ok && o.CreatedAt.Before(cutoff) {
			orphans = append(orphans, id)
		}
	}
	s.mu.RUnlock()

	var res CleanupResult
	s.mu.Lock()
	for _, id := range expired {
		if _, ok := s.chains[id]; !ok {
			continue
		}
		for _, oid := range s.byChain[id] {
			if _, ok := s.orders[oid]; ok {
				delete(s.orders, oid)
				res.Orders++
			}
		}
		delete(s.byChain, id)
		delete(s.chains, id)
		res.Chains++
	}
	for _, id := range orphans {
		if _, ok := s.orders[id]; ok {
			delete(s.orders, id)
			res.Orders++
		}
	}
	active := s.activeCountLocked()
	s.mu.Unlock()

	s.metrics.CleanupRemoved.WithLabelValues("chains").Add(float64(res.Chains))
	s.metrics.CleanupRemoved.WithLabelValues("orders").Add(float64(res.Orders))
	s.metrics.ActiveChains.Set(float64(active))
	if res.Chains > 0 || res.Orders > 0 {
		log.Info().Int("chains", res.Chains).Int("orders", res.Orders).Msg("expired martingale chains removed")
	}
	return res
}

// AttachPosition links a pending order to the venue position that executes it.
func (s *Store) AttachPosition(orderID, positionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.PositionID = positionID
	return nil
}

// Chain returns a copy of the chain.
func (s *Store) Chain(chainID string) (model.MartingaleChain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[chainID]
	if !ok {
		return model.MartingaleChain{}, false
	}
	return c.Clone(), true
}

// Order returns a copy of the order.
func (s *Store) Order(orderID string) (model.MartingaleOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return model.MartingaleOrder{}, false
	}
	return *o, true
}

// OrderByPosition finds the order linked to a venue position.
func (s *Store) OrderByPosition(positionID string) (model.MartingaleOrder, bool) {
	if positionID == "" {
		return model.MartingaleOrder{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.PositionID == positionID {
			return *o, true
		}
	}
	return model.MartingaleOrder{}, false
}

// ChainOrders returns the chain's orders by level.
func (s *Store) ChainOrders(chainID string) []model.MartingaleOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byChain[chainID]
	out := make([]model.MartingaleOrder, 0, len(ids))
	for _, id := range ids {
		if o, ok := s.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out
}

// ActiveChains returns the ACTIVE chains of a balance, oldest first.
func (s *Store) ActiveChains(balanceID int) []model.MartingaleChain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.MartingaleChain
	for _, c := range s.chains {
		if c.Status == model.ChainActive && c.Balance.ID == balanceID {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// CanProceed reports whether CreateNextOrder would succeed.
func (s *Store) CanProceed(chainID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[chainID]
	return ok && s.canProceedLocked(c) == nil
}

// CanUserCancel reports whether the chain can still be cancelled.
func (s *Store) CanUserCancel(chainID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[chainID]
	return ok && c.Status == model.ChainActive
}

// Stats returns store counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Chains: len(s.chains), Orders: len(s.orders), ActiveChains: s.activeCountLocked()}
}

func (s *Store) canProceedLocked(c *model.MartingaleChain) error {
	if c.Status != model.ChainActive {
		return fmt.Errorf("%w: %s is %s", ErrChainNotActive, c.ChainID, c.Status)
	}
	// expired chains stay until the next sweep but never stake again
	if age := s.now().Sub(c.CreatedAt); age > s.expiration {
		return fmt.Errorf("%w: %s is %s old", ErrChainExpired, c.ChainID, age)
	}
	if c.CurrentLevel >= c.MaxLevel {
		return fmt.Errorf("%w: %d/%d", ErrLevelExhausted, c.CurrentLevel, c.MaxLevel)
	}
	for _, id := range s.byChain[c.ChainID] {
		if o := s.orders[id]; o != nil && o.Status == model.OrderPending {
			return fmt.Errorf("%w: %s", ErrOrderPending, id)
		}
	}
	return nil
}

func (s *Store) activeCountLocked() int {
	n := 0
	for _, c := range s.chains {
		if c.Status == model.ChainActive {
			n++
		}
	}
	return n
}

func (s *Store) journal(c *model.MartingaleChain, note string) {
	if err := s.rec.RecordChainEvent(&recorder.ChainEvent{
		ChainID:         c.ChainID,
		OriginalOrderID: c.OriginalOrderID,
		BalanceID:       c.Balance.ID,
		Status:          c.Status,
		Level:           c.CurrentLevel,
		MaxLevel:        c.MaxLevel,
		TotalInvested:   c.TotalInvested,
		Reason:          c.CancellationReason,
		Note:            note,
	}); err != nil {
		log.Error().Err(err).Str("chain", c.ChainID).Msg("record chain event")
	}
}
