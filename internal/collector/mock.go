package collector

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"SignalDesk/internal/model"
)

// MockFeed produces a deterministic random-walk market for development and
// testing. It implements Feed and PositionFeed.
type MockFeed struct {
	BasePrice     float64
	Tick          time.Duration
	Balance       model.Balance
	StakeAmount   decimal.Decimal
	PositionEvery int // ticks between synthetic closed positions
	PositionAsset int
	// Funds is the simulated account amount; closed positions add their pnl.
	Funds decimal.Decimal
	Clock func() time.Time

	mu     sync.Mutex
	rng    *rand.Rand
	prices map[int]float64
	queued []model.ClosedPosition
}

// NewMockFeed creates a MockFeed seeded with seed.
func NewMockFeed(basePrice float64, tick time.Duration, balance model.Balance, seed int64) *MockFeed {
	return &MockFeed{
		BasePrice:     basePrice,
		Tick:          tick,
		Balance:       balance,
		StakeAmount:   decimal.NewFromInt(10),
		Funds:         decimal.NewFromInt(1000),
		PositionEvery: 10,
		PositionAsset: 1,
		Clock:         time.Now,
		rng:           rand.New(rand.NewSource(seed)),
		prices:        make(map[int]float64),
	}
}

func (m *MockFeed) Name() string { return "mock" }

func (m *MockFeed) ServerTime() time.Time { return m.Clock() }

func (m *MockFeed) FetchCandles(_ context.Context, assetID, timeframe, count int) ([]model.Candle, error) {
	if timeframe <= 0 {
		return nil, ErrBadTimeframe
	}
	if count <= 0 {
		return nil, nil
	}
	current := alignTime(m.Clock(), timeframe)
	start := current - int64(count-1)*int64(timeframe)

	m.mu.Lock()
	defer m.mu.Unlock()
	candles := generateMockCandles(m.rng, m.BasePrice, start, timeframe, count)
	m.prices[assetID] = candles[len(candles)-1].Close
	return candles, nil
}

func (m *MockFeed) SubscribeCandles(ctx context.Context, assetID, timeframe int, fn func(model.Candle)) error {
	if timeframe <= 0 {
		return ErrBadTimeframe
	}
	ticker := time.NewTicker(m.Tick)
	defer ticker.Stop()

	var cur model.Candle
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		period := alignTime(m.Clock(), timeframe)
		m.mu.Lock()
		price, ok := m.prices[assetID]
		if !ok {
			price = m.BasePrice
		}
		next := price * (1 + (m.rng.Float64()*2-1)*0.001)
		m.prices[assetID] = next
		m.mu.Unlock()

		if cur.Time != period {
			cur = model.Candle{Time: period, Open: price, High: price, Low: price, Close: price}
		}
		cur.Close = next
		cur.High = max(cur.High, next)
		cur.Low = min(cur.Low, next)
		fn(cur)
	}
}

func (m *MockFeed) SubscribePositions(ctx context.Context, fn func(model.ClosedPosition)) error {
	every := m.PositionEvery
	if every < 1 {
		every = 1
	}
	ticker := time.NewTicker(m.Tick * time.Duration(every))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		now := m.Clock()
		m.mu.Lock()
		won := m.rng.Intn(2) == 0
		var pos model.ClosedPosition
		if len(m.queued) > 0 {
			pos = m.queued[0]
			m.queued = m.queued[1:]
		} else {
			dir := model.DirectionCall
			if m.rng.Intn(2) == 0 {
				dir = model.DirectionPut
			}
			pos = model.ClosedPosition{
				OrderID:   uuid.NewString(),
				Balance:   m.Balance,
				AssetID:   m.PositionAsset,
				Direction: dir,
				Amount:    m.StakeAmount,
				OpenTime:  now.Add(-time.Duration(every) * m.Tick),
			}
		}
		m.mu.Unlock()

		pos.CloseTime = now
		pos.PnL = pos.Amount.Neg()
		if won {
			pos.PnL = pos.Amount.Mul(decimal.NewFromFloat(0.85)).Round(2)
		}
		m.mu.Lock()
		m.Funds = m.Funds.Add(pos.PnL)
		m.mu.Unlock()
		fn(pos)
	}
}

// CurrentAmount returns the simulated funds of the feed's balance.
func (m *MockFeed) CurrentAmount(_ context.Context, balanceID int) (decimal.Decimal, error) {
	if balanceID != m.Balance.ID {
		return decimal.Zero, fmt.Errorf("unknown balance %d", balanceID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Funds, nil
}

// PlaceOrder queues a position that closes on the next position tick and
// returns its ID.
func (m *MockFeed) PlaceOrder(_ context.Context, balance model.Balance, assetID int, dir model.Direction, amount decimal.Decimal) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	m.queued = append(m.queued, model.ClosedPosition{
		OrderID:   id,
		Balance:   balance,
		AssetID:   assetID,
		Direction: dir,
		Amount:    amount,
		OpenTime:  m.Clock(),
	})
	m.mu.Unlock()
	return id, nil
}

func alignTime(t time.Time, timeframe int) int64 {
	s := t.Unix()
	return s - s%int64(timeframe)
}

func generateMockCandles(rng *rand.Rand, basePrice float64, start int64, timeframe, count int) []model.Candle {
	candles := make([]model.Candle, count)
	p := basePrice
	for i := 0; i < count; i++ {
		open := p
		p = p * (1 + (rng.Float64()*2-1)*0.002)
		candles[i] = model.Candle{
			Time:  start + int64(i*timeframe),
			Open:  open,
			High:  max(open, p) * 1.0005,
			Low:   min(open, p) * 0.9995,
			Close: p,
		}
	}
	return candles
}
