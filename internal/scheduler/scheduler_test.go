package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/autotrade"
	"SignalDesk/internal/martingale"
	"SignalDesk/internal/model"
	"SignalDesk/internal/recorder"
	"SignalDesk/internal/risk"
)

type cleanupRecorder struct {
	recorder.NoopRecorder
	mu     sync.Mutex
	events []recorder.CleanupEvent
}

func (r *cleanupRecorder) RecordCleanup(evt *recorder.CleanupEvent) error {
	r.mu.Lock()
	r.events = append(r.events, *evt)
	r.mu.Unlock()
	return nil
}

func TestRunCleanupNow(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	ms := martingale.NewStore(martingale.WithClock(clock))
	chain, err := ms.CreateChain(martingale.ChainParams{
		OriginalOrderID: "o1",
		Balance:         model.Balance{ID: 1},
		BaseAmount:      decimal.NewFromInt(10),
		MaxLevel:        1,
		Multipliers:     []float64{2},
	})
	require.NoError(t, err)
	_, err = ms.CreateNextOrder(chain.ChainID, model.DirectionCall, 1)
	require.NoError(t, err)

	amounts := autotrade.NewAmountHistory(clock)
	amounts.Add(1, 1, decimal.NewFromInt(10))

	book := risk.NewPositionBook()
	book.Add(model.ClosedPosition{OrderID: "p1", Balance: model.Balance{ID: 1}, CloseTime: now.Add(-2 * time.Hour)})

	rec := &cleanupRecorder{}
	s := NewScheduler(context.Background(), ms, amounts, book, nil, nil, rec, nil)
	s.Now = clock

	assert.Equal(t, recorder.CleanupEvent{}, s.RunCleanupNow())

	now = now.Add(15 * 24 * time.Hour)
	evt := s.RunCleanupNow()
	assert.Equal(t, recorder.CleanupEvent{Chains: 1, Orders: 1, Amounts: 1, Positions: 1}, evt)
	assert.Len(t, rec.events, 2)
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), nil, nil, nil, nil, nil, nil, nil)
	require.NoError(t, s.RegisterAll("0 0 * * * *", "0 0 0 * * *", "@every 5s"))
	assert.Len(t, s.Cron.Entries(), 3)

	bad := NewScheduler(context.Background(), nil, nil, nil, nil, nil, nil, nil)
	assert.Error(t, bad.RegisterAll("not a cron", "0 0 0 * * *", "@every 5s"))
}

func TestEvaluateAndResetJobs(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ledger, err := risk.NewLedger("", clock)
	require.NoError(t, err)
	book := risk.NewPositionBook()
	for i := 0; i < 3; i++ {
		book.Add(model.ClosedPosition{
			OrderID:   string(rune('a' + i)),
			Balance:   model.Balance{ID: 1},
			PnL:       decimal.NewFromInt(-1),
			CloseTime: now.Add(-time.Minute),
		})
	}
	eval := risk.NewEvaluator(ledger, book, nil, nil, risk.Settings{
		Break: risk.BreakSettings{Enabled: true, TimeWindow: 15, MinOrders: 3, LossThreshold: 3, PauseDuration: 15},
	}, nil, nil)

	s := NewScheduler(context.Background(), nil, nil, book, ledger, eval, nil, nil)
	s.evaluateTask()
	require.NotNil(t, ledger.ActiveWarning(1))

	now = now.Add(time.Hour)
	s.dailyReset()
	assert.Empty(t, ledger.State().Warnings)
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(context.Background(), nil, nil, nil, nil, nil, nil, nil)
	require.NoError(t, s.RegisterAll("0 0 * * * *", "0 0 0 * * *", "@every 1s"))
	s.Start()
	s.Stop()
}
