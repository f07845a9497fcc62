package risk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"SignalDesk/internal/model"
)

type fakeFunds map[int]decimal.Decimal

func (f fakeFunds) CurrentAmount(_ context.Context, balanceID int) (decimal.Decimal, error) {
	amount, ok := f[balanceID]
	if !ok {
		return decimal.Zero, errors.New("unknown balance")
	}
	return amount, nil
}

type fakeTrader struct {
	mu       sync.Mutex
	disabled []int
}

func (t *fakeTrader) DisableForBalance(balanceID int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disabled = append(t.disabled, balanceID)
	return 1
}

func newEvaluator(t *testing.T, funds BalanceReader, pause bool) (*Evaluator, *Ledger, *PositionBook, *fakeTrader) {
	t.Helper()
	c := &clock{t: testNow}
	l, err := NewLedger("", c.Now)
	require.NoError(t, err)
	book := NewPositionBook()
	trader := &fakeTrader{}
	bs := breakSettings()
	bs.PauseAutoTrade = pause
	e := NewEvaluator(l, book, funds, trader, Settings{
		ProfitTargetPct: 10,
		LossLimitPct:    10,
		Break:           bs,
		Workers:         4,
	}, nil, nil)
	return e, l, book, trader
}

func TestEvaluator_GoalDisablesAutoTradeOnce(t *testing.T) {
	e, l, book, trader := newEvaluator(t, fakeFunds{1: decimal.NewFromInt(1000)}, false)
	book.Add(closed(1, "105", testNow.Add(-time.Hour)))

	require.NoError(t, e.EvaluateAll(context.Background()))
	require.NoError(t, e.EvaluateAll(context.Background()))

	st := l.State()
	require.Len(t, st.Fulfillments, 1)
	assert.Equal(t, model.GoalProfit, st.Fulfillments[0].Type)
	assert.Equal(t, []int{1}, trader.disabled)
	assert.True(t, l.Blocked(1))
}

func TestEvaluator_BreakWarningPause(t *testing.T) {
	for _, pause := range []bool{true, false} {
		e, l, book, trader := newEvaluator(t, fakeFunds{1: decimal.NewFromInt(100000)}, pause)
		for i := 0; i < 5; i++ {
			book.Add(closed(1, "-1", testNow.Add(-time.Duration(i+1)*time.Minute)))
		}
		require.NoError(t, e.EvaluateAll(context.Background()))
		require.NoError(t, e.EvaluateAll(context.Background()))

		assert.Len(t, l.State().Warnings, 1)
		assert.NotNil(t, l.ActiveWarning(1))
		if pause {
			assert.Equal(t, []int{1}, trader.disabled)
		} else {
			assert.Empty(t, trader.disabled)
		}
	}
}

func TestEvaluator_FailureIsolated(t *testing.T) {
	e, l, book, _ := newEvaluator(t, fakeFunds{2: decimal.NewFromInt(1000)}, false)
	book.Add(closed(1, "500", testNow))
	book.Add(closed(2, "500", testNow))

	err := e.EvaluateAll(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.Contains(t, err.Error(), "balance 1")

	require.NotNil(t, l.FulfillmentForToday(2))
	assert.Nil(t, l.FulfillmentForToday(1))
}

func TestEvaluator_WithoutFundsSkipsGoals(t *testing.T) {
	e, l, book, _ := newEvaluator(t, nil, false)
	book.Add(closed(1, "500", testNow))
	require.NoError(t, e.EvaluateAll(context.Background()))
	assert.Nil(t, l.FulfillmentForToday(1))
}
