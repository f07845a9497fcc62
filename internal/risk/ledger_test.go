package risk

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/model"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func TestLedger_StartingBalanceOncePerDay(t *testing.T) {
	c := &clock{t: testNow}
	l, err := NewLedger("", c.Now)
	require.NoError(t, err)
	bal := model.Balance{ID: 1}

	_, ok := l.StartingBalance(1)
	assert.False(t, ok)

	_, stored := l.CaptureStartingBalance(bal, decimal.NewFromInt(1000))
	assert.True(t, stored)
	snap, stored := l.CaptureStartingBalance(bal, decimal.NewFromInt(1200))
	assert.False(t, stored)
	assert.True(t, snap.StartingAmount.Equal(decimal.NewFromInt(1000)))

	c.t = c.t.Add(24 * time.Hour)
	_, ok = l.StartingBalance(1)
	assert.False(t, ok)
	_, stored = l.CaptureStartingBalance(bal, decimal.NewFromInt(1200))
	assert.True(t, stored)
}

func TestLedger_Fulfillments(t *testing.T) {
	c := &clock{t: testNow}
	l, err := NewLedger("", c.Now)
	require.NoError(t, err)

	f := model.GoalFulfillment{ID: "g1", BalanceID: 1, Type: model.GoalProfit, Date: "2026-03-02"}
	require.NoError(t, l.RecordFulfillment(f))
	assert.ErrorIs(t, l.RecordFulfillment(f), ErrAlreadyRecorded)

	got := l.FulfillmentForToday(1)
	require.NotNil(t, got)
	assert.Equal(t, "g1", got.ID)
	assert.Nil(t, l.FulfillmentForToday(2))

	assert.True(t, l.Blocked(1))
	require.NoError(t, l.AcknowledgeFulfillment("g1"))
	assert.False(t, l.Blocked(1))
	assert.ErrorIs(t, l.AcknowledgeFulfillment("nope"), ErrNotFound)
}

func TestLedger_Warnings(t *testing.T) {
	c := &clock{t: testNow}
	l, err := NewLedger("", c.Now)
	require.NoError(t, err)

	w := model.BreakWarning{ID: "w1", BalanceID: 1, TriggerTime: testNow, ExpiresAt: testNow.Add(15 * time.Minute)}
	require.NoError(t, l.RecordWarning(w))
	require.NoError(t, l.AcknowledgeWarning("w1"))

	second := w
	second.ID = "w2"
	assert.ErrorIs(t, l.RecordWarning(second), ErrWarningActive)
	require.NotNil(t, l.ActiveWarning(1))

	c.t = c.t.Add(15 * time.Minute)
	assert.Nil(t, l.ActiveWarning(1))
	second.TriggerTime = c.t
	second.ExpiresAt = c.t.Add(15 * time.Minute)
	require.NoError(t, l.RecordWarning(second))
	assert.Len(t, l.State().Warnings, 1)
}

func TestLedger_ResetForNewDay(t *testing.T) {
	c := &clock{t: testNow}
	l, err := NewLedger("", c.Now)
	require.NoError(t, err)

	l.CaptureStartingBalance(model.Balance{ID: 1}, decimal.NewFromInt(1000))
	require.NoError(t, l.RecordFulfillment(model.GoalFulfillment{ID: "g1", BalanceID: 1, Type: model.GoalLoss, Date: "2026-03-02"}))
	require.NoError(t, l.RecordWarning(model.BreakWarning{ID: "w1", BalanceID: 1, TriggerTime: testNow, ExpiresAt: testNow.Add(time.Minute)}))

	assert.Equal(t, 0, l.ResetForNewDay())

	c.t = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, l.ResetForNewDay())
	st := l.State()
	assert.Empty(t, st.Fulfillments)
	assert.Empty(t, st.Snapshots)
	assert.Empty(t, st.Warnings)
	assert.False(t, l.Blocked(1))
}

func TestLedger_PersistsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "risk.json")
	c := &clock{t: testNow}

	l, err := NewLedger(path, c.Now)
	require.NoError(t, err)
	l.CaptureStartingBalance(model.Balance{ID: 3, Currency: "USD"}, decimal.RequireFromString("512.40"))
	require.NoError(t, l.RecordFulfillment(model.GoalFulfillment{
		ID: "g1", BalanceID: 3, Type: model.GoalProfit, Date: "2026-03-02",
		TargetValue: decimal.NewFromInt(51), ActualValue: decimal.NewFromInt(60),
	}))

	reloaded, err := NewLedger(path, c.Now)
	require.NoError(t, err)
	start, ok := reloaded.StartingBalance(3)
	require.True(t, ok)
	assert.Equal(t, "512.4", start.String())
	assert.True(t, reloaded.Blocked(3))
	assert.Equal(t, testNow, reloaded.State().UpdatedAt.UTC())
}

func TestLoadState_Missing(t *testing.T) {
	st, err := LoadState(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, st.Fulfillments)
}

func TestPositionBook(t *testing.T) {
	b := NewPositionBook()
	p1 := closed(1, "-1", testNow.Add(-2*time.Hour))
	p2 := closed(2, "1", testNow)
	assert.True(t, b.Add(p1))
	assert.False(t, b.Add(p1))
	assert.True(t, b.Add(p2))

	assert.Equal(t, []int{1, 2}, b.Balances())
	assert.Len(t, b.ForBalance(1), 1)

	assert.Equal(t, 1, b.Prune(testNow.Add(-time.Hour)))
	assert.Equal(t, []int{2}, b.Balances())
	assert.Empty(t, b.ForBalance(1))
}
