package autotrade

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/model"
)

func amounts(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func assertAmounts(t *testing.T, want []decimal.Decimal, got []decimal.Decimal) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "index %d: want %s got %s", i, want[i], got[i])
	}
}

func TestRegistry_DisableForBalance(t *testing.T) {
	r := NewRegistry()
	r.Set(Setting{AssetID: 1, Balance: model.Balance{ID: 10}, Enabled: true, Amount: decimal.NewFromInt(5)})
	r.Set(Setting{AssetID: 2, Balance: model.Balance{ID: 10}, Enabled: true, Amount: decimal.NewFromInt(5)})
	r.Set(Setting{AssetID: 3, Balance: model.Balance{ID: 20}, Enabled: true, Amount: decimal.NewFromInt(5)})
	r.Set(Setting{AssetID: 4, Balance: model.Balance{ID: 10}, Enabled: false})

	assert.Equal(t, 2, r.DisableForBalance(10))
	assert.False(t, r.Enabled(1))
	assert.False(t, r.Enabled(2))
	assert.True(t, r.Enabled(3))
	assert.Equal(t, 0, r.DisableForBalance(10))

	s, ok := r.Get(1)
	require.True(t, ok)
	assert.True(t, s.Amount.Equal(decimal.NewFromInt(5)))

	assert.True(t, r.Disable(3))
	assert.False(t, r.Disable(3))
	assert.False(t, r.Disable(99))
	assert.Equal(t, []int{1, 2, 3, 4}, r.Assets())
}

func TestAmountHistory_UniqueNewestFirst(t *testing.T) {
	h := NewAmountHistory(nil)
	for _, a := range []string{"1", "2", "3", "2", "4", "5", "6"} {
		h.Add(7, 1, decimal.RequireFromString(a))
	}
	assertAmounts(t, amounts("6", "5", "4", "2", "3"), h.History(7, 1))
	assert.Empty(t, h.History(7, 2))

	h.Add(7, 1, decimal.RequireFromString("3.00"))
	assertAmounts(t, amounts("3", "6", "5", "4", "2"), h.History(7, 1))
}

func TestAmountHistory_Prune(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	h := NewAmountHistory(func() time.Time { return now })
	h.Add(1, 1, decimal.NewFromInt(10))
	h.Add(2, 1, decimal.NewFromInt(10))

	now = now.Add(10 * 24 * time.Hour)
	h.Touch(2, 1)

	now = now.Add(5 * 24 * time.Hour)
	assert.Equal(t, 1, h.Prune())
	assert.Empty(t, h.History(1, 1))
	assert.Len(t, h.History(2, 1), 1)
}

type fakePlacer struct {
	calls []model.Direction
	fail  bool
}

func (p *fakePlacer) PlaceOrder(_ context.Context, _ model.Balance, assetID int, dir model.Direction, _ decimal.Decimal) (string, error) {
	if p.fail {
		return "", errors.New("venue down")
	}
	p.calls = append(p.calls, dir)
	return fmt.Sprintf("pos-%d-%d", assetID, len(p.calls)), nil
}

func TestTrader_OnSignal(t *testing.T) {
	r := NewRegistry()
	h := NewAmountHistory(nil)
	p := &fakePlacer{}
	tr := NewTrader(r, h, p)
	bal := model.Balance{ID: 1}
	r.Set(Setting{AssetID: 1, Balance: bal, Enabled: true, Amount: decimal.NewFromInt(10)})
	r.Set(Setting{AssetID: 2, Balance: bal, Enabled: false, Amount: decimal.NewFromInt(10)})

	tr.OnSignal(1, model.SignalHold, model.SignalCall)
	tr.OnSignal(1, model.SignalCall, model.SignalHold)
	tr.OnSignal(1, model.SignalHold, model.SignalPut)
	tr.OnSignal(2, model.SignalHold, model.SignalCall)
	tr.OnSignal(3, model.SignalHold, model.SignalCall)

	assert.Equal(t, []model.Direction{model.DirectionCall, model.DirectionPut}, p.calls)
	assertAmounts(t, amounts("10"), h.History(1, 1))

	assert.True(t, tr.Claim(model.ClosedPosition{OrderID: "pos-1-1", Balance: bal}))
	assert.False(t, tr.Claim(model.ClosedPosition{OrderID: "pos-1-1", Balance: bal}))
	assert.False(t, tr.Claim(model.ClosedPosition{OrderID: "manual", Balance: bal}))
}

func TestTrader_PlacementFailureIsNotClaimed(t *testing.T) {
	r := NewRegistry()
	h := NewAmountHistory(nil)
	tr := NewTrader(r, h, &fakePlacer{fail: true})
	r.Set(Setting{AssetID: 1, Balance: model.Balance{ID: 1}, Enabled: true, Amount: decimal.NewFromInt(10)})

	tr.OnSignal(1, model.SignalHold, model.SignalCall)
	assert.Empty(t, h.History(1, 1))
	assert.False(t, tr.Claim(model.ClosedPosition{OrderID: "pos-1-1"}))
}
