package collector

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/model"
)

// scriptedFeed serves a fixed history and replays a scripted stream.
type scriptedFeed struct {
	history []model.Candle
	stream  []model.Candle
	fetches int
}

func (f *scriptedFeed) Name() string          { return "scripted" }
func (f *scriptedFeed) ServerTime() time.Time { return time.Unix(0, 0) }

func (f *scriptedFeed) FetchCandles(_ context.Context, _, _, count int) ([]model.Candle, error) {
	f.fetches++
	h := f.history
	if len(h) > count {
		h = h[len(h)-count:]
	}
	return h, nil
}

func (f *scriptedFeed) SubscribeCandles(ctx context.Context, _, _ int, fn func(model.Candle)) error {
	for _, c := range f.stream {
		fn(c)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestCollector_IngestGapBackfills(t *testing.T) {
	feed := &scriptedFeed{history: []model.Candle{candleAt(0, 1), candleAt(60, 2)}}
	agg := NewAggregator(100, nil)
	col := NewCollector(feed, agg, 100, nil)
	ctx := context.Background()

	require.NoError(t, col.Backfill(ctx, key))
	assert.Equal(t, 1, feed.fetches)

	// The venue has moved on; the next fetch returns the contiguous history.
	feed.history = []model.Candle{candleAt(0, 1), candleAt(60, 2), candleAt(120, 3), candleAt(180, 4)}
	col.Ingest(ctx, key, candleAt(180, 4.5))

	assert.Equal(t, 2, feed.fetches)
	assert.False(t, agg.NeedsBackfill(key))
	got, err := agg.Window(key, 10)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, 4.5, got[3].Close)
}

func TestCollector_IngestStaleIsDropped(t *testing.T) {
	feed := &scriptedFeed{history: []model.Candle{candleAt(0, 1), candleAt(60, 2)}}
	agg := NewAggregator(100, nil)
	col := NewCollector(feed, agg, 100, nil)

	require.NoError(t, col.Backfill(context.Background(), key))
	col.Ingest(context.Background(), key, candleAt(0, 7))

	assert.Equal(t, 1, feed.fetches)
	got, _ := agg.Window(key, 10)
	assert.Equal(t, 1.0, got[0].Close)
}

func TestCollector_RunStopsOnCancel(t *testing.T) {
	feed := &scriptedFeed{
		history: []model.Candle{candleAt(0, 1)},
		stream:  []model.Candle{candleAt(0, 1.2), candleAt(60, 2)},
	}
	agg := NewAggregator(100, nil)
	col := NewCollector(feed, agg, 100, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- col.Run(ctx, key) }()

	require.Eventually(t, func() bool {
		got, err := agg.Window(key, 10)
		return err == nil && len(got) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestCollector_Indicators(t *testing.T) {
	agg := NewAggregator(200, nil)
	feed := NewMockFeed(100, time.Millisecond, model.Balance{ID: 1}, 42)
	feed.Clock = func() time.Time { return time.Unix(1_700_000_000, 0) }
	col := NewCollector(feed, agg, 120, nil)
	require.NoError(t, col.Backfill(context.Background(), key))

	s := calculator.DefaultSettings()
	full, err := col.Indicators(key, s, 100, calculator.Full)
	require.NoError(t, err)
	assert.Len(t, full.Bollinger, 100-14+1)
	assert.Len(t, full.RSI, 100-14)
	assert.Len(t, full.Levels, 100-25+1)

	last, err := col.Indicators(key, s, 100, calculator.Update)
	require.NoError(t, err)
	require.Len(t, last.Stochastic, 1)
	assert.Equal(t, full.Stochastic[len(full.Stochastic)-1], last.Stochastic[0])

	_, err = col.Indicators(SeriesKey{AssetID: 9, Timeframe: 60}, s, 100, calculator.Full)
	assert.ErrorIs(t, err, ErrUnknownSeries)
}

func TestMockFeed_FetchAligned(t *testing.T) {
	feed := NewMockFeed(100, time.Millisecond, model.Balance{ID: 1}, 1)
	feed.Clock = func() time.Time { return time.Unix(1_000_030, 0) }

	candles, err := feed.FetchCandles(context.Background(), 1, 60, 5)
	require.NoError(t, err)
	require.Len(t, candles, 5)
	assert.Equal(t, int64(1_000_020), candles[4].Time)
	for i := 1; i < len(candles); i++ {
		assert.Equal(t, int64(60), candles[i].Time-candles[i-1].Time)
		assert.LessOrEqual(t, candles[i].Low, candles[i].Close)
		assert.GreaterOrEqual(t, candles[i].High, candles[i].Close)
	}
}

func TestMockFeed_PlacedOrderClosesNext(t *testing.T) {
	feed := NewMockFeed(100, time.Millisecond, model.Balance{ID: 1}, 3)
	feed.PositionEvery = 1
	bal := model.Balance{ID: 7, Type: model.BalancePractice}

	id, err := feed.PlaceOrder(context.Background(), bal, 4, model.DirectionPut, decimal.NewFromInt(25))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan model.ClosedPosition, 1)
	go func() {
		_ = feed.SubscribePositions(ctx, func(p model.ClosedPosition) {
			select {
			case got <- p:
			default:
			}
			cancel()
		})
	}()

	select {
	case p := <-got:
		assert.Equal(t, id, p.OrderID)
		assert.Equal(t, 7, p.Balance.ID)
		assert.Equal(t, 4, p.AssetID)
		assert.True(t, p.Amount.Equal(decimal.NewFromInt(25)))
		assert.False(t, p.PnL.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no position streamed")
	}
}
