package collector

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"SignalDesk/internal/model"
)

// Feed is the market-data side of the trading SDK.
type Feed interface {
	Name() string
	ServerTime() time.Time
	// FetchCandles returns up to count most recent candles, oldest first.
	FetchCandles(ctx context.Context, assetID, timeframe, count int) ([]model.Candle, error)
	// SubscribeCandles blocks, calling fn for every streamed candle, until ctx
	// is done or the stream fails.
	SubscribeCandles(ctx context.Context, assetID, timeframe int, fn func(model.Candle)) error
}

// PositionFeed streams closed positions.
type PositionFeed interface {
	SubscribePositions(ctx context.Context, fn func(model.ClosedPosition)) error
}

// OrderPlacer opens positions on the venue.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, balance model.Balance, assetID int, dir model.Direction, amount decimal.Decimal) (string, error)
}
