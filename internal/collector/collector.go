package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
)

// Collector feeds the Aggregator from a Feed and computes indicator snapshots.
type Collector struct {
	Feed       Feed
	Aggregator *Aggregator
	Capacity   int
	RetryDelay time.Duration
	metrics    *metrics.Metrics
}

// NewCollector creates a new Collector.
func NewCollector(feed Feed, agg *Aggregator, capacity int, m *metrics.Metrics) *Collector {
	return &Collector{
		Feed:       feed,
		Aggregator: agg,
		Capacity:   capacity,
		RetryDelay: 2 * time.Second,
		metrics:    metrics.OrDefault(m),
	}
}

// Run backfills the series and then streams incremental candles into it until
// ctx is done. A dropped stream is resubscribed after a fresh backfill.
func (c *Collector) Run(ctx context.Context, key SeriesKey) error {
	for {
		if err := c.Backfill(ctx, key); err != nil {
			log.Warn().Err(err).Stringer("series", key).Msg("backfill failed")
		} else {
			err = c.Feed.SubscribeCandles(ctx, key.AssetID, key.Timeframe, func(candle model.Candle) {
				c.Ingest(ctx, key, candle)
			})
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Stringer("series", key).Msg("candle stream ended, resubscribing")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.RetryDelay):
		}
	}
}

// Backfill replaces the series with the latest Capacity candles from the feed.
func (c *Collector) Backfill(ctx context.Context, key SeriesKey) error {
	candles, err := c.Feed.FetchCandles(ctx, key.AssetID, key.Timeframe, c.Capacity)
	if err != nil {
		return fmt.Errorf("fetch candles %s: %w", key, err)
	}
	if err := c.Aggregator.Backfill(key, candles); err != nil {
		return err
	}
	c.metrics.Backfills.Inc()
	log.Debug().Stringer("series", key).Int("candles", len(candles)).Msg("series backfilled")
	return nil
}

// Ingest applies one streamed candle. Stale candles are dropped; a gap
// triggers a contiguous backfill before streaming resumes.
func (c *Collector) Ingest(ctx context.Context, key SeriesKey, candle model.Candle) {
	_, err := c.Aggregator.Update(key, candle)
	switch {
	case err == nil:
		c.metrics.CandlesAccepted.Inc()
		return
	case errors.Is(err, ErrStaleCandle):
		c.metrics.CandlesRejected.WithLabelValues("stale").Inc()
		log.Warn().Err(err).Msg("stale candle dropped")
		return
	case errors.Is(err, ErrGap):
		c.metrics.CandlesRejected.WithLabelValues("gap").Inc()
		log.Warn().Err(err).Msg("candle gap detected, backfilling")
	case errors.Is(err, ErrBackfillRequired):
		c.metrics.CandlesRejected.WithLabelValues("backfill").Inc()
	default:
		c.metrics.CandlesRejected.WithLabelValues("other").Inc()
		log.Warn().Err(err).Stringer("series", key).Msg("candle rejected")
		return
	}

	if err := c.Backfill(ctx, key); err != nil {
		log.Warn().Err(err).Stringer("series", key).Msg("gap backfill failed")
		return
	}
	if _, err := c.Aggregator.Update(key, candle); err != nil {
		log.Debug().Err(err).Stringer("series", key).Msg("candle not applied after backfill")
	}
}

// Indicators computes every indicator over the last lookback candles.
func (c *Collector) Indicators(key SeriesKey, s calculator.Settings, lookback int, mode calculator.Mode) (*model.IndicatorSet, error) {
	candles, err := c.Aggregator.Window(key, lookback)
	if err != nil {
		return nil, err
	}
	return &model.IndicatorSet{
		AssetID:    key.AssetID,
		Timeframe:  key.Timeframe,
		Bollinger:  calculator.Bollinger(candles, s.Bollinger, mode),
		Donchian:   calculator.Donchian(candles, s.Donchian, mode),
		Stochastic: calculator.Stochastic(candles, s.Stochastic, mode),
		RSI:        calculator.RSI(candles, s.RSI, mode),
		Levels:     calculator.SupportResistance(candles, s.SupportResistance, mode),
	}, nil
}
