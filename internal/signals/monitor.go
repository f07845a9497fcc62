package signals

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"SignalDesk/internal/collector"
	"SignalDesk/internal/fanout"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
	"SignalDesk/internal/recorder"
	"SignalDesk/internal/strategy"
)

// CandleSource supplies the bounded candle window for an asset.
type CandleSource interface {
	Window(key collector.SeriesKey, n int) ([]model.Candle, error)
}

// Config tunes the evaluation loops.
type Config struct {
	Interval time.Duration
	Lookback int
	Workers  int
	Params   strategy.Params
	// OnChange, if set, is called after a changed signal was stored.
	OnChange func(assetID int, prev, next model.Signal)
}

type loop struct {
	key     collector.SeriesKey
	cancel  context.CancelFunc
	trigger chan struct{}
	done    chan struct{}
}

// Monitor runs one periodic classification loop per tracked asset.
type Monitor struct {
	source  CandleSource
	store   *Store
	cfg     Config
	rec     recorder.Recorder
	metrics *metrics.Metrics

	mu    sync.Mutex
	loops map[int]*loop
}

// NewMonitor creates a Monitor writing into store.
func NewMonitor(source CandleSource, store *Store, cfg Config, rec recorder.Recorder, m *metrics.Metrics) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 100
	}
	return &Monitor{
		source:  source,
		store:   store,
		cfg:     cfg,
		rec:     recorder.OrNoop(rec),
		metrics: metrics.OrDefault(m),
		loops:   make(map[int]*loop),
	}
}

// Track starts the evaluation loop for an asset. Tracking an asset again
// replaces its loop; the replaced loop has exited when Track returns.
func (m *Monitor) Track(assetID, timeframe int) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{
		key:     collector.SeriesKey{AssetID: assetID, Timeframe: timeframe},
		cancel:  cancel,
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	// Swap under one lock so every displaced loop is stopped below. The old
	// loop can no longer commit once it is out of the map.
	m.mu.Lock()
	old, replaced := m.loops[assetID]
	m.loops[assetID] = l
	if replaced {
		m.store.Remove(assetID)
	}
	go m.run(ctx, l)
	m.mu.Unlock()

	if replaced {
		old.cancel()
		<-old.done
		log.Info().Int("asset", assetID).Msg("signal loop replaced")
	}
	log.Info().Int("asset", assetID).Int("timeframe", timeframe).Msg("signal loop started")
}

// Untrack stops the asset's loop, waits for it to exit and clears its
// signal. Nothing is written for the asset after Untrack returns.
func (m *Monitor) Untrack(assetID int) {
	m.mu.Lock()
	l, ok := m.loops[assetID]
	delete(m.loops, assetID)
	m.mu.Unlock()
	if !ok {
		return
	}

	l.cancel()
	<-l.done
	m.store.Remove(assetID)
	log.Info().Int("asset", assetID).Msg("signal loop stopped")
}

// Trigger asks the asset's loop for an immediate evaluation. It never blocks.
func (m *Monitor) Trigger(assetID int) {
	m.mu.Lock()
	l, ok := m.loops[assetID]
	m.mu.Unlock()
	if !ok {
		return
	}
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

// OnCandleClosed adapts Trigger to the aggregator's close callback.
func (m *Monitor) OnCandleClosed(key collector.SeriesKey, _ model.Candle) {
	m.Trigger(key.AssetID)
}

// Tracked lists tracked assets in ascending order.
func (m *Monitor) Tracked() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.loops))
	for id := range m.loops {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Stop tears down every loop and clears the store.
func (m *Monitor) Stop() {
	for _, id := range m.Tracked() {
		m.Untrack(id)
	}
	m.store.Clear()
}

// EvaluateAll classifies every tracked asset once, in parallel. A failing
// asset is logged and does not affect the others.
func (m *Monitor) EvaluateAll(ctx context.Context) error {
	m.mu.Lock()
	loops := make([]*loop, 0, len(m.loops))
	for _, l := range m.loops {
		loops = append(loops, l)
	}
	m.mu.Unlock()

	err := fanout.Run(ctx, m.cfg.Workers, loops, m.evaluate)
	for _, e := range multierr.Errors(err) {
		log.Warn().Err(e).Msg("signal evaluation failed")
	}
	return err
}

func (m *Monitor) run(ctx context.Context, l *loop) {
	defer close(l.done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.evaluateLogged(ctx, l)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-l.trigger:
		}
		m.evaluateLogged(ctx, l)
	}
}

func (m *Monitor) evaluateLogged(ctx context.Context, l *loop) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.SignalEvaluations.WithLabelValues("error").Inc()
			log.Error().Int("asset", l.key.AssetID).Interface("panic", r).Msg("signal evaluation panicked")
		}
	}()
	if err := m.evaluate(ctx, l); err != nil {
		log.Warn().Err(err).Msg("signal evaluation failed")
	}
}

func (m *Monitor) evaluate(ctx context.Context, l *loop) error {
	key := l.key
	start := time.Now()
	candles, err := m.source.Window(key, m.cfg.Lookback)
	if err != nil {
		m.metrics.SignalEvaluations.WithLabelValues("error").Inc()
		return fmt.Errorf("asset %d: %w", key.AssetID, err)
	}

	eval := strategy.Evaluate(candles, m.cfg.Params)
	m.metrics.EvaluationDur.Observe(time.Since(start).Seconds())
	m.metrics.SignalEvaluations.WithLabelValues("ok").Inc()

	prev, changed := m.commit(ctx, l, eval.Signal)
	if !changed {
		return nil
	}

	m.metrics.SignalChanges.WithLabelValues(string(eval.Signal)).Inc()
	log.Info().Int("asset", key.AssetID).Str("from", string(prev)).Str("signal", string(eval.Signal)).
		Float64("score", eval.TotalScore).Msg("signal changed")
	if err := m.rec.RecordSignalChange(&recorder.SignalChangeEvent{
		AssetID:  key.AssetID,
		Previous: prev,
		Current:  eval.Signal,
		Score:    eval.TotalScore,
	}); err != nil {
		log.Error().Err(err).Int("asset", key.AssetID).Msg("record signal change")
	}
	if m.cfg.OnChange != nil {
		m.cfg.OnChange(key.AssetID, prev, eval.Signal)
	}
	return nil
}

// commit writes the signal only while l is still the asset's live loop, so a
// torn-down loop or a late batch task cannot resurrect a removed signal.
func (m *Monitor) commit(ctx context.Context, l *loop, sig model.Signal) (model.Signal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil || m.loops[l.key.AssetID] != l {
		return "", false
	}
	return m.store.SetIfChanged(l.key.AssetID, sig)
}
