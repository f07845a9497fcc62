package collector

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"SignalDesk/internal/model"
)

var (
	ErrUnknownSeries    = errors.New("unknown candle series")
	ErrStaleCandle      = errors.New("candle older than series tail")
	ErrGap              = errors.New("gap between series tail and candle")
	ErrBackfillRequired = errors.New("series needs backfill after gap")
	ErrBadTimeframe     = errors.New("timeframe must be positive")
)

// SeriesKey identifies one candle stream.
type SeriesKey struct {
	AssetID   int
	Timeframe int // seconds
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%d/%ds", k.AssetID, k.Timeframe)
}

// UpdateResult describes how an incremental candle was applied.
type UpdateResult int

const (
	// Replaced means the in-progress tail candle was overwritten.
	Replaced UpdateResult = iota
	// Appended means a new period started and the previous tail closed.
	Appended
	// Started means the candle opened a previously unknown series.
	Started
)

type series struct {
	candles []model.Candle
	gapped  bool
}

// Aggregator keeps a bounded, strictly time-ordered buffer of candles per
// asset and timeframe. All mutation goes through Backfill and Update.
type Aggregator struct {
	mu       sync.RWMutex
	capacity int
	series   map[SeriesKey]*series
	onClosed func(SeriesKey, model.Candle)
}

// NewAggregator creates an Aggregator holding at most capacity candles per series.
// onClosed, if set, is called outside the lock whenever a candle closes.
func NewAggregator(capacity int, onClosed func(SeriesKey, model.Candle)) *Aggregator {
	if capacity < 1 {
		capacity = 1
	}
	return &Aggregator{
		capacity: capacity,
		series:   make(map[SeriesKey]*series),
		onClosed: onClosed,
	}
}

// Backfill replaces the series with a bulk historical fetch. Input is sorted,
// duplicate times keep the last candle, and only the newest capacity candles
// are retained. A pending gap is cleared.
func (a *Aggregator) Backfill(key SeriesKey, candles []model.Candle) error {
	if key.Timeframe <= 0 {
		return ErrBadTimeframe
	}
	sorted := append([]model.Candle(nil), candles...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	deduped := sorted[:0]
	for _, c := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Time == c.Time {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}
	if len(deduped) > a.capacity {
		deduped = deduped[len(deduped)-a.capacity:]
	}

	a.mu.Lock()
	a.series[key] = &series{candles: deduped}
	a.mu.Unlock()
	return nil
}

// Update applies a single streamed candle. A candle for the tail period
// replaces it, the next period appends, anything older is rejected, and a
// skipped period flags the series until it is backfilled again.
func (a *Aggregator) Update(key SeriesKey, c model.Candle) (UpdateResult, error) {
	if key.Timeframe <= 0 {
		return 0, ErrBadTimeframe
	}

	a.mu.Lock()
	s, ok := a.series[key]
	if !ok || len(s.candles) == 0 {
		a.series[key] = &series{candles: []model.Candle{c}}
		a.mu.Unlock()
		return Started, nil
	}
	if s.gapped {
		a.mu.Unlock()
		return 0, ErrBackfillRequired
	}

	tail := s.candles[len(s.candles)-1]
	switch {
	case c.Time == tail.Time:
		s.candles[len(s.candles)-1] = c
		a.mu.Unlock()
		return Replaced, nil
	case c.Time < tail.Time:
		a.mu.Unlock()
		return 0, fmt.Errorf("%w: %s candle %d behind tail %d", ErrStaleCandle, key, c.Time, tail.Time)
	case c.Time > tail.Time+int64(key.Timeframe):
		s.gapped = true
		a.mu.Unlock()
		return 0, fmt.Errorf("%w: %s tail %d, got %d", ErrGap, key, tail.Time, c.Time)
	}

	s.candles = append(s.candles, c)
	if len(s.candles) > a.capacity {
		s.candles = append(s.candles[:0], s.candles[len(s.candles)-a.capacity:]...)
	}
	a.mu.Unlock()

	if a.onClosed != nil {
		a.onClosed(key, tail)
	}
	return Appended, nil
}

// Window returns a copy of the last n candles of the series.
func (a *Aggregator) Window(key SeriesKey, n int) ([]model.Candle, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.series[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSeries, key)
	}
	start := len(s.candles) - n
	if start < 0 || n <= 0 {
		start = 0
	}
	return append([]model.Candle(nil), s.candles[start:]...), nil
}

// NeedsBackfill reports whether the series saw a gap since its last backfill.
func (a *Aggregator) NeedsBackfill(key SeriesKey) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.series[key]
	return ok && s.gapped
}

// Keys lists the known series.
func (a *Aggregator) Keys() []SeriesKey {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]SeriesKey, 0, len(a.series))
	for k := range a.series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AssetID != keys[j].AssetID {
			return keys[i].AssetID < keys[j].AssetID
		}
		return keys[i].Timeframe < keys[j].Timeframe
	})
	return keys
}

// Remove drops a series.
func (a *Aggregator) Remove(key SeriesKey) {
	a.mu.Lock()
	delete(a.series, key)
	a.mu.Unlock()
}
