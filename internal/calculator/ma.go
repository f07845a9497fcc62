package calculator

import (
	"errors"

	"SignalDesk/internal/model"
)

// SMA computes the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// Bollinger computes Bollinger Bands: an SMA of closes with bands at
// StdDev population standard deviations.
func Bollinger(candles []model.Candle, cfg BollingerConfig, mode Mode) []model.BollingerPoint {
	cfg = cfg.Clamp()
	start := span(len(candles), cfg.Period, mode)
	if start < 0 {
		return nil
	}
	out := make([]model.BollingerPoint, 0, len(candles)-start)
	for i := start; i < len(candles); i++ {
		mid := meanClose(candles, i, cfg.Period)
		width := cfg.StdDev * popStdDev(candles, i, cfg.Period, mid)
		out = append(out, model.BollingerPoint{
			Time:   candles[i].Time,
			Middle: mid,
			Upper:  mid + width,
			Lower:  mid - width,
		})
	}
	return out
}

func extractCloses(candles []model.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
