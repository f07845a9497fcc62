package calculator

import (
	"math"

	"SignalDesk/internal/model"
)

// span returns the first index to compute for the given mode, or -1 if there is
// not enough data.
func span(n, lookback int, mode Mode) int {
	if n < lookback {
		return -1
	}
	if mode == Update {
		return n - 1
	}
	return lookback - 1
}

func meanClose(candles []model.Candle, end, period int) float64 {
	sum := 0.0
	for j := end - period + 1; j <= end; j++ {
		sum += candles[j].Close
	}
	return sum / float64(period)
}

// popStdDev is the population standard deviation of closes around mean.
func popStdDev(candles []model.Candle, end, period int, mean float64) float64 {
	sq := 0.0
	for j := end - period + 1; j <= end; j++ {
		d := candles[j].Close - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(period))
}

// highest returns the max high in the window and its index.
func highest(candles []model.Candle, end, period int) (float64, int) {
	hi, at := math.Inf(-1), -1
	for j := end - period + 1; j <= end; j++ {
		if candles[j].High > hi {
			hi, at = candles[j].High, j
		}
	}
	return hi, at
}

// lowest returns the min low in the window and its index.
func lowest(candles []model.Candle, end, period int) (float64, int) {
	lo, at := math.Inf(1), -1
	for j := end - period + 1; j <= end; j++ {
		if candles[j].Low < lo {
			lo, at = candles[j].Low, j
		}
	}
	return lo, at
}
