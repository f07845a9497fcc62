package calculator

import (
	"math/rand"

	"SignalDesk/internal/model"
)

// walk generates a deterministic random-walk candle series.
func walk(n int, seed int64) []model.Candle {
	r := rand.New(rand.NewSource(seed))
	candles := make([]model.Candle, n)
	price := 100.0
	for i := range candles {
		open := price
		price += r.Float64()*2 - 1
		hi := max(open, price) + r.Float64()*0.5
		lo := min(open, price) - r.Float64()*0.5
		candles[i] = model.Candle{Time: int64(1700000000 + 60*i), Open: open, High: hi, Low: lo, Close: price}
	}
	return candles
}

func flat(n int, price float64) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{Time: int64(60 * i), Open: price, High: price, Low: price, Close: price}
	}
	return candles
}

func closesOf(candles []model.Candle) []float64 { return extractCloses(candles) }

func highsOf(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

func lowsOf(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}
