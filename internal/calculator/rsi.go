package calculator

import "SignalDesk/internal/model"

// RSI computes the Wilder-smoothed Relative Strength Index. The first entry is
// seeded with the simple mean of the first Period changes and needs Period+1
// candles. When the average loss is zero, including a flat price, RSI is 100.
//
// Wilder smoothing depends on the whole history, so Update mode walks the same
// recurrence and only materializes the final value.
func RSI(candles []model.Candle, cfg RSIConfig, mode Mode) []model.LinePoint {
	cfg = cfg.Clamp()
	if len(candles) < cfg.Lookback() {
		return nil
	}
	closes := extractCloses(candles)
	period := float64(cfg.Period)

	var avgGain, avgLoss float64
	for i := 1; i <= cfg.Period; i++ {
		gain, loss := change(closes[i-1], closes[i])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= period
	avgLoss /= period

	var out []model.LinePoint
	if mode == Full {
		out = make([]model.LinePoint, 0, len(closes)-cfg.Period)
		out = append(out, model.LinePoint{Time: candles[cfg.Period].Time, Value: rsiValue(avgGain, avgLoss)})
	}

	for i := cfg.Period + 1; i < len(closes); i++ {
		gain, loss := change(closes[i-1], closes[i])
		avgGain = (avgGain*(period-1) + gain) / period
		avgLoss = (avgLoss*(period-1) + loss) / period
		if mode == Full {
			out = append(out, model.LinePoint{Time: candles[i].Time, Value: rsiValue(avgGain, avgLoss)})
		}
	}

	if mode == Update {
		last := len(candles) - 1
		return []model.LinePoint{{Time: candles[last].Time, Value: rsiValue(avgGain, avgLoss)}}
	}
	return out
}

func change(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
