package calculator

import "SignalDesk/internal/model"

// Stochastic computes %K over KPeriod and %D as the SMA of %K over DPeriod,
// smoothed by a further SMA of length Smoothing. A flat window (high == low)
// yields %K = 0.
func Stochastic(candles []model.Candle, cfg StochasticConfig, mode Mode) []model.StochasticPoint {
	cfg = cfg.Clamp()
	start := span(len(candles), cfg.Lookback(), mode)
	if start < 0 {
		return nil
	}
	out := make([]model.StochasticPoint, 0, len(candles)-start)
	for i := start; i < len(candles); i++ {
		out = append(out, model.StochasticPoint{
			Time: candles[i].Time,
			K:    rawK(candles, i, cfg.KPeriod),
			D:    smoothedD(candles, i, cfg),
		})
	}
	return out
}

func rawK(candles []model.Candle, end, period int) float64 {
	hi, _ := highest(candles, end, period)
	lo, _ := lowest(candles, end, period)
	if hi == lo {
		return 0
	}
	return 100 * (candles[end].Close - lo) / (hi - lo)
}

func rawD(candles []model.Candle, end int, cfg StochasticConfig) float64 {
	ks := make([]float64, 0, cfg.DPeriod)
	for j := end - cfg.DPeriod + 1; j <= end; j++ {
		ks = append(ks, rawK(candles, j, cfg.KPeriod))
	}
	d, _ := SMA(ks, cfg.DPeriod) // periods are clamped to >= 1
	return d
}

func smoothedD(candles []model.Candle, end int, cfg StochasticConfig) float64 {
	if cfg.Smoothing <= 1 {
		return rawD(candles, end, cfg)
	}
	ds := make([]float64, 0, cfg.Smoothing)
	for j := end - cfg.Smoothing + 1; j <= end; j++ {
		ds = append(ds, rawD(candles, j, cfg))
	}
	d, _ := SMA(ds, cfg.Smoothing)
	return d
}
