package calculator

import "SignalDesk/internal/model"

// Donchian computes Donchian Channels over highs and lows.
func Donchian(candles []model.Candle, cfg DonchianConfig, mode Mode) []model.DonchianPoint {
	cfg = cfg.Clamp()
	start := span(len(candles), cfg.Period, mode)
	if start < 0 {
		return nil
	}
	out := make([]model.DonchianPoint, 0, len(candles)-start)
	for i := start; i < len(candles); i++ {
		upper, _ := highest(candles, i, cfg.Period)
		lower, _ := lowest(candles, i, cfg.Period)
		out = append(out, model.DonchianPoint{
			Time:   candles[i].Time,
			Upper:  upper,
			Middle: (upper + lower) / 2,
			Lower:  lower,
		})
	}
	return out
}

// SupportResistance computes rolling box levels. Resistance is the highest high
// of the box and support the lowest low; a level stays nil while its extreme
// was printed by the newest candle, since price is still pushing through it.
func SupportResistance(candles []model.Candle, cfg SupportResistanceConfig, mode Mode) []model.LevelPoint {
	cfg = cfg.Clamp()
	start := span(len(candles), cfg.BoxPeriod, mode)
	if start < 0 {
		return nil
	}
	out := make([]model.LevelPoint, 0, len(candles)-start)
	for i := start; i < len(candles); i++ {
		p := model.LevelPoint{Time: candles[i].Time}
		if hi, at := highest(candles, i, cfg.BoxPeriod); at < i {
			p.Resistance = &hi
		}
		if lo, at := lowest(candles, i, cfg.BoxPeriod); at < i {
			p.Support = &lo
		}
		out = append(out, p)
	}
	return out
}

// LevelLines drops unestablished entries and splits levels into two line series.
func LevelLines(points []model.LevelPoint) (support, resistance []model.LinePoint) {
	for _, p := range points {
		if p.Support != nil {
			support = append(support, model.LinePoint{Time: p.Time, Value: *p.Support})
		}
		if p.Resistance != nil {
			resistance = append(resistance, model.LinePoint{Time: p.Time, Value: *p.Resistance})
		}
	}
	return support, resistance
}
