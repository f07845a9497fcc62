package strategy

import (
	"fmt"

	"SignalDesk/internal/model"
)

// Scores are in [-2, 2]; positive favours CALL, negative favours PUT.

func unavailable(name string, weight float64) model.FactorScore {
	return model.FactorScore{Name: name, Weight: weight, Commentary: "unavailable"}
}

func factor(name string, score, weight float64, commentary string) model.FactorScore {
	return model.FactorScore{
		Name:       name,
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: commentary,
	}
}

// scoreBollinger scores where the price sits inside the bands.
// Weight: 0.30
func scoreBollinger(price float64, series []model.BollingerPoint) model.FactorScore {
	const name, weight = "bollinger", 0.30
	if len(series) == 0 {
		return unavailable(name, weight)
	}
	bb := series[len(series)-1]
	width := bb.Upper - bb.Lower
	if width <= 0 {
		return factor(name, 0, weight, "flat bands")
	}
	pos := (price - bb.Lower) / width

	var score float64
	switch {
	case pos <= 0:
		score = 2.0
	case pos <= 0.1:
		score = 1.0
	case pos >= 1:
		score = -2.0
	case pos >= 0.9:
		score = -1.0
	default:
		score = 0
	}
	return factor(name, score, weight, fmt.Sprintf("band position %.2f", pos))
}

// scoreRSI scores overbought/oversold zones.
// Weight: 0.25
func scoreRSI(series []model.LinePoint) model.FactorScore {
	const name, weight = "rsi", 0.25
	if len(series) == 0 {
		return unavailable(name, weight)
	}
	rsi := series[len(series)-1].Value

	var score float64
	switch {
	case rsi <= 20:
		score = 2.0
	case rsi <= 30:
		score = 1.0
	case rsi >= 80:
		score = -2.0
	case rsi >= 70:
		score = -1.0
	default:
		score = 0
	}
	return factor(name, score, weight, fmt.Sprintf("RSI=%.0f", rsi))
}

// scoreStochastic scores the 20/80 zones, doubled when %K crosses %D there.
// Weight: 0.25
func scoreStochastic(prevSeries, curSeries []model.StochasticPoint) model.FactorScore {
	const name, weight = "stochastic", 0.25
	if len(prevSeries) == 0 || len(curSeries) == 0 {
		return unavailable(name, weight)
	}
	prev, cur := prevSeries[len(prevSeries)-1], curSeries[len(curSeries)-1]
	crossUp := prev.K <= prev.D && cur.K > cur.D
	crossDown := prev.K >= prev.D && cur.K < cur.D

	var score float64
	switch {
	case cur.K < 20 && crossUp:
		score = 2.0
	case cur.K < 20:
		score = 1.0
	case cur.K > 80 && crossDown:
		score = -2.0
	case cur.K > 80:
		score = -1.0
	default:
		score = 0
	}
	return factor(name, score, weight, fmt.Sprintf("%%K=%.0f %%D=%.0f", cur.K, cur.D))
}

// scoreDonchian scores closes pinned to a channel edge.
// Weight: 0.10
func scoreDonchian(price float64, series []model.DonchianPoint) model.FactorScore {
	const name, weight = "donchian", 0.10
	if len(series) == 0 {
		return unavailable(name, weight)
	}
	dc := series[len(series)-1]
	width := dc.Upper - dc.Lower
	if width <= 0 {
		return factor(name, 0, weight, "flat channel")
	}
	pos := (price - dc.Lower) / width

	var score float64
	switch {
	case pos <= 0.05:
		score = 1.0
	case pos >= 0.95:
		score = -1.0
	}
	return factor(name, score, weight, fmt.Sprintf("channel position %.2f", pos))
}

// scoreLevels scores a price within tolerance of established support or resistance.
// Weight: 0.10
func scoreLevels(price float64, series []model.LevelPoint, tolerance float64) model.FactorScore {
	const name, weight = "levels", 0.10
	if len(series) == 0 || price == 0 {
		return unavailable(name, weight)
	}
	lp := series[len(series)-1]
	near := func(level *float64) bool {
		if level == nil {
			return false
		}
		d := (price - *level) / price
		if d < 0 {
			d = -d
		}
		return d <= tolerance
	}

	switch {
	case near(lp.Support) && !near(lp.Resistance):
		return factor(name, 1.0, weight, fmt.Sprintf("at support %.5f", *lp.Support))
	case near(lp.Resistance) && !near(lp.Support):
		return factor(name, -1.0, weight, fmt.Sprintf("at resistance %.5f", *lp.Resistance))
	}
	return factor(name, 0, weight, "between levels")
}
