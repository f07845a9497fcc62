package strategy

import (
	"math"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/model"
)

// Params configures the classifier.
type Params struct {
	Indicators     calculator.Settings
	MinCandles     int
	CallThreshold  float64
	PutThreshold   float64
	LevelTolerance float64 // fraction of price counted as "at" a level
}

// DefaultParams returns the stock classifier parameters.
func DefaultParams() Params {
	return Params{
		Indicators:     calculator.DefaultSettings(),
		CallThreshold:  0.5,
		PutThreshold:   -0.5,
		LevelTolerance: 0.001,
	}
}

// requiredCandles is the history needed for every factor, plus one candle for
// the stochastic cross.
func (p Params) requiredCandles() int {
	n := p.Indicators.Lookback()
	if p.Indicators.Stochastic.Lookback()+1 > n {
		n = p.Indicators.Stochastic.Lookback() + 1
	}
	if p.MinCandles > n {
		n = p.MinCandles
	}
	return n
}

// mapSignal maps a total score to a Signal.
func mapSignal(total float64, p Params) model.Signal {
	switch {
	case math.IsNaN(total) || math.IsInf(total, 0):
		return model.SignalHold
	case total >= p.CallThreshold:
		return model.SignalCall
	case total <= p.PutThreshold:
		return model.SignalPut
	default:
		return model.SignalHold
	}
}

// Evaluate scores the newest candle of the window. It never fails: too little
// history or a degenerate score yields HOLD.
func Evaluate(candles []model.Candle, p Params) *model.SignalEvaluation {
	if len(candles) < p.requiredCandles() {
		return &model.SignalEvaluation{Signal: model.SignalHold, Reason: "insufficient data"}
	}

	s := p.Indicators
	last := candles[len(candles)-1]
	prev := candles[:len(candles)-1]

	f1 := scoreBollinger(last.Close, calculator.Bollinger(candles, s.Bollinger, calculator.Update))
	f2 := scoreRSI(calculator.RSI(candles, s.RSI, calculator.Update))
	f3 := scoreStochastic(
		calculator.Stochastic(prev, s.Stochastic, calculator.Update),
		calculator.Stochastic(candles, s.Stochastic, calculator.Update),
	)
	f4 := scoreDonchian(last.Close, calculator.Donchian(candles, s.Donchian, calculator.Update))
	f5 := scoreLevels(last.Close, calculator.SupportResistance(candles, s.SupportResistance, calculator.Update), p.LevelTolerance)

	factors := []model.FactorScore{f1, f2, f3, f4, f5}
	total := 0.0
	for _, f := range factors {
		total += f.Weighted
	}

	eval := &model.SignalEvaluation{
		Factors:    factors,
		TotalScore: total,
		Signal:     mapSignal(total, p),
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		eval.TotalScore = 0
		eval.Reason = "non-finite score"
	}
	return eval
}

// Classify returns the signal for the newest candle of the window.
func Classify(candles []model.Candle, p Params) model.Signal {
	sig := Evaluate(candles, p).Signal
	if !sig.Valid() {
		return model.SignalHold
	}
	return sig
}
