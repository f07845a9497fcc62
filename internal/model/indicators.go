package model

// BollingerPoint is one entry of a Bollinger Bands series.
type BollingerPoint struct {
	Time   int64
	Middle float64
	Upper  float64
	Lower  float64
}

// DonchianPoint is one entry of a Donchian Channels series.
type DonchianPoint struct {
	Time   int64
	Upper  float64
	Middle float64
	Lower  float64
}

// StochasticPoint holds %K and the (optionally smoothed) %D.
type StochasticPoint struct {
	Time int64
	K    float64
	D    float64
}

// LinePoint is a single-valued series entry (RSI, filtered levels).
type LinePoint struct {
	Time  int64
	Value float64
}

// LevelPoint holds rolling support and resistance. A nil level is not yet established.
type LevelPoint struct {
	Time       int64
	Support    *float64
	Resistance *float64
}

// IndicatorSet bundles every computed series for one asset/timeframe.
type IndicatorSet struct {
	AssetID    int
	Timeframe  int
	Bollinger  []BollingerPoint
	Donchian   []DonchianPoint
	Stochastic []StochasticPoint
	RSI        []LinePoint
	Levels     []LevelPoint
}
