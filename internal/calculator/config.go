package calculator

import "github.com/rs/zerolog/log"

// Mode selects between recomputing a whole series and only its newest entry.
type Mode int

const (
	// Full recomputes every entry.
	Full Mode = iota
	// Update recomputes only the last entry, for streaming ticks.
	Update
)

const (
	minPeriod    = 1
	minBoxPeriod = 2
	minStdDev    = 0.0
)

// BollingerConfig configures Bollinger Bands.
type BollingerConfig struct {
	Period int     `yaml:"period"`
	StdDev float64 `yaml:"std_dev"`
}

// DonchianConfig configures Donchian Channels.
type DonchianConfig struct {
	Period int `yaml:"period"`
}

// StochasticConfig configures the Stochastic Oscillator.
type StochasticConfig struct {
	KPeriod   int `yaml:"k_period"`
	DPeriod   int `yaml:"d_period"`
	Smoothing int `yaml:"smoothing"`
}

// RSIConfig configures the Relative Strength Index.
type RSIConfig struct {
	Period int `yaml:"period"`
}

// SupportResistanceConfig configures rolling support/resistance levels.
type SupportResistanceConfig struct {
	BoxPeriod int `yaml:"box_period"`
}

// Settings groups the configuration of every indicator.
type Settings struct {
	Bollinger         BollingerConfig         `yaml:"bollinger"`
	Donchian          DonchianConfig          `yaml:"donchian"`
	Stochastic        StochasticConfig        `yaml:"stochastic"`
	RSI               RSIConfig               `yaml:"rsi"`
	SupportResistance SupportResistanceConfig `yaml:"support_resistance"`
}

// DefaultSettings returns the stock indicator parameters.
func DefaultSettings() Settings {
	return Settings{
		Bollinger:         BollingerConfig{Period: 14, StdDev: 2},
		Donchian:          DonchianConfig{Period: 20},
		Stochastic:        StochasticConfig{KPeriod: 13, DPeriod: 3, Smoothing: 3},
		RSI:               RSIConfig{Period: 14},
		SupportResistance: SupportResistanceConfig{BoxPeriod: 25},
	}
}

// Clamp raises out-of-range values to their minimum.
func (c BollingerConfig) Clamp() BollingerConfig {
	c.Period = clampInt("bollinger", "period", c.Period, minPeriod)
	if c.StdDev < minStdDev {
		log.Warn().Str("indicator", "bollinger").Float64("std_dev", c.StdDev).Msg("negative multiplier clamped to 0")
		c.StdDev = minStdDev
	}
	return c
}

// Clamp raises out-of-range values to their minimum.
func (c DonchianConfig) Clamp() DonchianConfig {
	c.Period = clampInt("donchian", "period", c.Period, minPeriod)
	return c
}

// Clamp raises out-of-range values to their minimum.
func (c StochasticConfig) Clamp() StochasticConfig {
	c.KPeriod = clampInt("stochastic", "k_period", c.KPeriod, minPeriod)
	c.DPeriod = clampInt("stochastic", "d_period", c.DPeriod, minPeriod)
	c.Smoothing = clampInt("stochastic", "smoothing", c.Smoothing, minPeriod)
	return c
}

// Clamp raises out-of-range values to their minimum.
func (c RSIConfig) Clamp() RSIConfig {
	c.Period = clampInt("rsi", "period", c.Period, minPeriod)
	return c
}

// Clamp raises out-of-range values to their minimum. A box needs two candles
// so that a level can be set before the newest one.
func (c SupportResistanceConfig) Clamp() SupportResistanceConfig {
	c.BoxPeriod = clampInt("support_resistance", "box_period", c.BoxPeriod, minBoxPeriod)
	return c
}

func clampInt(indicator, field string, v, floor int) int {
	if v >= floor {
		return v
	}
	log.Warn().Str("indicator", indicator).Str("field", field).Int("value", v).Int("min", floor).Msg("config value clamped")
	return floor
}

// Lookback returns the number of candles needed for the first entry.
func (c BollingerConfig) Lookback() int { return c.Clamp().Period }

// Lookback returns the number of candles needed for the first entry.
func (c DonchianConfig) Lookback() int { return c.Clamp().Period }

// Lookback returns the number of candles needed for the first entry.
func (c StochasticConfig) Lookback() int {
	c = c.Clamp()
	return c.KPeriod + c.DPeriod + c.Smoothing - 2
}

// Lookback returns the number of candles needed for the first entry.
func (c RSIConfig) Lookback() int { return c.Clamp().Period + 1 }

// Lookback returns the number of candles needed for the first entry.
func (c SupportResistanceConfig) Lookback() int { return c.Clamp().BoxPeriod }

// Lookback returns the largest lookback across all indicators.
func (s Settings) Lookback() int {
	n := s.Bollinger.Lookback()
	for _, v := range []int{s.Donchian.Lookback(), s.Stochastic.Lookback(), s.RSI.Lookback(), s.SupportResistance.Lookback()} {
		if v > n {
			n = v
		}
	}
	return n
}
