package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/risk"
)

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		Pretty *bool  `yaml:"pretty"`
	} `yaml:"log"`
	Indicators calculator.Settings `yaml:"indicators"`
	Signal     struct {
		Interval      time.Duration `yaml:"interval"`
		Lookback      int           `yaml:"lookback"`
		CallThreshold float64       `yaml:"call_threshold"`
		PutThreshold  float64       `yaml:"put_threshold"`
		Workers       int           `yaml:"workers"`
	} `yaml:"signal"`
	Candles struct {
		Capacity  int `yaml:"capacity"`
		Timeframe int `yaml:"timeframe"`
	} `yaml:"candles"`
	Martingale struct {
		Enabled     *bool         `yaml:"enabled"`
		MaxLevel    int           `yaml:"max_level"`
		Multipliers []float64     `yaml:"multipliers"`
		Expiration  time.Duration `yaml:"expiration"`
		StaleAfter  time.Duration `yaml:"stale_after"`
	} `yaml:"martingale"`
	Goals struct {
		ProfitTargetPct float64 `yaml:"profit_target_pct"`
		LossLimitPct    float64 `yaml:"loss_limit_pct"`
	} `yaml:"goals"`
	BreakWarning risk.BreakSettings `yaml:"break_warning"`
	AutoTrade    struct {
		Enabled bool    `yaml:"enabled"`
		Amount  float64 `yaml:"amount"`
	} `yaml:"auto_trade"`
	Schedule struct {
		CleanupCron    string `yaml:"cleanup_cron"`
		DailyResetCron string `yaml:"daily_reset_cron"`
		EvaluateCron   string `yaml:"evaluate_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	State struct {
		File string `yaml:"file"`
	} `yaml:"state"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Feed struct {
		Assets          []int         `yaml:"assets"`
		BalanceID       int           `yaml:"balance_id"`
		BasePrice       float64       `yaml:"base_price"`
		StartingBalance float64       `yaml:"starting_balance"`
		Tick            time.Duration `yaml:"tick"`
		Seed            int64         `yaml:"seed"`
	} `yaml:"feed"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.State.File = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("SIGNAL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SIGNAL_INTERVAL: %w", err)
		}
		cfg.Signal.Interval = d
	}
	if v := os.Getenv("MARTINGALE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MARTINGALE_ENABLED: %w", err)
		}
		cfg.Martingale.Enabled = &b
	}
	if v := os.Getenv("PROFIT_TARGET_PCT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("PROFIT_TARGET_PCT: %w", err)
		}
		cfg.Goals.ProfitTargetPct = f
	}
	if v := os.Getenv("LOSS_LIMIT_PCT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("LOSS_LIMIT_PCT: %w", err)
		}
		cfg.Goals.LossLimitPct = f
	}

	cfg.applyDefaults(len(data) > 0 && hasKey(data, "break_warning"))
	return cfg, nil
}

func (c *Config) applyDefaults(breakConfigured bool) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Pretty == nil {
		c.Log.Pretty = boolPtr(true)
	}

	def := calculator.DefaultSettings()
	ind := &c.Indicators
	if ind.Bollinger == (calculator.BollingerConfig{}) {
		ind.Bollinger = def.Bollinger
	}
	if ind.Donchian == (calculator.DonchianConfig{}) {
		ind.Donchian = def.Donchian
	}
	if ind.Stochastic == (calculator.StochasticConfig{}) {
		ind.Stochastic = def.Stochastic
	}
	if ind.RSI == (calculator.RSIConfig{}) {
		ind.RSI = def.RSI
	}
	if ind.SupportResistance == (calculator.SupportResistanceConfig{}) {
		ind.SupportResistance = def.SupportResistance
	}

	if c.Signal.Interval == 0 {
		c.Signal.Interval = 3 * time.Second
	}
	if c.Signal.Lookback == 0 {
		c.Signal.Lookback = 100
	}
	if c.Signal.CallThreshold == 0 {
		c.Signal.CallThreshold = 0.5
	}
	if c.Signal.PutThreshold == 0 {
		c.Signal.PutThreshold = -0.5
	}
	if c.Signal.Workers == 0 {
		c.Signal.Workers = 8
	}

	if c.Candles.Capacity == 0 {
		c.Candles.Capacity = 500
	}
	if c.Candles.Timeframe == 0 {
		c.Candles.Timeframe = 60
	}

	if c.Martingale.Enabled == nil {
		c.Martingale.Enabled = boolPtr(true)
	}
	if c.Martingale.MaxLevel == 0 {
		c.Martingale.MaxLevel = 4
	}
	if len(c.Martingale.Multipliers) == 0 {
		c.Martingale.Multipliers = []float64{2.5, 2.5, 2.5, 2.5}
	}
	if c.Martingale.Expiration == 0 {
		c.Martingale.Expiration = time.Hour
	}
	if c.Martingale.StaleAfter == 0 {
		c.Martingale.StaleAfter = time.Minute
	}

	if c.Goals.ProfitTargetPct == 0 {
		c.Goals.ProfitTargetPct = 10
	}
	if c.Goals.LossLimitPct == 0 {
		c.Goals.LossLimitPct = 10
	}

	if !breakConfigured {
		c.BreakWarning = risk.BreakSettings{
			Enabled:        true,
			TimeWindow:     15,
			MinOrders:      7,
			LossThreshold:  3,
			PauseAutoTrade: true,
			PauseDuration:  15,
		}
	}

	if c.AutoTrade.Amount == 0 {
		c.AutoTrade.Amount = 10
	}

	if c.Schedule.CleanupCron == "" {
		c.Schedule.CleanupCron = "0 0 * * * *"
	}
	if c.Schedule.DailyResetCron == "" {
		c.Schedule.DailyResetCron = "0 0 0 * * *"
	}
	if c.Schedule.EvaluateCron == "" {
		c.Schedule.EvaluateCron = "@every 5s"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/signaldesk.db"
	}
	if c.State.File == "" {
		c.State.File = "data/risk_state.json"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}

	if len(c.Feed.Assets) == 0 {
		c.Feed.Assets = []int{1}
	}
	if c.Feed.BalanceID == 0 {
		c.Feed.BalanceID = 1
	}
	if c.Feed.BasePrice == 0 {
		c.Feed.BasePrice = 100
	}
	if c.Feed.StartingBalance == 0 {
		c.Feed.StartingBalance = 1000
	}
	if c.Feed.Tick == 0 {
		c.Feed.Tick = time.Second
	}
	if c.Feed.Seed == 0 {
		c.Feed.Seed = 1
	}
}

// Validate rejects values the service cannot run with. Indicator periods are
// clamped where they are used instead.
func (c *Config) Validate() error {
	var errs []error
	if c.Signal.Interval <= 0 {
		errs = append(errs, fmt.Errorf("signal.interval must be positive"))
	}
	if c.Signal.Lookback < 1 {
		errs = append(errs, fmt.Errorf("signal.lookback must be at least 1"))
	}
	if c.Signal.CallThreshold <= c.Signal.PutThreshold {
		errs = append(errs, fmt.Errorf("signal.call_threshold must exceed signal.put_threshold"))
	}
	if c.Candles.Capacity < 1 || c.Candles.Timeframe < 1 {
		errs = append(errs, fmt.Errorf("candles.capacity and candles.timeframe must be positive"))
	}
	if c.Martingale.MaxLevel < 1 {
		errs = append(errs, fmt.Errorf("martingale.max_level must be at least 1"))
	}
	if len(c.Martingale.Multipliers) < c.Martingale.MaxLevel {
		errs = append(errs, fmt.Errorf("martingale.multipliers needs %d entries, has %d", c.Martingale.MaxLevel, len(c.Martingale.Multipliers)))
	}
	for i, m := range c.Martingale.Multipliers {
		if m <= 0 {
			errs = append(errs, fmt.Errorf("martingale.multipliers[%d] must be positive", i))
		}
	}
	if c.Goals.ProfitTargetPct < 0 || c.Goals.LossLimitPct < 0 {
		errs = append(errs, fmt.Errorf("goals percentages must not be negative"))
	}
	if c.Feed.Tick <= 0 {
		errs = append(errs, fmt.Errorf("feed.tick must be positive"))
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"schedule.cleanup_cron":     c.Schedule.CleanupCron,
		"schedule.daily_reset_cron": c.Schedule.DailyResetCron,
		"schedule.evaluate_cron":    c.Schedule.EvaluateCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return multierr.Combine(errs...)
}

// MartingaleEnabled reports the effective martingale switch.
func (c *Config) MartingaleEnabled() bool {
	return c.Martingale.Enabled == nil || *c.Martingale.Enabled
}

// LogPretty reports the effective console-format switch.
func (c *Config) LogPretty() bool {
	return c.Log.Pretty == nil || *c.Log.Pretty
}

func boolPtr(b bool) *bool { return &b }

func hasKey(data []byte, key string) bool {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return false
	}
	_, ok := top[key]
	return ok
}
