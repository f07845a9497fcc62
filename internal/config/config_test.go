package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.LogPretty())
	assert.Equal(t, 14, cfg.Indicators.Bollinger.Period)
	assert.Equal(t, 2.0, cfg.Indicators.Bollinger.StdDev)
	assert.Equal(t, 13, cfg.Indicators.Stochastic.KPeriod)
	assert.Equal(t, 25, cfg.Indicators.SupportResistance.BoxPeriod)
	assert.Equal(t, 3*time.Second, cfg.Signal.Interval)
	assert.Equal(t, 100, cfg.Signal.Lookback)
	assert.Equal(t, 500, cfg.Candles.Capacity)
	assert.True(t, cfg.MartingaleEnabled())
	assert.Equal(t, 4, cfg.Martingale.MaxLevel)
	assert.Equal(t, []float64{2.5, 2.5, 2.5, 2.5}, cfg.Martingale.Multipliers)
	assert.Equal(t, time.Hour, cfg.Martingale.Expiration)
	assert.Equal(t, 7, cfg.BreakWarning.MinOrders)
	assert.True(t, cfg.BreakWarning.PauseAutoTrade)
	assert.Equal(t, "@every 5s", cfg.Schedule.EvaluateCron)
	assert.Equal(t, "data/signaldesk.db", cfg.Database.SQLitePath)
	assert.Equal(t, []int{1}, cfg.Feed.Assets)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  pretty: false
indicators:
  bollinger:
    period: 20
    std_dev: 2.5
signal:
  interval: 500ms
martingale:
  enabled: false
  max_level: 3
  multipliers: [1, 2, 4]
break_warning:
  enabled: false
  time_window: 30
schedule:
  cleanup_cron: "0 */30 * * * *"
feed:
  assets: [1, 2, 3]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.LogPretty())
	assert.Equal(t, 20, cfg.Indicators.Bollinger.Period)
	assert.Equal(t, 2.5, cfg.Indicators.Bollinger.StdDev)
	assert.Equal(t, 20, cfg.Indicators.Donchian.Period)
	assert.Equal(t, 500*time.Millisecond, cfg.Signal.Interval)
	assert.False(t, cfg.MartingaleEnabled())
	assert.Equal(t, []float64{1, 2, 4}, cfg.Martingale.Multipliers)
	assert.False(t, cfg.BreakWarning.Enabled)
	assert.Equal(t, 30, cfg.BreakWarning.TimeWindow)
	assert.Equal(t, "0 */30 * * * *", cfg.Schedule.CleanupCron)
	assert.Equal(t, []int{1, 2, 3}, cfg.Feed.Assets)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("STATE_FILE", "/tmp/state.json")
	t.Setenv("METRICS_ADDR", ":9191")
	t.Setenv("SIGNAL_INTERVAL", "10s")
	t.Setenv("MARTINGALE_ENABLED", "false")
	t.Setenv("PROFIT_TARGET_PCT", "5")
	t.Setenv("LOSS_LIMIT_PCT", "7.5")

	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLitePath)
	assert.Equal(t, "/tmp/state.json", cfg.State.File)
	assert.Equal(t, ":9191", cfg.Metrics.Addr)
	assert.Equal(t, 10*time.Second, cfg.Signal.Interval)
	assert.False(t, cfg.MartingaleEnabled())
	assert.Equal(t, 5.0, cfg.Goals.ProfitTargetPct)
	assert.Equal(t, 7.5, cfg.Goals.LossLimitPct)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("SIGNAL_INTERVAL", "soon")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "signal: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	cfg.Martingale.MaxLevel = 5
	cfg.Martingale.Multipliers = []float64{1, 0, 2}
	cfg.Signal.Lookback = -1
	cfg.Schedule.EvaluateCron = "whenever"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
}
