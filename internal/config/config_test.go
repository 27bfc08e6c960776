package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidateInMonitorMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "monitor"

[trading]
symbol = "ETHUSDT"
base_asset = "ETH"
quote_asset = "USDT"
cycle_interval = "5s"

[entry]
spread_threshold = 0.002
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", cfg.Trading.Symbol)
	assert.Equal(t, 5*time.Second, cfg.Trading.CycleInterval.Duration)
	assert.InDelta(t, 0.002, cfg.Entry.SpreadThreshold, 1e-12)
	// Untouched sections keep their defaults.
	assert.Equal(t, 20, cfg.Trading.Depth)
	assert.InDelta(t, 0.9, cfg.Entry.MaxBalanceRatio, 1e-12)
	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, `mode = "monitor"`)

	t.Setenv("SPREADBOT_TRADING_SYMBOL", "SOLUSDT")
	t.Setenv("SPREADBOT_ENTRY_SPREAD_THRESHOLD", "0.0005")
	t.Setenv("SPREADBOT_EXIT_CONFIRMATION_PERIOD", "90s")
	t.Setenv("SPREADBOT_EXCHANGE_API_KEY", "env-key")
	t.Setenv("SPREADBOT_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "SOLUSDT", cfg.Trading.Symbol)
	assert.InDelta(t, 0.0005, cfg.Entry.SpreadThreshold, 1e-12)
	assert.Equal(t, 90*time.Second, cfg.Exit.ConfirmationPeriod.Duration)
	assert.Equal(t, "env-key", cfg.Exchange.ApiKey)
	assert.True(t, cfg.Redis.Enabled)
}

func TestValidateTradeModeRequiresCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key is required")
	assert.Contains(t, err.Error(), "api_secret or encrypted_secret_path")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Entry.MaxBalanceRatio = 1.5
	cfg.Entry.Policy = "astrology"
	cfg.Exit.ConfirmationPeriod.Duration = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "bogus"`)
	assert.Contains(t, err.Error(), `unknown log_level "loud"`)
	assert.Contains(t, err.Error(), "max_balance_ratio")
	assert.Contains(t, err.Error(), `unknown policy "astrology"`)
	assert.Contains(t, err.Error(), "confirmation_period")
}

func TestValidateMAConvergenceParams(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	cfg.Entry.Policy = "ma_convergence"
	cfg.Entry.ShortPeriod = 10
	cfg.Entry.LongPeriod = 5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "long_period must exceed short_period")
}

func TestValidateCrossoverParams(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	cfg.Exit.CrossoverEnabled = true
	cfg.Exit.CrossoverShort = 10
	cfg.Exit.CrossoverMedium = 5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crossover_medium must exceed crossover_short")
}

func TestValidateEnabledBackendsOnly(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"

	// Disabled backends are not validated.
	cfg.Postgres.Enabled = false
	cfg.Postgres.Host = ""
	cfg.S3.Enabled = false
	cfg.S3.Bucket = ""
	assert.NoError(t, cfg.Validate())

	cfg.S3.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: bucket")
}

func TestDurationRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("2m30s")))
	assert.Equal(t, 2*time.Minute+30*time.Second, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2m30s", string(text))
}
