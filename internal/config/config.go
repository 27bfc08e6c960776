// Package config defines the top-level configuration for the spread bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SPREADBOT_* environment variables.
type Config struct {
	Exchange ExchangeConfig `toml:"exchange"`
	Trading  TradingConfig  `toml:"trading"`
	Entry    EntryConfig    `toml:"entry"`
	Exit     ExitConfig     `toml:"exit"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Notify   NotifyConfig   `toml:"notify"`
	Report   ReportConfig   `toml:"report"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ExchangeConfig holds venue API endpoints and credentials.
type ExchangeConfig struct {
	BaseURL             string   `toml:"base_url"`
	StreamURL           string   `toml:"stream_url"`
	ApiKey              string   `toml:"api_key"`
	ApiSecret           string   `toml:"api_secret"`
	EncryptedSecretPath string   `toml:"encrypted_secret_path"`
	SecretPassword      string   `toml:"secret_password"`
	RequestTimeout      duration `toml:"request_timeout"`
}

// TradingConfig holds the pair and polling cadence.
type TradingConfig struct {
	Symbol         string   `toml:"symbol"`
	BaseAsset      string   `toml:"base_asset"`
	QuoteAsset     string   `toml:"quote_asset"`
	CycleInterval  duration `toml:"cycle_interval"`
	StatusInterval duration `toml:"status_interval"`
	Depth          int      `toml:"depth"`
	CandleInterval string   `toml:"candle_interval"`
	CandleLimit    int      `toml:"candle_limit"`
}

// EntryConfig holds the entry-gate thresholds and momentum policy selection.
type EntryConfig struct {
	SpreadThreshold float64 `toml:"spread_threshold"`
	MinNotional     float64 `toml:"min_notional"`
	MaxBalanceRatio float64 `toml:"max_balance_ratio"`
	// Policy selects the momentum gate: "tick_momentum" or "ma_convergence".
	Policy      string  `toml:"policy"`
	ShortPeriod int     `toml:"short_period"`
	LongPeriod  int     `toml:"long_period"`
	Lookback    int     `toml:"lookback"`
	Sharpness   float64 `toml:"sharpness"`
}

// ExitConfig holds the trailing-stop and crossover exit parameters.
type ExitConfig struct {
	ConfirmationPeriod duration `toml:"confirmation_period"`
	MinSellQuantity    float64  `toml:"min_sell_quantity"`
	// PricePrecision is the number of decimals prices are rounded to before
	// ratchet comparisons; -1 disables rounding.
	PricePrecision    int  `toml:"price_precision"`
	CrossoverEnabled  bool `toml:"crossover_enabled"`
	CrossoverShort    int  `toml:"crossover_short"`
	CrossoverMedium   int  `toml:"crossover_medium"`
}

// PostgresConfig holds PostgreSQL connection parameters for optional
// position/trade persistence.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the optional candle
// cache and event bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for daily report
// archiving.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	NtfyTopicURL      string   `toml:"ntfy_topic_url"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// ReportConfig holds the daily statistics report parameters.
type ReportConfig struct {
	Interval duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Exchange: ExchangeConfig{
			BaseURL:        "https://api.binance.com",
			StreamURL:      "wss://stream.binance.com:9443",
			RequestTimeout: duration{10 * time.Second},
		},
		Trading: TradingConfig{
			Symbol:         "BTCUSDT",
			BaseAsset:      "BTC",
			QuoteAsset:     "USDT",
			CycleInterval:  duration{3 * time.Second},
			StatusInterval: duration{10 * time.Second},
			Depth:          20,
			CandleInterval: "1m",
			CandleLimit:    50,
		},
		Entry: EntryConfig{
			SpreadThreshold: 0.001,
			MinNotional:     10.0,
			MaxBalanceRatio: 0.9,
			Policy:          "tick_momentum",
			ShortPeriod:     5,
			LongPeriod:      20,
			Lookback:        3,
			Sharpness:       0.3,
		},
		Exit: ExitConfig{
			ConfirmationPeriod: duration{time.Minute},
			MinSellQuantity:    0.0001,
			PricePrecision:     2,
			CrossoverEnabled:   false,
			CrossoverShort:     5,
			CrossoverMedium:    10,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "spreadbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "spreadbot-reports",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			Events: []string{"entry", "exit", "report", "error"},
		},
		Report: ReportConfig{
			Interval: duration{24 * time.Hour},
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validEntryPolicies enumerates the accepted values for Entry.Policy.
var validEntryPolicies = map[string]bool{
	"tick_momentum":  true,
	"ma_convergence": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Exchange. Credentials are required for trading mode only.
	if c.Exchange.BaseURL == "" {
		errs = append(errs, "exchange: base_url must not be empty")
	}
	if strings.ToLower(c.Mode) == "trade" {
		if c.Exchange.ApiKey == "" {
			errs = append(errs, "exchange: api_key is required for mode trade")
		}
		if c.Exchange.ApiSecret == "" && c.Exchange.EncryptedSecretPath == "" {
			errs = append(errs, "exchange: either api_secret or encrypted_secret_path must be set for mode trade")
		}
		if c.Exchange.EncryptedSecretPath != "" && c.Exchange.SecretPassword == "" {
			errs = append(errs, "exchange: secret_password is required when encrypted_secret_path is set")
		}
	}
	if c.Exchange.RequestTimeout.Duration <= 0 {
		errs = append(errs, "exchange: request_timeout must be > 0")
	}

	// Trading
	if c.Trading.Symbol == "" {
		errs = append(errs, "trading: symbol must not be empty")
	}
	if c.Trading.BaseAsset == "" || c.Trading.QuoteAsset == "" {
		errs = append(errs, "trading: base_asset and quote_asset must not be empty")
	}
	if c.Trading.CycleInterval.Duration <= 0 {
		errs = append(errs, "trading: cycle_interval must be > 0")
	}
	if c.Trading.StatusInterval.Duration <= 0 {
		errs = append(errs, "trading: status_interval must be > 0")
	}
	if c.Trading.Depth < 1 {
		errs = append(errs, "trading: depth must be >= 1")
	}
	if c.Trading.CandleLimit < 2 {
		errs = append(errs, "trading: candle_limit must be >= 2")
	}

	// Entry
	if c.Entry.SpreadThreshold <= 0 {
		errs = append(errs, "entry: spread_threshold must be > 0")
	}
	if c.Entry.MinNotional < 0 {
		errs = append(errs, "entry: min_notional must be >= 0")
	}
	if c.Entry.MaxBalanceRatio <= 0 || c.Entry.MaxBalanceRatio > 1 {
		errs = append(errs, fmt.Sprintf("entry: max_balance_ratio must be in (0, 1], got %g", c.Entry.MaxBalanceRatio))
	}
	if !validEntryPolicies[c.Entry.Policy] {
		errs = append(errs, fmt.Sprintf("entry: unknown policy %q (valid: tick_momentum, ma_convergence)", c.Entry.Policy))
	}
	if c.Entry.Policy == "ma_convergence" {
		if c.Entry.ShortPeriod < 1 || c.Entry.LongPeriod <= c.Entry.ShortPeriod {
			errs = append(errs, "entry: long_period must exceed short_period, both >= 1")
		}
		if c.Entry.Lookback < 1 {
			errs = append(errs, "entry: lookback must be >= 1")
		}
		if c.Entry.Sharpness <= 0 || c.Entry.Sharpness > 1 {
			errs = append(errs, fmt.Sprintf("entry: sharpness must be in (0, 1], got %g", c.Entry.Sharpness))
		}
	}

	// Exit
	if c.Exit.ConfirmationPeriod.Duration <= 0 {
		errs = append(errs, "exit: confirmation_period must be > 0")
	}
	if c.Exit.MinSellQuantity < 0 {
		errs = append(errs, "exit: min_sell_quantity must be >= 0")
	}
	if c.Exit.CrossoverEnabled {
		if c.Exit.CrossoverShort < 1 || c.Exit.CrossoverMedium <= c.Exit.CrossoverShort {
			errs = append(errs, "exit: crossover_medium must exceed crossover_short, both >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Report
	if c.Report.Interval.Duration <= 0 {
		errs = append(errs, "report: interval must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
