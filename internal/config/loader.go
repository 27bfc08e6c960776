package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SPREADBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SPREADBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// --- Exchange ---
	setStr(&cfg.Exchange.BaseURL, "SPREADBOT_EXCHANGE_BASE_URL")
	setStr(&cfg.Exchange.StreamURL, "SPREADBOT_EXCHANGE_STREAM_URL")
	setStr(&cfg.Exchange.ApiKey, "SPREADBOT_EXCHANGE_API_KEY")
	setStr(&cfg.Exchange.ApiSecret, "SPREADBOT_EXCHANGE_API_SECRET")
	setStr(&cfg.Exchange.EncryptedSecretPath, "SPREADBOT_EXCHANGE_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Exchange.SecretPassword, "SPREADBOT_EXCHANGE_SECRET_PASSWORD")
	setDuration(&cfg.Exchange.RequestTimeout, "SPREADBOT_EXCHANGE_REQUEST_TIMEOUT")

	// --- Trading ---
	setStr(&cfg.Trading.Symbol, "SPREADBOT_TRADING_SYMBOL")
	setStr(&cfg.Trading.BaseAsset, "SPREADBOT_TRADING_BASE_ASSET")
	setStr(&cfg.Trading.QuoteAsset, "SPREADBOT_TRADING_QUOTE_ASSET")
	setDuration(&cfg.Trading.CycleInterval, "SPREADBOT_TRADING_CYCLE_INTERVAL")
	setDuration(&cfg.Trading.StatusInterval, "SPREADBOT_TRADING_STATUS_INTERVAL")
	setInt(&cfg.Trading.Depth, "SPREADBOT_TRADING_DEPTH")
	setStr(&cfg.Trading.CandleInterval, "SPREADBOT_TRADING_CANDLE_INTERVAL")
	setInt(&cfg.Trading.CandleLimit, "SPREADBOT_TRADING_CANDLE_LIMIT")

	// --- Entry ---
	setFloat64(&cfg.Entry.SpreadThreshold, "SPREADBOT_ENTRY_SPREAD_THRESHOLD")
	setFloat64(&cfg.Entry.MinNotional, "SPREADBOT_ENTRY_MIN_NOTIONAL")
	setFloat64(&cfg.Entry.MaxBalanceRatio, "SPREADBOT_ENTRY_MAX_BALANCE_RATIO")
	setStr(&cfg.Entry.Policy, "SPREADBOT_ENTRY_POLICY")
	setInt(&cfg.Entry.ShortPeriod, "SPREADBOT_ENTRY_SHORT_PERIOD")
	setInt(&cfg.Entry.LongPeriod, "SPREADBOT_ENTRY_LONG_PERIOD")
	setInt(&cfg.Entry.Lookback, "SPREADBOT_ENTRY_LOOKBACK")
	setFloat64(&cfg.Entry.Sharpness, "SPREADBOT_ENTRY_SHARPNESS")

	// --- Exit ---
	setDuration(&cfg.Exit.ConfirmationPeriod, "SPREADBOT_EXIT_CONFIRMATION_PERIOD")
	setFloat64(&cfg.Exit.MinSellQuantity, "SPREADBOT_EXIT_MIN_SELL_QUANTITY")
	setInt(&cfg.Exit.PricePrecision, "SPREADBOT_EXIT_PRICE_PRECISION")
	setBool(&cfg.Exit.CrossoverEnabled, "SPREADBOT_EXIT_CROSSOVER_ENABLED")
	setInt(&cfg.Exit.CrossoverShort, "SPREADBOT_EXIT_CROSSOVER_SHORT")
	setInt(&cfg.Exit.CrossoverMedium, "SPREADBOT_EXIT_CROSSOVER_MEDIUM")

	// --- Postgres ---
	setBool(&cfg.Postgres.Enabled, "SPREADBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SPREADBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SPREADBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SPREADBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SPREADBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SPREADBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SPREADBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SPREADBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SPREADBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SPREADBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SPREADBOT_POSTGRES_RUN_MIGRATIONS")

	// --- Redis ---
	setBool(&cfg.Redis.Enabled, "SPREADBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SPREADBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPREADBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPREADBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPREADBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPREADBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SPREADBOT_REDIS_TLS_ENABLED")

	// --- S3 ---
	setBool(&cfg.S3.Enabled, "SPREADBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SPREADBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SPREADBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "SPREADBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SPREADBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SPREADBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SPREADBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SPREADBOT_S3_FORCE_PATH_STYLE")

	// --- Notify ---
	setStr(&cfg.Notify.NtfyTopicURL, "SPREADBOT_NOTIFY_NTFY_TOPIC_URL")
	setStr(&cfg.Notify.TelegramToken, "SPREADBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SPREADBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SPREADBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SPREADBOT_NOTIFY_EVENTS")

	// --- Report ---
	setDuration(&cfg.Report.Interval, "SPREADBOT_REPORT_INTERVAL")

	// --- Top-level ---
	setStr(&cfg.Mode, "SPREADBOT_MODE")
	setStr(&cfg.LogLevel, "SPREADBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
