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
// built-in defaults, applies NOLEMMA_* environment variable overrides, and
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

// applyEnvOverrides reads well-known NOLEMMA_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Node ──
	setDuration(&cfg.Node.SealPeriod, "NOLEMMA_NODE_SEAL_PERIOD")
	setInt(&cfg.Node.WithdrawalDepth, "NOLEMMA_NODE_WITHDRAWAL_DEPTH")

	// ── Wallet ──
	setStr(&cfg.Wallet.SecretSeed, "NOLEMMA_WALLET_SECRET_SEED")
	setStr(&cfg.Wallet.EncryptedSeedPath, "NOLEMMA_WALLET_ENCRYPTED_SEED_PATH")
	setStr(&cfg.Wallet.SeedPassword, "NOLEMMA_WALLET_SEED_PASSWORD")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "NOLEMMA_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "NOLEMMA_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "NOLEMMA_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "NOLEMMA_SERVER_CORS_ORIGINS")

	// ── Driver ──
	setBool(&cfg.Driver.Enabled, "NOLEMMA_DRIVER_ENABLED")
	setDuration(&cfg.Driver.SubmitEvery, "NOLEMMA_DRIVER_SUBMIT_EVERY")
	setInt(&cfg.Driver.ChainID, "NOLEMMA_DRIVER_CHAIN_ID")
	setStr(&cfg.Driver.TargetURL, "NOLEMMA_DRIVER_TARGET_URL")

	// ── Audit ──
	setBool(&cfg.Audit.Enabled, "NOLEMMA_AUDIT_ENABLED")
	setStr(&cfg.Audit.DSN, "NOLEMMA_AUDIT_DSN")
	setStr(&cfg.Audit.Host, "NOLEMMA_AUDIT_HOST")
	setInt(&cfg.Audit.Port, "NOLEMMA_AUDIT_PORT")
	setStr(&cfg.Audit.Database, "NOLEMMA_AUDIT_DATABASE")
	setStr(&cfg.Audit.User, "NOLEMMA_AUDIT_USER")
	setStr(&cfg.Audit.Password, "NOLEMMA_AUDIT_PASSWORD")
	setStr(&cfg.Audit.SSLMode, "NOLEMMA_AUDIT_SSL_MODE")
	setInt(&cfg.Audit.PoolMaxConns, "NOLEMMA_AUDIT_POOL_MAX_CONNS")
	setInt(&cfg.Audit.PoolMinConns, "NOLEMMA_AUDIT_POOL_MIN_CONNS")
	setBool(&cfg.Audit.RunMigrations, "NOLEMMA_AUDIT_RUN_MIGRATIONS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "NOLEMMA_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "NOLEMMA_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "NOLEMMA_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "NOLEMMA_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "NOLEMMA_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "NOLEMMA_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "NOLEMMA_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "NOLEMMA_ARCHIVE_FORCE_PATH_STYLE")

	// ── RateLimit ──
	setBool(&cfg.RateLim.Enabled, "NOLEMMA_RATE_LIMIT_ENABLED")
	setStr(&cfg.RateLim.Addr, "NOLEMMA_RATE_LIMIT_ADDR")
	setStr(&cfg.RateLim.Password, "NOLEMMA_RATE_LIMIT_PASSWORD")
	setInt(&cfg.RateLim.DB, "NOLEMMA_RATE_LIMIT_DB")
	setInt(&cfg.RateLim.PoolSize, "NOLEMMA_RATE_LIMIT_POOL_SIZE")
	setInt(&cfg.RateLim.MaxRetries, "NOLEMMA_RATE_LIMIT_MAX_RETRIES")
	setBool(&cfg.RateLim.TLSEnabled, "NOLEMMA_RATE_LIMIT_TLS_ENABLED")
	setInt(&cfg.RateLim.Limit, "NOLEMMA_RATE_LIMIT_LIMIT")
	setDuration(&cfg.RateLim.Window, "NOLEMMA_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "NOLEMMA_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NOLEMMA_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NOLEMMA_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NOLEMMA_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "NOLEMMA_MODE")
	setStr(&cfg.LogLevel, "NOLEMMA_LOG_LEVEL")
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
