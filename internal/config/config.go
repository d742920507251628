// Package config defines the top-level configuration for the Nolemma
// sequencer and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// duration wraps time.Duration so it can be decoded from a TOML string like
// "500ms" via UnmarshalText.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by NOLEMMA_* environment
// variables.
type Config struct {
	Node     NodeConfig     `toml:"node"`
	Wallet   WalletConfig   `toml:"wallet"`
	Server   ServerConfig   `toml:"server"`
	Driver   DriverConfig   `toml:"driver"`
	Audit    AuditConfig    `toml:"audit"`
	Archive  ArchiveConfig  `toml:"archive"`
	RateLim  RateLimConfig  `toml:"rate_limit"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// NodeConfig holds the sequencer engine's core parameters.
type NodeConfig struct {
	SealPeriod      duration `toml:"seal_period"`
	WithdrawalDepth int      `toml:"withdrawal_depth"`
}

// WalletConfig holds the sequencer's signing-key credentials.
type WalletConfig struct {
	SecretSeed        string `toml:"secret_seed"`
	EncryptedSeedPath string `toml:"encrypted_seed_path"`
	SeedPassword      string `toml:"seed_password"`
}

// ServerConfig holds the HTTP+WebSocket transport configuration.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// DriverConfig holds the traffic-generator's parameters. TargetURL is only
// consulted in `-mode driver`, where the generator submits to a separately
// running node over HTTP instead of in-process.
type DriverConfig struct {
	Enabled     bool     `toml:"enabled"`
	SubmitEvery duration `toml:"submit_every"`
	ChainID     int      `toml:"chain_id"`
	TargetURL   string   `toml:"target_url"`
}

// AuditConfig holds optional PostgreSQL audit-log parameters.
type AuditConfig struct {
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

// ArchiveConfig holds optional S3-compatible sealed-block archival
// parameters.
type ArchiveConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// RateLimConfig holds optional Redis-backed rate limiting parameters for the
// SubmitTx HTTP boundary.
type RateLimConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	Limit      int    `toml:"limit"`
	Window     duration `toml:"window"`
}

// NotifyConfig holds optional event-notification webhook credentials.
type NotifyConfig struct {
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	Events            []string `toml:"events"`
}

var validModes = map[string]bool{
	"node":       true,
	"driver":     true,
	"standalone": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns the built-in configuration defaults: a one-second seal
// period and a withdrawal tree depth of 32.
func Defaults() Config {
	return Config{
		Node: NodeConfig{
			SealPeriod:      duration{time.Second},
			WithdrawalDepth: 32,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8585,
		},
		Driver: DriverConfig{
			Enabled:     true,
			SubmitEvery: duration{200 * time.Millisecond},
			ChainID:     1337,
			TargetURL:   "http://localhost:8585",
		},
		Audit: AuditConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "nolemma",
			User:         "nolemma",
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		Archive: ArchiveConfig{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "nolemma-blocks",
			ForcePathStyle: true,
		},
		RateLim: RateLimConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			Limit:      50,
			Window:     duration{time.Second},
		},
		Mode:     "standalone",
		LogLevel: "info",
	}
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: node, driver, standalone)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Node.WithdrawalDepth <= 0 || c.Node.WithdrawalDepth > 64 {
		errs = append(errs, fmt.Sprintf("node: withdrawal_depth must be 1-64, got %d", c.Node.WithdrawalDepth))
	}
	if c.Node.SealPeriod.Duration <= 0 {
		errs = append(errs, "node: seal_period must be > 0")
	}

	if c.Wallet.EncryptedSeedPath != "" && c.Wallet.SeedPassword == "" {
		errs = append(errs, "wallet: seed_password is required when encrypted_seed_path is set")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if c.Audit.Enabled {
		if strings.TrimSpace(c.Audit.DSN) == "" {
			if c.Audit.Host == "" {
				errs = append(errs, "audit: host must not be empty (or set audit.dsn)")
			}
			if c.Audit.Database == "" {
				errs = append(errs, "audit: database must not be empty")
			}
		}
		if c.Audit.PoolMaxConns < 1 {
			errs = append(errs, "audit: pool_max_conns must be >= 1")
		}
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty")
		}
	}

	if c.RateLim.Enabled {
		if c.RateLim.Addr == "" {
			errs = append(errs, "rate_limit: addr must not be empty")
		}
		if c.RateLim.Limit <= 0 {
			errs = append(errs, "rate_limit: limit must be > 0")
		}
	}

	if strings.ToLower(c.Mode) == "driver" && c.Driver.TargetURL == "" {
		errs = append(errs, "driver: target_url must not be empty in driver mode")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
