// Package config defines the top-level configuration for the arena daemon
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARENA_* environment variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Vault    VaultConfig    `toml:"vault"`
	Metadata MetadataConfig `toml:"metadata"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the settlement engine's economic parameters.
type EngineConfig struct {
	MinDuration duration `toml:"min_duration"`
	MaxDuration duration `toml:"max_duration"`
	CreationFee int64    `toml:"creation_fee"`
	DepositFee  int64    `toml:"deposit_fee"`
	ClaimFee    int64    `toml:"claim_fee"`
	FeeAsset    string   `toml:"fee_asset"`
	Operator    string   `toml:"operator"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// VaultConfig holds the on-chain custody vault parameters. The signer key is
// either given directly or loaded from an encrypted keyfile.
type VaultConfig struct {
	RPCURL           string            `toml:"rpc_url"`
	ChainID          int               `toml:"chain_id"`
	Custody          string            `toml:"custody"`
	PrivateKey       string            `toml:"private_key"`
	EncryptedKeyPath string            `toml:"encrypted_key_path"`
	KeyPassword      string            `toml:"key_password"`
	Tokens           map[string]string `toml:"tokens"`
	Accounts         map[string]string `toml:"accounts"`
	ReceiptTimeout   duration          `toml:"receipt_timeout"`
}

// MetadataConfig holds collectible artwork resolution parameters.
type MetadataConfig struct {
	BaseURL  string `toml:"base_url"`
	Template string `toml:"template"`
	// VerifyExists checks the artwork object in blob storage before a URI
	// is returned.
	VerifyExists bool `toml:"verify_exists"`
}

// ArchiveConfig holds settled-battle archival parameters.
type ArchiveConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
	// MinAge keeps a battle out of the archive until it has been closed
	// this long.
	MinAge duration `toml:"min_age"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit caps requests per client per RateEvery window. Zero
	// disables rate limiting.
	RateLimit int      `toml:"rate_limit"`
	RateEvery duration `toml:"rate_every"`
	// OperatorKey and OperatorSecret enable signed-header verification on
	// the fee withdrawal route. Both must be set together.
	OperatorKey    string `toml:"operator_key"`
	OperatorSecret string `toml:"operator_secret"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
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
		Engine: EngineConfig{
			MinDuration: duration{300 * time.Second},
			MaxDuration: duration{15552000 * time.Second},
			CreationFee: 1_000_000,
			DepositFee:  100_000,
			ClaimFee:    0,
			FeeAsset:    "arena.fee",
			Operator:    "operator",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arena",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arena-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Vault: VaultConfig{
			ChainID:        137,
			Tokens:         map[string]string{},
			Accounts:       map[string]string{},
			ReceiptTimeout: duration{2 * time.Minute},
		},
		Metadata: MetadataConfig{
			Template: "collectibles/{tier}/{id}.json",
		},
		Archive: ArchiveConfig{
			Enabled:  false,
			Interval: duration{24 * time.Hour},
			MinAge:   duration{30 * 24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   0,
			RateEvery:   duration{time.Second},
		},
		Notify:   NotifyConfig{},
		Mode:     "dev",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
//
//	dev   - in-memory store and vault, no external services
//	serve - Postgres, Redis, and S3, simulated custody vault
//	full  - serve plus the on-chain custody vault
var validModes = map[string]bool{
	"dev":   true,
	"serve": true,
	"full":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: dev, serve, full)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Engine
	if c.Engine.MinDuration.Duration <= 0 {
		errs = append(errs, "engine: min_duration must be > 0")
	}
	if c.Engine.MaxDuration.Duration < c.Engine.MinDuration.Duration {
		errs = append(errs, "engine: max_duration must be >= min_duration")
	}
	if c.Engine.CreationFee < 0 || c.Engine.DepositFee < 0 || c.Engine.ClaimFee < 0 {
		errs = append(errs, "engine: fees must not be negative")
	}
	if c.Engine.FeeAsset == "" {
		errs = append(errs, "engine: fee_asset must not be empty")
	}
	if c.Engine.Operator == "" {
		errs = append(errs, "engine: operator must not be empty")
	}

	// Postgres, Redis, and S3 are only reached outside dev mode.
	if mode == "serve" || mode == "full" {
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

		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}

		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Vault signing credentials are only required in full mode.
	if mode == "full" {
		if c.Vault.RPCURL == "" {
			errs = append(errs, "vault: rpc_url is required for mode full")
		}
		if c.Vault.ChainID <= 0 {
			errs = append(errs, "vault: chain_id must be positive")
		}
		if c.Vault.Custody == "" {
			errs = append(errs, "vault: custody address must not be empty")
		}
		if c.Vault.PrivateKey == "" && c.Vault.EncryptedKeyPath == "" {
			errs = append(errs, "vault: either private_key or encrypted_key_path must be set for mode full")
		}
		if c.Vault.EncryptedKeyPath != "" && c.Vault.KeyPassword == "" {
			errs = append(errs, "vault: key_password is required when encrypted_key_path is set")
		}
	}

	// Archive
	if c.Archive.Enabled && c.Archive.Interval.Duration <= 0 {
		errs = append(errs, "archive: interval must be > 0 when enabled")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && c.Server.RateEvery.Duration <= 0 {
			errs = append(errs, "server: rate_every must be > 0 when rate_limit is set")
		}
		hasKey := c.Server.OperatorKey != ""
		hasSecret := c.Server.OperatorSecret != ""
		if hasKey != hasSecret {
			errs = append(errs, "server: operator_key and operator_secret must be set together")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
