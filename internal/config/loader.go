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
// built-in defaults, applies ARENA_* environment variable overrides, and
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

// applyEnvOverrides reads well-known ARENA_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setDuration(&cfg.Engine.MinDuration, "ARENA_ENGINE_MIN_DURATION")
	setDuration(&cfg.Engine.MaxDuration, "ARENA_ENGINE_MAX_DURATION")
	setInt64(&cfg.Engine.CreationFee, "ARENA_ENGINE_CREATION_FEE")
	setInt64(&cfg.Engine.DepositFee, "ARENA_ENGINE_DEPOSIT_FEE")
	setInt64(&cfg.Engine.ClaimFee, "ARENA_ENGINE_CLAIM_FEE")
	setStr(&cfg.Engine.FeeAsset, "ARENA_ENGINE_FEE_ASSET")
	setStr(&cfg.Engine.Operator, "ARENA_ENGINE_OPERATOR")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARENA_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARENA_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARENA_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARENA_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARENA_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARENA_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARENA_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARENA_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARENA_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARENA_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARENA_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARENA_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARENA_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARENA_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARENA_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARENA_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ARENA_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARENA_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARENA_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARENA_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARENA_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARENA_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARENA_S3_FORCE_PATH_STYLE")

	// ── Vault ──
	setStr(&cfg.Vault.RPCURL, "ARENA_VAULT_RPC_URL")
	setInt(&cfg.Vault.ChainID, "ARENA_VAULT_CHAIN_ID")
	setStr(&cfg.Vault.Custody, "ARENA_VAULT_CUSTODY")
	setStr(&cfg.Vault.PrivateKey, "ARENA_VAULT_PRIVATE_KEY")
	setStr(&cfg.Vault.EncryptedKeyPath, "ARENA_VAULT_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Vault.KeyPassword, "ARENA_VAULT_KEY_PASSWORD")
	setDuration(&cfg.Vault.ReceiptTimeout, "ARENA_VAULT_RECEIPT_TIMEOUT")

	// ── Metadata ──
	setStr(&cfg.Metadata.BaseURL, "ARENA_METADATA_BASE_URL")
	setStr(&cfg.Metadata.Template, "ARENA_METADATA_TEMPLATE")
	setBool(&cfg.Metadata.VerifyExists, "ARENA_METADATA_VERIFY_EXISTS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "ARENA_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "ARENA_ARCHIVE_INTERVAL")
	setDuration(&cfg.Archive.MinAge, "ARENA_ARCHIVE_MIN_AGE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARENA_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARENA_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARENA_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARENA_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ARENA_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateEvery, "ARENA_SERVER_RATE_EVERY")
	setStr(&cfg.Server.OperatorKey, "ARENA_SERVER_OPERATOR_KEY")
	setStr(&cfg.Server.OperatorSecret, "ARENA_SERVER_OPERATOR_SECRET")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARENA_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARENA_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARENA_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARENA_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARENA_MODE")
	setStr(&cfg.LogLevel, "ARENA_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
