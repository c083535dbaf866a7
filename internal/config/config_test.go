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

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "serve"
log_level = "debug"

[engine]
creation_fee = 500
fee_asset = "fee.usd"
min_duration = "10m"

[postgres]
host = "db.internal"
database = "arena"

[server]
port = 9000
api_key = "sekrit"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(500), cfg.Engine.CreationFee)
	assert.Equal(t, "fee.usd", cfg.Engine.FeeAsset)
	assert.Equal(t, 10*time.Minute, cfg.Engine.MinDuration.Duration)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 9000, cfg.Server.Port)

	// Untouched fields keep their defaults.
	assert.Equal(t, int64(100_000), cfg.Engine.DepositFee)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
mode = "dev"

[engine]
operator = "from-toml"
`)

	t.Setenv("ARENA_ENGINE_OPERATOR", "from-env")
	t.Setenv("ARENA_ENGINE_CLAIM_FEE", "42")
	t.Setenv("ARENA_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ARENA_ARCHIVE_INTERVAL", "6h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Engine.Operator)
	assert.Equal(t, int64(42), cfg.Engine.ClaimFee)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 6*time.Hour, cfg.Archive.Interval.Duration)
}

func TestValidateDefaultsPass(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Engine.FeeAsset = ""
	cfg.Engine.CreationFee = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "bogus"`)
	assert.Contains(t, err.Error(), `unknown log_level "loud"`)
	assert.Contains(t, err.Error(), "fee_asset must not be empty")
	assert.Contains(t, err.Error(), "fees must not be negative")
}

func TestValidateServeModeRequiresBackends(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Mode = "serve"
	cfg.Postgres.Host = ""
	cfg.Redis.Addr = ""
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: host must not be empty")
	assert.Contains(t, err.Error(), "redis: addr must not be empty")
	assert.Contains(t, err.Error(), "s3: bucket must not be empty")

	// Dev mode does not touch the backends at all.
	cfg.Mode = "dev"
	assert.NoError(t, cfg.Validate())
}

func TestValidateFullModeRequiresVault(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Mode = "full"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault: rpc_url is required")
	assert.Contains(t, err.Error(), "vault: custody address must not be empty")
	assert.Contains(t, err.Error(), "private_key or encrypted_key_path")

	cfg.Vault.RPCURL = "https://polygon-rpc.example"
	cfg.Vault.Custody = "0x0000000000000000000000000000000000000001"
	cfg.Vault.EncryptedKeyPath = "/etc/arena/key.json"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password is required")

	cfg.Vault.KeyPassword = "pw"
	assert.NoError(t, cfg.Validate())
}

func TestValidateOperatorCredentialsPair(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Server.OperatorKey = "key-only"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operator_key and operator_secret must be set together")

	cfg.Server.OperatorSecret = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Postgres.Password = "pg-pass"
	cfg.Redis.Password = "redis-pass"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Vault.PrivateKey = "0xdeadbeef"
	cfg.Server.APIKey = "api-key"
	cfg.Server.OperatorSecret = "op-secret"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Vault.PrivateKey)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Server.OperatorSecret)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// The original is untouched.
	assert.Equal(t, "pg-pass", cfg.Postgres.Password)

	// Empty secrets stay empty rather than gaining a placeholder.
	assert.Empty(t, red.Vault.KeyPassword)
}
