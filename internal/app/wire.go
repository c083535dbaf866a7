package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/coinarena/arenad/internal/blob/s3"
	"github.com/coinarena/arenad/internal/cache/redis"
	"github.com/coinarena/arenad/internal/config"
	"github.com/coinarena/arenad/internal/crypto"
	"github.com/coinarena/arenad/internal/domain"
	"github.com/coinarena/arenad/internal/engine"
	"github.com/coinarena/arenad/internal/metadata"
	"github.com/coinarena/arenad/internal/notify"
	"github.com/coinarena/arenad/internal/store/memory"
	"github.com/coinarena/arenad/internal/store/postgres"
	evmvault "github.com/coinarena/arenad/internal/vault/evm"
	memvault "github.com/coinarena/arenad/internal/vault/memory"
)

// Dependencies bundles every domain-level dependency that the application
// needs to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	BattleStore      domain.BattleStore
	StakeStore       domain.StakeStore
	StatsStore       domain.StatsStore
	CollectibleStore domain.CollectibleStore
	FeePoolStore     domain.FeePoolStore
	AuditStore       domain.AuditStore

	// Caches and coordination (nil in dev mode)
	BattleCache domain.BattleCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage (nil in dev mode)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Custody vault backing all stake and payout movements.
	Vault domain.AssetVault

	// Collectible artwork resolution (optional).
	Resolver domain.MetadataResolver

	// Settlement engine. Every mutation goes through it.
	Engine *engine.Engine

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	mode := strings.ToLower(cfg.Mode)

	switch mode {
	case "dev":
		store := memory.New()
		deps.BattleStore = store.Battles()
		deps.StakeStore = store.Stakes()
		deps.StatsStore = store.Stats()
		deps.CollectibleStore = store.Collectibles()
		deps.FeePoolStore = store.FeePool()
		deps.AuditStore = store.Audit()
		deps.Vault = memvault.New()

	case "serve", "full":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.BattleStore = postgres.NewBattleStore(pool)
		deps.StakeStore = postgres.NewStakeStore(pool)
		deps.StatsStore = postgres.NewStatsStore(pool)
		deps.CollectibleStore = postgres.NewCollectibleStore(pool)
		deps.FeePoolStore = postgres.NewFeePoolStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)

		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.BattleCache = redis.NewBattleCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)

		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			deps.BattleStore,
			deps.StakeStore,
			deps.AuditStore,
		)

		if mode == "full" {
			vault, err := wireEVMVault(ctx, cfg)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: vault: %w", err)
			}
			deps.Vault = vault
		} else {
			deps.Vault = memvault.New()
		}

	default:
		cleanup()
		return nil, nil, fmt.Errorf("wire: unsupported mode %q", cfg.Mode)
	}

	// --- Collectible artwork resolution ---
	if cfg.Metadata.BaseURL != "" || cfg.Metadata.Template != "" {
		var reader domain.BlobReader
		if cfg.Metadata.VerifyExists {
			reader = deps.BlobReader
		}
		deps.Resolver = metadata.NewResolver(cfg.Metadata.BaseURL, cfg.Metadata.Template, reader)
	}

	// --- Settlement engine ---
	deps.Engine = engine.NewEngine(
		deps.BattleStore,
		deps.StakeStore,
		deps.FeePoolStore,
		engine.NewIssuer(deps.CollectibleStore),
		deps.AuditStore,
		deps.Vault,
		deps.SignalBus,
		engine.Policy{
			MinDuration: cfg.Engine.MinDuration.Duration,
			MaxDuration: cfg.Engine.MaxDuration.Duration,
			CreationFee: cfg.Engine.CreationFee,
			DepositFee:  cfg.Engine.DepositFee,
			ClaimFee:    cfg.Engine.ClaimFee,
			FeeAsset:    cfg.Engine.FeeAsset,
			Operator:    cfg.Engine.Operator,
		},
		logger,
	)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// wireEVMVault loads the signing key and dials the on-chain custody vault.
func wireEVMVault(ctx context.Context, cfg *config.Config) (domain.AssetVault, error) {
	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Vault.PrivateKey,
		EncryptedKeyPath: cfg.Vault.EncryptedKeyPath,
		KeyPassword:      cfg.Vault.KeyPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}

	signer, err := crypto.NewSigner(key, cfg.Vault.ChainID)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	receiptTimeout := cfg.Vault.ReceiptTimeout.Duration
	if receiptTimeout < 0 {
		receiptTimeout = 0
	}
	vault, err := evmvault.New(ctx, evmvault.Config{
		RPCURL:         cfg.Vault.RPCURL,
		Custody:        cfg.Vault.Custody,
		Tokens:         cfg.Vault.Tokens,
		Accounts:       cfg.Vault.Accounts,
		ReceiptTimeout: receiptTimeout,
	}, signer)
	if err != nil {
		return nil, err
	}
	return vault, nil
}
