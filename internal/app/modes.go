package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coinarena/arenad/internal/crypto"
	"github.com/coinarena/arenad/internal/domain"
	"github.com/coinarena/arenad/internal/notify"
	"github.com/coinarena/arenad/internal/server"
	"github.com/coinarena/arenad/internal/server/handler"
	"github.com/coinarena/arenad/internal/server/ws"
	"github.com/coinarena/arenad/internal/service"
)

// archiveLockKey guards the periodic archive job so only one instance runs it.
const archiveLockKey = "lock:archive"

// Serve starts the HTTP API, the WebSocket hub, the notification listener,
// and the periodic archive job, then blocks until the context is cancelled.
func (a *App) Serve(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	// Services over the wired stores.
	battleSvc := service.NewBattleService(deps.BattleStore, deps.StakeStore, deps.BattleCache, a.logger)
	statsSvc := service.NewStatsService(deps.StatsStore)
	collectibleSvc := service.NewCollectibleService(deps.CollectibleStore, deps.Resolver, a.logger)
	feeSvc := service.NewFeeService(deps.FeePoolStore, deps.Engine)

	// WebSocket hub bridges the signal bus to browser clients. Without a
	// bus (dev mode) the /ws route is simply not registered.
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: time.Now().UTC(),
		})
		g.Go(func() error {
			err := hub.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	// Notification listener forwards engine records to Telegram/Discord.
	if deps.SignalBus != nil && deps.Notifier != nil {
		listener := notify.NewListener(deps.SignalBus, deps.Notifier, a.logger)
		g.Go(func() error {
			err := listener.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	// Periodic archive of settled battles to blob storage.
	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			a.runArchiveLoop(ctx, deps)
			return nil
		})
	}

	if a.cfg.Server.Enabled {
		var operatorAuth *crypto.HMACAuth
		if a.cfg.Server.OperatorKey != "" && a.cfg.Server.OperatorSecret != "" {
			operatorAuth = &crypto.HMACAuth{
				Key:    a.cfg.Server.OperatorKey,
				Secret: a.cfg.Server.OperatorSecret,
			}
		}

		srv := server.NewServer(server.Config{
			Port:         a.cfg.Server.Port,
			CORSOrigins:  a.cfg.Server.CORSOrigins,
			APIKey:       a.cfg.Server.APIKey,
			Limiter:      deps.RateLimiter,
			RateLimit:    a.cfg.Server.RateLimit,
			RateEvery:    a.cfg.Server.RateEvery.Duration,
			OperatorAuth: operatorAuth,
		}, server.Handlers{
			Health:       handler.NewHealthHandler(a.logger),
			Battles:      handler.NewBattleHandler(battleSvc, deps.Engine, a.logger),
			Stats:        handler.NewStatsHandler(statsSvc, a.logger),
			Collectibles: handler.NewCollectibleHandler(collectibleSvc, a.logger),
			Fees:         handler.NewFeeHandler(feeSvc, a.logger),
		}, hub, a.logger)

		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	return g.Wait()
}

// runArchiveLoop periodically snapshots settled battles older than the
// configured minimum age to blob storage. When a lock manager is wired the
// run is guarded so only one instance archives at a time.
func (a *App) runArchiveLoop(ctx context.Context, deps *Dependencies) {
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.archiveOnce(ctx, deps)
		}
	}
}

func (a *App) archiveOnce(ctx context.Context, deps *Dependencies) {
	if deps.LockManager != nil {
		unlock, err := deps.LockManager.Acquire(ctx, archiveLockKey, 10*time.Minute)
		if err != nil {
			if !errors.Is(err, domain.ErrLockHeld) {
				a.logger.WarnContext(ctx, "archive: lock acquire failed",
					slog.String("error", err.Error()),
				)
			}
			return
		}
		defer unlock()
	}

	before := time.Now().UTC().Add(-a.cfg.Archive.MinAge.Duration)
	count, err := deps.Archiver.ArchiveSettled(ctx, before)
	if err != nil {
		a.logger.ErrorContext(ctx, "archive: run failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if count > 0 {
		a.logger.InfoContext(ctx, "archive: settled battles archived",
			slog.Int64("count", count),
			slog.String("before", fmt.Sprint(before)),
		)
	}
}
