package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coinarena/arenad/internal/crypto"
	"github.com/coinarena/arenad/internal/domain"
	"github.com/coinarena/arenad/internal/server/handler"
	"github.com/coinarena/arenad/internal/server/middleware"
	"github.com/coinarena/arenad/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// Optional per-client rate limiting. Applied only when Limiter is set.
	Limiter   domain.RateLimiter
	RateLimit int
	RateEvery time.Duration

	// OperatorAuth guards the fee withdrawal route with signed headers.
	// If nil, the route is only protected by the API key.
	OperatorAuth *crypto.HMACAuth
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health       *handler.HealthHandler
	Battles      *handler.BattleHandler
	Stats        *handler.StatsHandler
	Collectibles *handler.CollectibleHandler
	Fees         *handler.FeeHandler
}

// Server is the HTTP + WebSocket API server for the battle arena.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Battle lifecycle.
	mux.HandleFunc("GET /api/battles", handlers.Battles.ListBattles)
	mux.HandleFunc("POST /api/battles", handlers.Battles.CreateBattle)
	mux.HandleFunc("GET /api/battles/{id}", handlers.Battles.GetBattle)
	mux.HandleFunc("GET /api/battles/{id}/stakes", handlers.Battles.ListStakes)
	mux.HandleFunc("GET /api/battles/{id}/stakes/{participant}", handlers.Battles.ParticipantStakes)
	mux.HandleFunc("POST /api/battles/{id}/deposits", handlers.Battles.Deposit)
	mux.HandleFunc("POST /api/battles/{id}/claims", handlers.Battles.Claim)

	// Participant read models.
	mux.HandleFunc("GET /api/participants/{participant}/stats", handlers.Stats.GetStats)
	mux.HandleFunc("GET /api/participants/{participant}/collectibles", handlers.Collectibles.ListByOwner)

	// Collectibles.
	mux.HandleFunc("GET /api/collectibles/{id}", handlers.Collectibles.GetCollectible)

	// Fee pool. Withdrawal additionally requires the signed operator
	// headers when OperatorAuth is configured.
	mux.HandleFunc("GET /api/fees/balance", handlers.Fees.Balance)
	mux.Handle("POST /api/fees/withdraw",
		middleware.OperatorAuth(cfg.OperatorAuth)(http.HandlerFunc(handlers.Fees.Withdraw)))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting when a limiter is configured.
	if cfg.Limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateEvery
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(cfg.Limiter, cfg.RateLimit, window)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
