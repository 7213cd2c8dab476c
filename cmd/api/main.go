package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/ticketwell/helpdesk-core/internal/adapters/primary/http"
	mw "github.com/ticketwell/helpdesk-core/internal/adapters/primary/http/middleware"
	"github.com/ticketwell/helpdesk-core/internal/adapters/primary/websocket"
	"github.com/ticketwell/helpdesk-core/internal/adapters/secondary/email"
	"github.com/ticketwell/helpdesk-core/internal/adapters/secondary/postgres"
	"github.com/ticketwell/helpdesk-core/internal/auth"
	"github.com/ticketwell/helpdesk-core/internal/config"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
	"github.com/ticketwell/helpdesk-core/internal/core/services"
	"github.com/ticketwell/helpdesk-core/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	// Apply database configuration
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Run Migrations
	if err := runMigrations(cfg); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// 5. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(logger)
	go hub.Run()

	// 6. Initialize Rate Limiters
	var generalRateLimiter, writeRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		writeRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.WriteRPS,
			BurstSize:         cfg.RateLimit.WriteBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
	}

	// 7. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	workflowRepo := postgres.NewWorkflowRepository(pool)
	slaRepo := postgres.NewSlaPolicyRepository(pool)
	ticketRepo := postgres.NewTicketRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	// Notifier (Secondary Adapter)
	notifier := email.NewMockSMTPNotifier(logger)

	// Hook Registry
	hooks := services.NewHookRegistry()
	registerHooks(hooks, notifier)

	// Services (Core)
	workflowService := services.NewWorkflowService(workflowRepo, hooks, auditRepo, logger)
	slaService := services.NewSlaService(slaRepo, auditRepo, logger)
	lifecycleService := services.NewLifecycleService(ticketRepo, workflowService, slaService, txManager, hub, logger)

	// Handlers (Primary Adapters)
	ticketHandler := httpAdapter.NewTicketHandler(lifecycleService, auditRepo, errorHandler, logger)
	workflowHandler := httpAdapter.NewWorkflowHandler(workflowService, errorHandler, logger)
	slaHandler := httpAdapter.NewSlaHandler(slaService, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version)

	// 8. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.WebSocket.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Apply general rate limiting if enabled
	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))

			r.Route("/tickets", func(r chi.Router) {
				if writeRateLimiter != nil {
					r.With(writeRateLimiter.Middleware).Post("/", ticketHandler.HandleCreateTicket)
					r.With(writeRateLimiter.Middleware).Post("/{ticketID}/transition", ticketHandler.HandleTransitionTicket)
				} else {
					r.Post("/", ticketHandler.HandleCreateTicket)
					r.Post("/{ticketID}/transition", ticketHandler.HandleTransitionTicket)
				}
				r.Get("/", ticketHandler.HandleListTickets)
				r.Get("/{ticketID}", ticketHandler.HandleGetTicket)
				r.Get("/{ticketID}/audit", ticketHandler.HandleListTicketAudit)
			})

			r.Mount("/workflows", workflowHandler.Router())
			r.Mount("/sla-policies", slaHandler.Router())
		})
	})

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	// Let in-flight event broadcasts drain before exiting.
	lifecycleService.Shutdown()

	logger.Info("server shutdown complete")
}

// runMigrations applies any pending schema migrations.
func runMigrations(cfg *config.Config) error {
	migrationsPath, err := filepath.Abs(cfg.Database.MigrationsPath)
	if err != nil {
		return err
	}

	mig, err := migrate.New("file://"+migrationsPath, cfg.Database.URL)
	if err != nil {
		return err
	}
	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// registerHooks installs the hook handlers referenced by workflow
// configuration. Workflows naming a hook that is not registered here fail
// their transitions until the deployment catches up.
func registerHooks(hooks ports.HookRegistry, notifier ports.Notifier) {
	// Entry hook: tell the requester their ticket reached a new state.
	hooks.Register("notify_requester", ports.HookFunc(func(ctx context.Context, input ports.HookInput) error {
		notifier.Notify(ctx, ports.NotificationParams{
			TicketID:    input.Ticket.ID,
			RecipientID: input.Ticket.RequesterID,
			Subject:     fmt.Sprintf("Your ticket #%d is now %s", input.Ticket.ID, input.State.Name),
		})
		return nil
	}))

	// Guard hook: resolving a ticket requires a resolution summary.
	hooks.Register("check_resolution", ports.HookFunc(func(ctx context.Context, input ports.HookInput) error {
		if input.Context.Fields["resolution"] == "" && input.Context.Comment == "" {
			return errors.New("a resolution summary is required")
		}
		return nil
	}))
}
