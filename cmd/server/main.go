// Concierge - conversational retail agent server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/atelier-works/concierge/internal/agent"
	"github.com/atelier-works/concierge/internal/api"
	"github.com/atelier-works/concierge/internal/backend"
	"github.com/atelier-works/concierge/internal/config"
	"github.com/atelier-works/concierge/internal/gateway"
	"github.com/atelier-works/concierge/internal/middleware"
	"github.com/atelier-works/concierge/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "model", cfg.AgentModel, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize backends and the tool registry.
	users, err := backend.NewUsers()
	if err != nil {
		slog.Error("Failed to load user profiles", "error", err)
		os.Exit(1)
	}

	registry, err := agent.NewRegistry(
		backend.NewOrders(),
		backend.NewAppointments(),
		backend.NewKnowledge(),
		users,
	)
	if err != nil {
		slog.Error("Failed to build tool registry", "error", err)
		os.Exit(1)
	}
	slog.Info("Tool registry ready", "tools", len(registry.Schemas()))

	// Initialize the agent service.
	llm := gateway.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.AgentModel)
	service := agent.NewService(repo, llm, registry, agent.Config{
		MaxIterations:  cfg.AgentMaxIterations,
		RetryAttempts:  cfg.AgentRetryAttempts,
		RetryBaseDelay: cfg.AgentRetryBaseDelay,
	})

	// Initialize handlers.
	limiter := api.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer limiter.Stop()

	chatHandler := api.NewChatHandler(service, limiter)
	metricsHandler := api.NewMetricsHandler(repo)
	healthHandler := api.NewHealthHandler(repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	healthHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)
	metricsHandler.RegisterRoutes(r)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // orchestration can take several model round-trips
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
