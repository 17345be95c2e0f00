package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/Dosada05/pong-arena/config"
	"github.com/Dosada05/pong-arena/db"
	"github.com/Dosada05/pong-arena/game"
	"github.com/Dosada05/pong-arena/handlers"
	"github.com/Dosada05/pong-arena/migrations"
	"github.com/Dosada05/pong-arena/notify"
	"github.com/Dosada05/pong-arena/repositories"
	api "github.com/Dosada05/pong-arena/routes"
	"github.com/Dosada05/pong-arena/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	migrator, err := migrations.New(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to initialize migrator", slog.Any("error", err))
		os.Exit(1)
	}
	if err := migrator.Up(); err != nil {
		logger.Error("failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrator.Close()

	// Event publishing is optional; without a broker the services run with a
	// no-op publisher.
	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.NATSURL != "" {
		publisher, err = notify.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("NATS publisher connected", slog.String("url", cfg.NATSURL))
	}
	defer publisher.Close()

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	logger.Info("repositories initialized")

	matchService := services.NewMatchService(
		dbConn,
		tournamentRepo,
		participantRepo,
		matchRepo,
		standingRepo,
		publisher,
		logger,
	)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		participantRepo,
		matchRepo,
		standingRepo,
		publisher,
		logger,
	)
	identityResolver := services.NewIdentityResolver(cfg.JWTSecretKey)
	logger.Info("services initialized")

	// The match service doubles as the room directory and the result sink,
	// so finished rooms feed straight back into the bracket.
	registry := game.NewRegistry(matchService, matchService, logger)
	logger.Info("room registry initialized")

	tournamentHandler := handlers.NewTournamentHandler(tournamentService, matchService)
	webSocketHandler := handlers.NewWebSocketHandler(registry, identityResolver, logger)
	router := api.InitRoutes(tournamentHandler, webSocketHandler, identityResolver)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}

	registry.Shutdown()
	logger.Info("application exited")
}
