package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/tkempf/shoppulse/internal/config"
	"github.com/tkempf/shoppulse/internal/database"
	"github.com/tkempf/shoppulse/internal/hub"
	"github.com/tkempf/shoppulse/internal/logging"
	"github.com/tkempf/shoppulse/internal/server"
	"github.com/tkempf/shoppulse/internal/shop"
	"github.com/tkempf/shoppulse/internal/simulator"
)

// virtualUsers are seeded at startup so the simulator always has buyers.
var virtualUsers = []string{
	"María García", "Juan Pérez", "Ana Martínez", "Carlos López",
	"Laura Rodríguez", "Pedro Sánchez", "Sofia Torres", "Miguel Flores",
	"Elena Ramírez", "Diego Castro", "Carmen Ruiz", "Roberto Morales",
	"Patricia Ortiz", "Fernando Díaz", "Isabel Vargas",
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func runGracefulShutdown(srv *server.Server, sim *simulator.Simulator, h *hub.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		sim.Stop()
		h.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	shopRepo := database.NewShopRepo(pool)
	alertRepo := database.NewAlertRepo(pool)
	statsRepo := database.NewStatsRepo(pool, clock)

	h := hub.New(clock)

	service := shop.NewService(shopRepo, alertRepo, statsRepo, h, clock, cfg)

	seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := service.SeedUsers(seedCtx, virtualUsers); err != nil {
		cancel()
		slog.Error("Failed to seed virtual users", "error", err)
		os.Exit(1)
	}
	cancel()

	sim := simulator.New(service, h, clock, simulator.Config{
		MinDelay:    cfg.SimulatorMinDelay,
		MaxDelay:    cfg.SimulatorMaxDelay,
		MaxQuantity: cfg.SimulatorMaxQuantity,
	})

	srv := server.NewServer(cfg, service, h, sim, pool, clock)

	done := runGracefulShutdown(srv, sim, h)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
