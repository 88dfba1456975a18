package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reconhq/recon-backend/internal/api"
	"github.com/reconhq/recon-backend/internal/domain/ledger"
	"github.com/reconhq/recon-backend/internal/infrastructure/config"
	"github.com/reconhq/recon-backend/internal/infrastructure/logging"
	"github.com/reconhq/recon-backend/internal/infrastructure/storage"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "config.yaml", "Configuration file path")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(configFile)
	logger := logging.NewLoggerWithComponent(cfg.Observability.Logging, "api")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	repo, err := storage.OpenDriver(ctx, cfg.Storage.Driver, cfg.Storage.DatabasePath, cfg.Storage.PostgresDSN)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer func() { _ = repo.Close() }()

	if cfg.Demo.Seed {
		if err := seedIfEmpty(repo, logger); err != nil {
			logger.Error("failed to seed demo data", "error", err)
			os.Exit(1)
		}
	}

	svc := ledger.NewService(repo, logger)

	server := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, svc, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}

// seedIfEmpty loads the sample dataset unless transactions already exist.
func seedIfEmpty(repo ledger.Repository, logger *slog.Logger) error {
	existing, err := repo.ListTransactions(ledger.SideBank)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info("store already populated, skipping demo seed", "bank_transactions", len(existing))
		return nil
	}

	if err := storage.Seed(repo); err != nil {
		return err
	}

	logger.Info("demo dataset loaded")
	return nil
}
