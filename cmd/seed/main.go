// Command seed loads the sample reconciliation dataset into the configured
// database.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/reconhq/recon-backend/internal/infrastructure/config"
	"github.com/reconhq/recon-backend/internal/infrastructure/logging"
	"github.com/reconhq/recon-backend/internal/infrastructure/storage"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "config.yaml", "Configuration file path")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(configFile)
	logger := logging.NewLoggerWithComponent(cfg.Observability.Logging, "seed")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	repo, err := storage.OpenDriver(context.Background(), cfg.Storage.Driver, cfg.Storage.DatabasePath, cfg.Storage.PostgresDSN)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer func() { _ = repo.Close() }()

	if err := storage.Seed(repo); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}

	logger.Info("sample dataset loaded", "driver", cfg.Storage.Driver)
}
