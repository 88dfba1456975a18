package storage

import (
	"context"
	"fmt"

	"github.com/reconhq/recon-backend/internal/domain/ledger"
)

// OpenDriver opens the repository backend selected by driver: "sqlite"
// (default file store), "postgres", or "memory".
func OpenDriver(ctx context.Context, driver, dbPath, dsn string) (ledger.Repository, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dbPath)
	case "postgres":
		return NewPostgres(ctx, dsn)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
