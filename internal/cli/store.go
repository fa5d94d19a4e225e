package cli

import (
	"context"
	"fmt"

	"github.com/iliyamo/screen-seat-reservation/internal/config"
	"github.com/iliyamo/screen-seat-reservation/internal/database"
	"github.com/iliyamo/screen-seat-reservation/internal/repository"
)

// openStore connects to the backend named by cfg.StoreDriver.
func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		return repository.NewMySQLStore(db), nil
	case config.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresStore(pool), nil
	case config.DriverMemory, "":
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
