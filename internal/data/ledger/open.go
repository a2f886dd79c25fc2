package ledger

import (
	"context"
	"strings"
	"time"

	"modulith/internal/core/errors"
)

const DriverMemory = "memory"

type Config struct {
	// Driver is sqlite, postgres or memory.
	Driver               string
	DSN                  string
	Path                 string
	BusyTimeout          time.Duration
	SchemaInitialization bool
}

// OpenStore opens the store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg Config) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == DriverMemory {
		return NewMemoryStore(), nil
	}
	dialect, err := ParseDatabaseType(driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfiguration, "select ledger driver")
	}

	var store *SQLStore
	switch dialect {
	case DatabasePostgreSQL:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, errors.New(errors.CodeConfiguration, "ledger.dsn is required for the postgres driver")
		}
		store, err = OpenPostgres(ctx, cfg.DSN, cfg.SchemaInitialization)
	default:
		path := cfg.Path
		if path == "" {
			path = strings.TrimPrefix(cfg.DSN, "file:")
		}
		store, err = OpenSQLite(ctx, path, cfg.BusyTimeout, cfg.SchemaInitialization)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorage, "open ledger store")
	}
	return store, nil
}
