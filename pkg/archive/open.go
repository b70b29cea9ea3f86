package archive

import (
	"fmt"
	"log/slog"

	"mercator-hq/compliance/pkg/config"
)

// Open creates the storage backend selected by cfg.Driver.
func Open(cfg config.ArchiveConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStorage(), nil
	case "sqlite", "sqlite3", "":
		return NewSQLiteStorage(SQLiteConfig{
			Driver:       cfg.Driver,
			Path:         cfg.Path,
			MaxOpenConns: cfg.MaxOpenConns,
			BusyTimeout:  cfg.BusyTimeout,
		}, logger)
	default:
		return nil, NewStorageError(cfg.Driver, "open", fmt.Errorf("unknown archive driver %q", cfg.Driver))
	}
}
