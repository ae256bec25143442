package store

import (
	"context"
	"fmt"

	"github.com/i474232898/weather-station-ingest/internal/logger"
	"github.com/i474232898/weather-station-ingest/internal/weather"
)

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Open returns the store selected by driver. dsn is a file path for SQLite and a
// connection string for PostgreSQL; it is ignored for memory.
func Open(ctx context.Context, driver, dsn string, log logger.Logger) (weather.Store, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(dsn, log)
	case DriverPostgres:
		return NewPostgresStore(ctx, dsn, log)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
