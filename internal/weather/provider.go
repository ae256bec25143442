package weather

import (
	"context"
	"time"
)

// Source abstracts the station directory and its hourly observation archive.
type Source interface {
	Name() string
	// Stations lists the directory entries matching filter, in directory order.
	Stations(ctx context.Context, filter StationFilter) ([]StationMetadata, error)
	// Hourly returns the observations of one station within [start, end).
	Hourly(ctx context.Context, stationID string, start, end time.Time) ([]HourlyObservation, error)
}

// UpsertResult counts the outcome of an upsert batch.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// Store is the contract every daily-row store (SQLite, PostgreSQL, memory) satisfies.
type Store interface {
	// EnsureTable creates the table if it does not exist.
	EnsureTable(ctx context.Context, table Table) error
	// UpsertDaily inserts or updates each row by (station, date). Rows that fail are
	// skipped and counted; only connection-level failures return an error.
	UpsertDaily(ctx context.Context, table Table, rows []DailyRow) (UpsertResult, error)
	// QueryDaily returns the rows whose date falls in the inclusive range.
	QueryDaily(ctx context.Context, table Table, dates DateRange) ([]DailyRow, error)
	Close() error
}

// FailureReporter persists the failed stations of a batch and returns where.
type FailureReporter interface {
	WriteFailures(startedAt time.Time, failures []FailureRecord) (string, error)
}
