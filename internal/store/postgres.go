package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/weather-station-ingest/internal/logger"
	"github.com/i474232898/weather-station-ingest/internal/weather"
)

// PostgresStore keeps daily rows in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string, log logger.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	log = log.WithField("component", "postgres_store")
	log.Info("Connected to PostgreSQL")
	return &PostgresStore{pool: pool, log: log}, nil
}

func (s *PostgresStore) EnsureTable(ctx context.Context, t weather.Table) error {
	if err := checkTable(t); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, postgresDialect.createTableSQL(t)); err != nil {
		return fmt.Errorf("create table %s: %w", t, err)
	}
	return nil
}

// UpsertDaily writes every row inside one transaction; each row runs in a nested
// transaction (savepoint) so a failing row does not abort the batch. Whether a
// row was inserted comes from RETURNING (xmax = 0).
func (s *PostgresStore) UpsertDaily(ctx context.Context, t weather.Table, rows []weather.DailyRow) (weather.UpsertResult, error) {
	var res weather.UpsertResult
	if err := checkTable(t); err != nil {
		return res, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := postgresDialect.upsertSQL(t)
	for _, row := range rows {
		inserted, err := s.upsertRow(ctx, tx, query, row)
		if err != nil {
			res.Failed++
			s.log.Warnf("Failed to upsert data for Station %s at %s: %v", row.ID, row.Date.Format(weather.DateLayout), err)
			continue
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return weather.UpsertResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func (s *PostgresStore) upsertRow(ctx context.Context, tx pgx.Tx, query string, row weather.DailyRow) (bool, error) {
	if err := validateRow(row); err != nil {
		return false, err
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return false, err
	}

	var inserted bool
	if err := sp.QueryRow(ctx, query, rowArgs(row, row.Date)...).Scan(&inserted); err != nil {
		_ = sp.Rollback(ctx)
		return false, err
	}
	if err := sp.Commit(ctx); err != nil {
		return false, err
	}
	return inserted, nil
}

func (s *PostgresStore) QueryDaily(ctx context.Context, t weather.Table, dates weather.DateRange) ([]weather.DailyRow, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}

	q, args := postgresDialect.selectSQL(t, dates, func(r weather.DateRange, start bool) any {
		if start {
			return weather.CalendarDate(r.Start)
		}
		return weather.CalendarDate(r.End)
	})

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily rows: %w", err)
	}
	defer rows.Close()

	var out []weather.DailyRow
	for rows.Next() {
		var (
			r    weather.DailyRow
			date time.Time
		)
		if err := rows.Scan(scanTargets(&r, &date)...); err != nil {
			return nil, fmt.Errorf("failed to scan daily row: %w", err)
		}
		r.Date = weather.CalendarDate(date)
		out = append(out, r)
	}
	return out, rows.Err()
}

// HealthCheck pings the pool.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
