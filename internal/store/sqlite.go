package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/weather-station-ingest/internal/logger"
	"github.com/i474232898/weather-station-ingest/internal/weather"
)

// SQLiteStore keeps daily rows in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// OpenSQLite opens (creating if needed) the SQLite database at path. ":memory:"
// opens a private in-memory database.
func OpenSQLite(path string, log logger.Logger) (*SQLiteStore, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	// One connection: the writer is single-threaded and :memory: databases are per-connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return NewSQLiteStore(db, log), nil
}

// NewSQLiteStore wraps an already opened database.
func NewSQLiteStore(db *sql.DB, log logger.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		log: log.WithField("component", "sqlite_store"),
	}
}

func sqliteDSN(path string) (string, error) {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path), nil
}

func (s *SQLiteStore) EnsureTable(ctx context.Context, t weather.Table) error {
	if err := checkTable(t); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqliteDialect.createTableSQL(t)); err != nil {
		return fmt.Errorf("create table %s: %w", t, err)
	}
	return nil
}

// UpsertDaily writes every row inside one transaction, each row under its own
// savepoint so a failing row is rolled back alone. Existence is checked before
// the write to tell inserts from updates.
func (s *SQLiteStore) UpsertDaily(ctx context.Context, t weather.Table, rows []weather.DailyRow) (weather.UpsertResult, error) {
	var res weather.UpsertResult
	if err := checkTable(t); err != nil {
		return res, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existsQ := sqliteDialect.existsSQL(t)
	upsertQ := sqliteDialect.upsertSQL(t)

	for _, row := range rows {
		existed, err := s.upsertRow(ctx, tx, existsQ, upsertQ, row)
		if err != nil {
			res.Failed++
			s.log.Warnf("Failed to upsert data for Station %s at %s: %v", row.ID, row.Date.Format(weather.DateLayout), err)
			continue
		}
		if existed {
			res.Updated++
		} else {
			res.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return weather.UpsertResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func (s *SQLiteStore) upsertRow(ctx context.Context, tx *sql.Tx, existsQ, upsertQ string, row weather.DailyRow) (bool, error) {
	if err := validateRow(row); err != nil {
		return false, err
	}
	date := row.Date.Format(weather.DateLayout)

	if _, err := tx.ExecContext(ctx, "SAVEPOINT daily_row"); err != nil {
		return false, err
	}

	var existed bool
	err := tx.QueryRowContext(ctx, existsQ, row.ID, date).Scan(&existed)
	if err == nil {
		_, err = tx.ExecContext(ctx, upsertQ, rowArgs(row, date)...)
	}
	if err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT daily_row"); rbErr != nil {
			return false, fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		_, _ = tx.ExecContext(ctx, "RELEASE SAVEPOINT daily_row")
		return false, err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT daily_row"); err != nil {
		return false, err
	}
	return existed, nil
}

func (s *SQLiteStore) QueryDaily(ctx context.Context, t weather.Table, dates weather.DateRange) ([]weather.DailyRow, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}

	q, args := sqliteDialect.selectSQL(t, dates, func(r weather.DateRange, start bool) any {
		if start {
			return r.Start.Format(weather.DateLayout)
		}
		return r.End.Format(weather.DateLayout)
	})

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.log.Errorf("close daily rows: %v", err)
		}
	}()

	var out []weather.DailyRow
	for rows.Next() {
		var (
			r    weather.DailyRow
			date string
		)
		if err := rows.Scan(scanTargets(&r, &date)...); err != nil {
			return nil, err
		}
		d, err := time.Parse(weather.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		r.Date = d
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
