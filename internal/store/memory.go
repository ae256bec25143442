package store

import (
	"context"
	"sort"
	"sync"

	"github.com/i474232898/weather-station-ingest/internal/weather"
)

// tableRows holds the rows of one table keyed by (station, date).
type tableRows struct {
	rows map[weather.RowKey]weather.DailyRow
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: table, value: rows
	data map[weather.Table]*tableRows
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[weather.Table]*tableRows),
	}
}

func (s *MemoryStore) EnsureTable(_ context.Context, t weather.Table) error {
	if err := checkTable(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[t]; !ok {
		s.data[t] = &tableRows{rows: make(map[weather.RowKey]weather.DailyRow)}
	}
	return nil
}

// UpsertDaily stores each row. An existing row keeps its station metadata and
// only has its measurements replaced.
func (s *MemoryStore) UpsertDaily(ctx context.Context, t weather.Table, rows []weather.DailyRow) (weather.UpsertResult, error) {
	var res weather.UpsertResult
	if err := s.EnsureTable(ctx, t); err != nil {
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table := s.data[t]
	for _, row := range rows {
		if err := validateRow(row); err != nil {
			res.Failed++
			continue
		}
		row.Date = weather.CalendarDate(row.Date)
		key := row.Key()

		existing, ok := table.rows[key]
		if !ok {
			table.rows[key] = row
			res.Inserted++
			continue
		}

		existing.Tavg, existing.Tmin, existing.Tmax = row.Tavg, row.Tmin, row.Tmax
		existing.Prcp, existing.Snow, existing.AvgWdir = row.Prcp, row.Snow, row.AvgWdir
		existing.Wspd, existing.Pres, existing.Tsun = row.Wspd, row.Pres, row.Tsun
		existing.AvgRhum, existing.AvgDwpt = row.AvgRhum, row.AvgDwpt
		table.rows[key] = existing
		res.Updated++
	}
	return res, nil
}

// QueryDaily returns the rows between dates (inclusive), ordered by date then station.
func (s *MemoryStore) QueryDaily(_ context.Context, t weather.Table, dates weather.DateRange) ([]weather.DailyRow, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.data[t]
	if !ok {
		return nil, nil
	}

	var from, to string
	if !dates.Start.IsZero() {
		from = dates.Start.Format(weather.DateLayout)
	}
	if !dates.End.IsZero() {
		to = dates.End.Format(weather.DateLayout)
	}

	var result []weather.DailyRow
	for key, row := range table.rows {
		if (from == "" || key.Date >= from) && (to == "" || key.Date <= to) {
			result = append(result, row)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Key(), result[j].Key()
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.StationID < b.StationID
	})
	return result, nil
}

// Len returns the number of rows stored in t.
func (s *MemoryStore) Len(t weather.Table) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if table, ok := s.data[t]; ok {
		return len(table.rows)
	}
	return 0
}

func (s *MemoryStore) Close() error {
	return nil
}
