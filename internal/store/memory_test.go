package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-station-ingest/internal/weather"
)

func TestMemoryStore_UpsertTwiceKeepsOneRow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	row := dailyRow("72202", "2024-07-01", 20)

	res, err := s.UpsertDaily(ctx, weather.TablePast, []weather.DailyRow{row})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	row.Name = "ignored on update"
	row.Tavg = weather.Float(22)
	res, err = s.UpsertDaily(ctx, weather.TablePast, []weather.DailyRow{row})
	require.NoError(t, err)
	assert.Equal(t, weather.UpsertResult{Updated: 1}, res)
	assert.Equal(t, 1, s.Len(weather.TablePast))

	rows, err := s.QueryDaily(ctx, weather.TablePast, weather.DateRange{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Station 72202", rows[0].Name)
	assert.Equal(t, 22.0, *rows[0].Tavg)
}

func TestMemoryStore_TablesAreIndependent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.UpsertDaily(ctx, weather.TablePast, []weather.DailyRow{dailyRow("A", "2024-07-01", 1)})
	require.NoError(t, err)

	rows, err := s.QueryDaily(ctx, weather.TableFuture, weather.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemoryStore_QueryOrderAndRange(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.UpsertDaily(ctx, weather.TablePast, []weather.DailyRow{
		dailyRow("B", "2024-07-02", 1),
		dailyRow("A", "2024-07-02", 1),
		dailyRow("A", "2024-07-01", 1),
		dailyRow("A", "2024-07-05", 1),
	})
	require.NoError(t, err)

	rows, err := s.QueryDaily(ctx, weather.TablePast, weather.DateRange{
		End: time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"A", "A", "B"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})
	assert.Equal(t, "2024-07-01", rows[0].Date.Format(weather.DateLayout))
}

func TestMemoryStore_MalformedRowCounted(t *testing.T) {
	s := NewMemoryStore()

	res, err := s.UpsertDaily(context.Background(), weather.TablePast, []weather.DailyRow{
		dailyRow("", "2024-07-01", 1),
		dailyRow("A", "2024-07-01", 1),
	})
	require.NoError(t, err)
	assert.Equal(t, weather.UpsertResult{Inserted: 1, Failed: 1}, res)
}
