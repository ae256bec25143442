package viewer

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/i474232898/weather-station-ingest/internal/weather"
)

func row(id, name, region string, day int, tavg, prcp *float64) weather.DailyRow {
	return weather.DailyRow{
		StationMetadata: weather.StationMetadata{
			ID: id, Name: name, Country: "US", Region: region,
			Latitude: 25.5, Longitude: -80.25, Elevation: 3, Timezone: "America/New_York",
		},
		Date: time.Date(2024, 7, day, 0, 0, 0, 0, time.UTC),
		Tavg: tavg,
		Prcp: prcp,
	}
}

func sample() []weather.DailyRow {
	f := weather.Float
	return []weather.DailyRow{
		row("72202", "Miami International Airport", "FL", 1, f(1), f(0)),
		row("72202", "Miami International Airport", "FL", 2, f(2), nil),
		row("72219", "Atlanta Hartsfield", "GA", 1, f(3), f(4)),
		row("72530", "Chicago O'Hare", "IL", 1, f(4), f(2)),
		row("99999", "Unnamed", "", 1, nil, nil),
	}
}

func TestFilter(t *testing.T) {
	rows := sample()

	assert.Len(t, Filter{}.Apply(rows), 5)
	assert.Len(t, Filter{Regions: []string{"fl", "GA"}}.Apply(rows), 3)

	got := Filter{Name: "  AIRPORT "}.Apply(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "72202", got[0].ID)

	assert.Empty(t, Filter{Regions: []string{"GA"}, Name: "miami"}.Apply(rows))
}

func TestRegions(t *testing.T) {
	assert.Equal(t, []string{"FL", "GA", "IL"}, Regions(sample()))
	assert.Empty(t, Regions(nil))
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sample())
	require.Len(t, summary, len(weather.MeasurementColumns))

	tavg := summary[0]
	assert.Equal(t, "tavg", tavg.Column)
	assert.Equal(t, 4, tavg.Count)
	assert.InDelta(t, 2.5, *tavg.Mean, 1e-12)
	assert.InDelta(t, 1.2909944487358056, *tavg.Std, 1e-12)
	assert.Equal(t, 1.0, *tavg.Min)
	assert.InDelta(t, 1.75, *tavg.P25, 1e-12)
	assert.InDelta(t, 2.5, *tavg.P50, 1e-12)
	assert.InDelta(t, 3.25, *tavg.P75, 1e-12)
	assert.Equal(t, 4.0, *tavg.Max)

	prcp := summary[3]
	assert.Equal(t, "prcp", prcp.Column)
	assert.Equal(t, 3, prcp.Count)
	assert.InDelta(t, 2.0, *prcp.P50, 1e-12)

	tmin := summary[1]
	assert.Zero(t, tmin.Count)
	assert.Nil(t, tmin.Mean)
	assert.Nil(t, tmin.Std)
}

func TestSummarize_SingleValueHasNoStd(t *testing.T) {
	summary := Summarize([]weather.DailyRow{row("1", "A", "FL", 1, weather.Float(7), nil)})
	assert.Equal(t, 1, summary[0].Count)
	assert.Nil(t, summary[0].Std)
	assert.Equal(t, 7.0, *summary[0].P75)
}

func TestScatter(t *testing.T) {
	points, err := Scatter(sample(), "tavg", "prcp")
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, Point{StationID: "72202", StationName: "Miami International Airport", Date: "2024-07-01", X: 1, Y: 0}, points[0])

	_, err = Scatter(sample(), "tavg", "Station_ID")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()[:2]))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ExportHeader, records[0])
	assert.Equal(t, "72202", records[1][0])
	assert.Equal(t, "25.5", records[1][6])
	assert.Equal(t, "2024-07-02", records[2][10])

	// tavg present, prcp missing
	assert.Equal(t, "2", records[2][11])
	assert.Equal(t, "", records[2][14])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, weather.TablePast, sample()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{dataSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(dataSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, ExportHeader, rows[0])
	assert.Equal(t, "Atlanta Hartsfield", rows[3][1])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, len(weather.MeasurementColumns)+1)
	assert.Equal(t, "tavg", summary[1][0])
	assert.Equal(t, "4", summary[1][1])
}
