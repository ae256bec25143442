package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var miami = StationMetadata{
	ID:        "72202",
	Name:      "Miami International Airport",
	Country:   "US",
	Region:    "FL",
	WMO:       "72202",
	ICAO:      "KMIA",
	Latitude:  25.7906,
	Longitude: -80.3164,
	Elevation: 3,
	Timezone:  "America/New_York",
}

func at(day, hour int) time.Time {
	return time.Date(2024, 7, day, hour, 0, 0, 0, time.UTC)
}

func TestAggregateDaily_GroupsByDate(t *testing.T) {
	obs := []HourlyObservation{
		{StationID: "72202", Time: at(2, 3), Temp: Float(30), Prcp: Float(1)},
		{StationID: "72202", Time: at(1, 0), Temp: Float(20), Prcp: Float(0.5), Wdir: Float(350)},
		{StationID: "72202", Time: at(1, 12), Temp: Float(26), Prcp: Float(1.5), Wdir: Float(10)},
		{StationID: "72202", Time: at(1, 23), Temp: Float(23), Prcp: nil},
	}

	rows, err := AggregateDaily(miami, obs)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	day1 := rows[0]
	assert.Equal(t, "2024-07-01", day1.Date.Format(DateLayout))
	assert.Equal(t, miami, day1.StationMetadata)
	assert.InDelta(t, 23.0, *day1.Tavg, 1e-9)
	assert.Equal(t, 20.0, *day1.Tmin)
	assert.Equal(t, 26.0, *day1.Tmax)
	assert.InDelta(t, 2.0, *day1.Prcp, 1e-9)
	require.NotNil(t, day1.AvgWdir)
	assert.InDelta(t, 0, angularDiff(*day1.AvgWdir, 0), 1e-9)

	day2 := rows[1]
	assert.Equal(t, "2024-07-02", day2.Date.Format(DateLayout))
	assert.Equal(t, 30.0, *day2.Tavg)
	assert.Nil(t, day2.AvgWdir)
}

func TestAggregateDaily_AllMissingFields(t *testing.T) {
	rows, err := AggregateDaily(miami, []HourlyObservation{
		{StationID: "72202", Time: at(1, 0)},
		{StationID: "72202", Time: at(1, 1)},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	// Means and extrema stay missing.
	assert.Nil(t, r.Tavg)
	assert.Nil(t, r.Tmin)
	assert.Nil(t, r.Tmax)
	assert.Nil(t, r.Wspd)
	assert.Nil(t, r.Pres)
	assert.Nil(t, r.AvgRhum)
	assert.Nil(t, r.AvgDwpt)
	assert.Nil(t, r.AvgWdir)

	// Sums collapse to zero.
	require.NotNil(t, r.Prcp)
	assert.Equal(t, 0.0, *r.Prcp)
	assert.Equal(t, 0.0, *r.Snow)
	assert.Equal(t, 0.0, *r.Tsun)
}

func TestAggregateDaily_StationMismatch(t *testing.T) {
	_, err := AggregateDaily(miami, []HourlyObservation{
		{StationID: "72202", Time: at(1, 0)},
		{StationID: "72219", Time: at(1, 1)},
	})
	assert.ErrorIs(t, err, ErrStationMismatch)
}

func TestAggregateDaily_Empty(t *testing.T) {
	rows, err := AggregateDaily(miami, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAggregateDaily_DateInOwnLocation(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	rows, err := AggregateDaily(miami, []HourlyObservation{
		{Time: time.Date(2024, 7, 1, 22, 0, 0, 0, est), Temp: Float(25)},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-07-01", rows[0].Date.Format(DateLayout))
}

func TestAggregateDaily_TwoFullDays(t *testing.T) {
	var obs []HourlyObservation
	for day := 1; day <= 2; day++ {
		for h := 0; h < 24; h++ {
			o := HourlyObservation{
				StationID: "72202",
				Time:      at(day, h),
				Temp:      Float(float64(20 + h%5)),
				Prcp:      Float(0.1),
				Wspd:      Float(10),
				Pres:      Float(1015),
				Rhum:      Float(80),
				Dwpt:      Float(21),
			}
			if day == 1 {
				o.Wdir = Float(90)
			}
			obs = append(obs, o)
		}
	}
	require.Len(t, obs, 48)

	rows, err := AggregateDaily(miami, obs)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for _, r := range rows {
		assert.Equal(t, "72202", r.ID)
		assert.Equal(t, 20.0, *r.Tmin)
		assert.Equal(t, 24.0, *r.Tmax)
		assert.InDelta(t, 2.4, *r.Prcp, 1e-9)
		assert.InDelta(t, 10, *r.Wspd, 1e-9)
		assert.InDelta(t, 1015, *r.Pres, 1e-9)
		assert.InDelta(t, 80, *r.AvgRhum, 1e-9)
		assert.InDelta(t, 21, *r.AvgDwpt, 1e-9)
	}

	require.NotNil(t, rows[0].AvgWdir)
	assert.InDelta(t, 90, *rows[0].AvgWdir, 1e-9)
	assert.Nil(t, rows[1].AvgWdir)
}
