package weather

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Table identifies one of the two daily tables. Only the values below are valid;
// anything else must be rejected before it reaches a SQL statement.
type Table string

const (
	TablePast   Table = "past_weather"
	TableFuture Table = "future_weather"
)

// Tables lists every valid table.
var Tables = []Table{TablePast, TableFuture}

// Valid reports whether t is on the allow-list.
func (t Table) Valid() bool {
	return t == TablePast || t == TableFuture
}

// ParseTable accepts either the full table name or its short form ("past", "future").
func ParseTable(s string) (Table, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "past", string(TablePast):
		return TablePast, nil
	case "future", string(TableFuture):
		return TableFuture, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTable, s)
	}
}

// BatchKind selects which window and table an ingest run targets.
type BatchKind string

const (
	KindPast   BatchKind = "past"
	KindFuture BatchKind = "future"
)

// Table returns the table a batch kind writes to.
func (k BatchKind) Table() Table {
	if k == KindFuture {
		return TableFuture
	}
	return TablePast
}

// ParseBatchKind validates a batch kind string.
func ParseBatchKind(s string) (BatchKind, error) {
	switch BatchKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPast:
		return KindPast, nil
	case KindFuture:
		return KindFuture, nil
	default:
		return "", fmt.Errorf("unknown batch kind %q (allowed: past, future)", s)
	}
}

// StationMetadata describes a station as published by the station directory.
type StationMetadata struct {
	ID        string  `json:"stationId"`
	Name      string  `json:"stationName"`
	Country   string  `json:"country"`
	Region    string  `json:"region"`
	WMO       string  `json:"wmo"`
	ICAO      string  `json:"icao"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	Timezone  string  `json:"timezone"`
}

// StationFilter narrows the station directory. Country is an ISO code ("US"),
// Region an optional state/province code within it.
type StationFilter struct {
	Country string
	Region  string
}

// HourlyObservation is a single hourly reading. A nil field means the source
// reported no value, which is different from zero.
type HourlyObservation struct {
	StationID string
	Time      time.Time

	Temp *float64 // °C
	Prcp *float64 // mm
	Snow *float64 // mm
	Wdir *float64 // degrees
	Wspd *float64 // km/h
	Pres *float64 // hPa
	Tsun *float64 // minutes
	Rhum *float64 // %
	Dwpt *float64 // °C
}

// DailyRow is the stored unit: one row per station per calendar date.
type DailyRow struct {
	StationMetadata
	Date time.Time `json:"date"`

	Tavg    *float64 `json:"tavg"`
	Tmin    *float64 `json:"tmin"`
	Tmax    *float64 `json:"tmax"`
	Prcp    *float64 `json:"prcp"`
	Snow    *float64 `json:"snow"`
	AvgWdir *float64 `json:"avg_wdir"`
	Wspd    *float64 `json:"wspd"`
	Pres    *float64 `json:"pres"`
	Tsun    *float64 `json:"tsun"`
	AvgRhum *float64 `json:"avg_rhum"`
	AvgDwpt *float64 `json:"avg_dwpt"`
}

// RowKey is the natural key of a DailyRow.
type RowKey struct {
	StationID string
	Date      string
}

func (k RowKey) String() string {
	return k.StationID + "@" + k.Date
}

// Key returns the (station, date) key of the row.
func (r DailyRow) Key() RowKey {
	return RowKey{StationID: r.ID, Date: r.Date.Format(DateLayout)}
}

// MeasurementColumns lists the numeric columns in storage order.
var MeasurementColumns = []string{
	"tavg", "tmin", "tmax", "prcp", "snow", "avg_wdir",
	"wspd", "pres", "tsun", "avg_rhum", "avg_dwpt",
}

// Measurement returns the value of a measurement column by name.
func (r DailyRow) Measurement(column string) (*float64, bool) {
	switch column {
	case "tavg":
		return r.Tavg, true
	case "tmin":
		return r.Tmin, true
	case "tmax":
		return r.Tmax, true
	case "prcp":
		return r.Prcp, true
	case "snow":
		return r.Snow, true
	case "avg_wdir":
		return r.AvgWdir, true
	case "wspd":
		return r.Wspd, true
	case "pres":
		return r.Pres, true
	case "tsun":
		return r.Tsun, true
	case "avg_rhum":
		return r.AvgRhum, true
	case "avg_dwpt":
		return r.AvgDwpt, true
	default:
		return nil, false
	}
}

// Measurements returns the measurement values in MeasurementColumns order.
func (r DailyRow) Measurements() []*float64 {
	return []*float64{
		r.Tavg, r.Tmin, r.Tmax, r.Prcp, r.Snow, r.AvgWdir,
		r.Wspd, r.Pres, r.Tsun, r.AvgRhum, r.AvgDwpt,
	}
}

// FailureRecord explains why a station produced no rows in a batch.
type FailureRecord struct {
	StationID   string `json:"stationId"`
	StationName string `json:"stationName"`
	Error       string `json:"error"`
}

// DateRange is an inclusive calendar-date filter. Zero bounds are open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// CalendarDate truncates t to its calendar date in t's own location and
// re-expresses it as midnight UTC so dates compare by value.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
