package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/i474232898/weather-station-ingest/internal/weather"
)

var (
	// ErrMalformedRow is returned for rows without a station id or date.
	ErrMalformedRow = errors.New("malformed row")
)

// metadataColumns are written on insert only; they are never part of the update clause.
var metadataColumns = []string{
	"Station_ID", "Station_Name", "Country", "Region", "WMO", "ICAO",
	"Latitude", "Longitude", "Elevation", "Timezone", "Date",
}

// allColumns is the full column list in storage order.
var allColumns = append(append([]string{}, metadataColumns...), weather.MeasurementColumns...)

// dialect captures what differs between SQLite and PostgreSQL.
type dialect struct {
	dateType  string
	realType  string
	textType  string
	bind      func(n int) string
	returning string
}

var sqliteDialect = dialect{
	dateType: "TEXT",
	realType: "REAL",
	textType: "TEXT",
	bind:     func(int) string { return "?" },
}

var postgresDialect = dialect{
	dateType:  "DATE",
	realType:  "DOUBLE PRECISION",
	textType:  "TEXT",
	bind:      func(n int) string { return fmt.Sprintf("$%d", n) },
	returning: " RETURNING (xmax = 0) AS inserted",
}

func checkTable(t weather.Table) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", weather.ErrInvalidTable, t)
	}
	return nil
}

func (d dialect) createTableSQL(t weather.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t)
	for _, c := range metadataColumns {
		typ := d.textType
		switch c {
		case "Latitude", "Longitude", "Elevation":
			typ = d.realType
		case "Date":
			typ = d.dateType + " NOT NULL"
		case "Station_ID":
			typ = d.textType + " NOT NULL"
		}
		fmt.Fprintf(&b, "\t%s %s,\n", c, typ)
	}
	for _, c := range weather.MeasurementColumns {
		fmt.Fprintf(&b, "\t%s %s,\n", c, d.realType)
	}
	b.WriteString("\tPRIMARY KEY (Station_ID, Date)\n)")
	return b.String()
}

func (d dialect) upsertSQL(t weather.Table) string {
	binds := make([]string, len(allColumns))
	for i := range allColumns {
		binds[i] = d.bind(i + 1)
	}
	updates := make([]string, len(weather.MeasurementColumns))
	for i, c := range weather.MeasurementColumns {
		updates[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (Station_ID, Date) DO UPDATE SET %s%s",
		t, strings.Join(allColumns, ", "), strings.Join(binds, ", "), strings.Join(updates, ", "), d.returning,
	)
}

func (d dialect) existsSQL(t weather.Table) string {
	return fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE Station_ID = %s AND Date = %s)", t, d.bind(1), d.bind(2))
}

// selectSQL builds the viewer query. Date bounds are inclusive; zero bounds are open.
func (d dialect) selectSQL(t weather.Table, dates weather.DateRange, dateArg func(weather.DateRange, bool) any) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !dates.Start.IsZero() {
		args = append(args, dateArg(dates, true))
		conds = append(conds, "Date >= "+d.bind(len(args)))
	}
	if !dates.End.IsZero() {
		args = append(args, dateArg(dates, false))
		conds = append(conds, "Date <= "+d.bind(len(args)))
	}

	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(allColumns, ", "), t)
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	return q + " ORDER BY Date, Station_ID", args
}

func validateRow(r weather.DailyRow) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: empty station id", ErrMalformedRow)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: station %s has no date", ErrMalformedRow, r.ID)
	}
	return nil
}

// rowArgs returns the bind values in allColumns order; date is supplied by the dialect.
func rowArgs(r weather.DailyRow, date any) []any {
	args := []any{
		r.ID, r.Name, r.Country, r.Region, r.WMO, r.ICAO,
		r.Latitude, r.Longitude, r.Elevation, r.Timezone, date,
	}
	for _, v := range r.Measurements() {
		args = append(args, v)
	}
	return args
}

// scanTargets returns the destinations matching allColumns; the date goes to date.
func scanTargets(r *weather.DailyRow, date any) []any {
	return []any{
		&r.ID, &r.Name, &r.Country, &r.Region, &r.WMO, &r.ICAO,
		&r.Latitude, &r.Longitude, &r.Elevation, &r.Timezone, date,
		&r.Tavg, &r.Tmin, &r.Tmax, &r.Prcp, &r.Snow, &r.AvgWdir,
		&r.Wspd, &r.Pres, &r.Tsun, &r.AvgRhum, &r.AvgDwpt,
	}
}
