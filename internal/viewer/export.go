package viewer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/i474232898/weather-station-ingest/internal/weather"
)

// ExportHeader is the column header of CSV and XLSX exports, matching the table columns.
var ExportHeader = append([]string{
	"Station_ID", "Station_Name", "Country", "Region", "WMO", "ICAO",
	"Latitude", "Longitude", "Elevation", "Timezone", "Date",
}, weather.MeasurementColumns...)

func metadataCells(r weather.DailyRow) []string {
	return []string{
		r.ID, r.Name, r.Country, r.Region, r.WMO, r.ICAO,
		formatFloat(r.Latitude), formatFloat(r.Longitude), formatFloat(r.Elevation),
		r.Timezone, r.Date.Format(weather.DateLayout),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes rows with a header line. Missing values are empty cells.
func WriteCSV(w io.Writer, rows []weather.DailyRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}

	for _, r := range rows {
		rec := metadataCells(r)
		for _, v := range r.Measurements() {
			if v == nil {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, formatFloat(*v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

const (
	dataSheet    = "Daily"
	summarySheet = "Summary"
)

// WriteXLSX writes rows to a workbook with a data sheet and a summary sheet.
func WriteXLSX(w io.Writer, table weather.Table, rows []weather.DailyRow) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("Daily weather - %s", table),
		Creator: "weather-station-ingest",
	})

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeDataSheet(f, rows); err != nil {
		return fmt.Errorf("failed to create data sheet: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, Summarize(rows)); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeDataSheet(f *excelize.File, rows []weather.DailyRow) error {
	header := make([]interface{}, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(dataSheet, cell(1, 1), &header); err != nil {
		return err
	}

	for i, r := range rows {
		values := make([]interface{}, 0, len(ExportHeader))
		values = append(values,
			r.ID, r.Name, r.Country, r.Region, r.WMO, r.ICAO,
			r.Latitude, r.Longitude, r.Elevation, r.Timezone,
			r.Date.Format(weather.DateLayout),
		)
		for _, v := range r.Measurements() {
			if v == nil {
				values = append(values, nil)
				continue
			}
			values = append(values, *v)
		}
		if err := f.SetSheetRow(dataSheet, cell(1, i+2), &values); err != nil {
			return err
		}
	}

	return f.SetColWidth(dataSheet, "B", "B", 32)
}

func writeSummarySheet(f *excelize.File, summary []ColumnSummary) error {
	header := []interface{}{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	if err := f.SetSheetRow(summarySheet, cell(1, 1), &header); err != nil {
		return err
	}

	for i, s := range summary {
		values := []interface{}{s.Column, s.Count}
		for _, v := range []*float64{s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max} {
			if v == nil {
				values = append(values, nil)
				continue
			}
			values = append(values, *v)
		}
		if err := f.SetSheetRow(summarySheet, cell(1, i+2), &values); err != nil {
			return err
		}
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
