package viewer

import (
	"fmt"
	"math"
	"sort"

	"github.com/i474232898/weather-station-ingest/internal/weather"
)

// ColumnSummary holds descriptive statistics of one measurement column. Missing
// values are excluded; statistics that cannot be computed are nil.
type ColumnSummary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	P25    *float64 `json:"25%"`
	P50    *float64 `json:"50%"`
	P75    *float64 `json:"75%"`
	Max    *float64 `json:"max"`
}

// Summarize describes every measurement column of rows, in storage column order.
func Summarize(rows []weather.DailyRow) []ColumnSummary {
	out := make([]ColumnSummary, 0, len(weather.MeasurementColumns))
	for _, col := range weather.MeasurementColumns {
		values, _ := columnValues(rows, col)
		out = append(out, describe(col, values))
	}
	return out
}

// columnValues collects the present values of column.
func columnValues(rows []weather.DailyRow, column string) ([]float64, error) {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		v, ok := r.Measurement(column)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", column)
		}
		if v == nil || math.IsNaN(*v) {
			continue
		}
		values = append(values, *v)
	}
	return values, nil
}

func describe(column string, values []float64) ColumnSummary {
	s := ColumnSummary{Column: column, Count: len(values)}
	if len(values) == 0 {
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var total float64
	for _, v := range sorted {
		total += v
	}
	mean := total / float64(len(sorted))
	s.Mean = weather.Float(mean)

	// Sample standard deviation; undefined for a single value.
	if len(sorted) > 1 {
		var sq float64
		for _, v := range sorted {
			sq += (v - mean) * (v - mean)
		}
		s.Std = weather.Float(math.Sqrt(sq / float64(len(sorted)-1)))
	}

	s.Min = weather.Float(sorted[0])
	s.P25 = weather.Float(quantile(sorted, 0.25))
	s.P50 = weather.Float(quantile(sorted, 0.50))
	s.P75 = weather.Float(quantile(sorted, 0.75))
	s.Max = weather.Float(sorted[len(sorted)-1])
	return s
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
