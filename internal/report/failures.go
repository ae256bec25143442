package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/i474232898/weather-station-ingest/internal/weather"
)

// TimestampLayout is the suffix format of every file written per batch.
const TimestampLayout = "20060102_150405"

var failureHeader = []string{"Station ID", "Station Name", "Error"}

// FailureReporter writes the failed stations of a batch as CSV files under dir.
type FailureReporter struct {
	dir string
}

// NewFailureReporter creates a FailureReporter writing into dir.
func NewFailureReporter(dir string) *FailureReporter {
	return &FailureReporter{dir: dir}
}

// WriteFailures writes failed_stations_<timestamp>.csv and returns its path.
// Nothing is written for an empty list.
func (r *FailureReporter) WriteFailures(startedAt time.Time, failures []weather.FailureRecord) (string, error) {
	if len(failures) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(r.dir, "failed_stations_"+startedAt.Format(TimestampLayout)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(failureHeader); err != nil {
		return "", err
	}
	for _, rec := range failures {
		if err := w.Write([]string{rec.StationID, rec.StationName, rec.Error}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, f.Close()
}
