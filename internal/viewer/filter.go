// Package viewer turns stored daily rows into what the browsing endpoints show:
// filtered tables, descriptive statistics, scatter series and file exports.
package viewer

import (
	"sort"
	"strings"

	"github.com/i474232898/weather-station-ingest/internal/common"
	"github.com/i474232898/weather-station-ingest/internal/weather"
)

// Filter narrows rows by region and station name. Empty fields match everything.
type Filter struct {
	Regions []string
	// Name is matched as a case-insensitive substring of the station name.
	Name string
}

// Apply returns the rows matching f, preserving order.
func (f Filter) Apply(rows []weather.DailyRow) []weather.DailyRow {
	name := strings.TrimSpace(f.Name)
	if len(f.Regions) == 0 && name == "" {
		return rows
	}

	out := make([]weather.DailyRow, 0, len(rows))
	for _, r := range rows {
		if len(f.Regions) > 0 && !common.EqualsAnyFold(r.Region, f.Regions...) {
			continue
		}
		if name != "" && !common.ContainsFold(r.Name, name) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Regions returns the distinct non-empty regions of rows, sorted.
func Regions(rows []weather.DailyRow) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		if r.Region == "" {
			continue
		}
		seen[r.Region] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for reg := range seen {
		out = append(out, reg)
	}
	sort.Strings(out)
	return out
}
