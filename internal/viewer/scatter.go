package viewer

import (
	"fmt"

	"github.com/i474232898/weather-station-ingest/internal/weather"
)

// Point is one station-day plotted on two measurement axes.
type Point struct {
	StationID   string  `json:"stationId"`
	StationName string  `json:"stationName"`
	Date        string  `json:"date"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// Scatter returns a point for every row where both x and y are present.
func Scatter(rows []weather.DailyRow, x, y string) ([]Point, error) {
	for _, col := range []string{x, y} {
		if _, ok := (weather.DailyRow{}).Measurement(col); !ok {
			return nil, fmt.Errorf("unknown column %q", col)
		}
	}

	points := make([]Point, 0, len(rows))
	for _, r := range rows {
		xv, _ := r.Measurement(x)
		yv, _ := r.Measurement(y)
		if xv == nil || yv == nil {
			continue
		}
		points = append(points, Point{
			StationID:   r.ID,
			StationName: r.Name,
			Date:        r.Date.Format(weather.DateLayout),
			X:           *xv,
			Y:           *yv,
		})
	}
	return points, nil
}
